package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command and its subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune the transform cache",
		Long: `Successful transformer outputs are cached in a SQLite database keyed by
the transformer command and the block source, so unchanged blocks are not
compiled again.`,
	}
	cmd.PersistentFlags().String("db-dir", "", "Directory of the database (default: XDG cache directory)")

	cmd.AddCommand(newCacheStatsCmd(), newCachePruneCmd())
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show transform cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }() //nolint:errcheck // Read-only use

			stats, err := db.CacheStats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", db.Path())
			fmt.Fprintf(out, "  %-10s %d\n", "Entries:", stats.Entries)
			fmt.Fprintf(out, "  %-10s %d\n", "Hits:", stats.Hits)
			fmt.Fprintf(out, "  %-10s %s\n", "Size:", formatBytes(stats.Bytes))
			return nil
		},
	}
}

func newCachePruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove cached outputs",
		Long: `Prune removes cached outputs that were not used within --older-than.
Without --older-than, every entry is removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			age, err := cmd.Flags().GetDuration("older-than")
			if err != nil {
				return err
			}
			if age < 0 {
				return fmt.Errorf("--older-than must not be negative: %s", age)
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }() //nolint:errcheck // Deletion already committed

			n, err := db.PruneTransforms(cmd.Context(), age)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached transform(s)\n", n)
			return nil
		},
	}
	cmd.Flags().Duration("older-than", 0, "Only remove entries unused for this long (e.g. 720h)")
	return cmd
}

// formatBytes formats a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
