package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/codeflip/internal/config"
	"github.com/nao1215/codeflip/internal/database"
	"github.com/nao1215/codeflip/internal/report"
	"github.com/spf13/cobra"
)

// errRunNotFound is returned when a run id is not in the history.
var errRunNotFound = errors.New("run not found")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show previous build runs",
		Long: `History lists the most recent build runs stored in the database.
With a run id, it prints the full report of that run.

Examples:
  # List recent runs
  codeflip history

  # Show run 12 as JSON
  codeflip history 12 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit, "Number of runs to list")
	cmd.Flags().BoolP("json", "j", false, "Output the run report as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Output the run report as Markdown")
	cmd.Flags().String("db-dir", "", "Directory of the database (default: XDG cache directory)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// openDB opens the database named by --db-dir, or the default one.
func openDB(cmd *cobra.Command) (*database.DB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir == "" {
		dbDir = config.XDGCacheDir()
	}
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }() //nolint:errcheck // Read-only use

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		return listRunHistory(ctx, out, db, limit)
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid run id %q", args[0])
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	return showRun(ctx, out, db, id, asJSON, asMarkdown)
}

// listRunHistory prints one line per stored run, newest first.
func listRunHistory(ctx context.Context, out io.Writer, db *database.DB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'codeflip build' to process pages.")
		return nil
	}

	fmt.Fprintf(out, "Recent runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %s\n", "ID", "Date", "Pages", "Blocks")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-6d  %s\n",
			run.ID,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Pages,
			formatRunCounts(run),
		)
	}

	fmt.Fprintln(out, "\nUse 'codeflip history <id>' to show the report of a run.")
	return nil
}

// formatRunCounts formats the block counters of a run into a short string.
func formatRunCounts(run database.RunRecord) string {
	parts := []string{
		fmt.Sprintf("converted:%d", run.Converted),
		fmt.Sprintf("failed:%d", run.Failed),
		fmt.Sprintf("skipped:%d", run.Skipped),
	}
	if run.Footnotes > 0 {
		parts = append(parts, fmt.Sprintf("footnotes:%d", run.Footnotes))
	}
	if run.Errors > 0 {
		parts = append(parts, fmt.Sprintf("errors:%d", run.Errors))
	}
	return strings.Join(parts, " ")
}

// showRun prints the stored report of one run.
func showRun(ctx context.Context, out io.Writer, db *database.DB, id int64, asJSON, asMarkdown bool) error {
	summary, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("%w: %d", errRunNotFound, id)
	}

	var writer report.Writer
	switch {
	case asJSON:
		writer = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case asMarkdown:
		writer = report.NewMarkdownWriter(out)
	default:
		writer = report.NewTextWriter(out, report.WithVerbose(true))
	}
	_, err = writer.Write(summary)
	return err
}
