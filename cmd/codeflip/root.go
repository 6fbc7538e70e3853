package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for codeflip.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codeflip",
		Short: "Turn source blocks in documentation pages into toggleable dual views",
		Long: `codeflip finds <pre> source blocks in HTML and Markdown pages, compiles each
block with an external transformer such as the CoffeeScript compiler, and
replaces it with a dual view: the original block, the compiled output and a
control that toggles between them.

Blocks the transformer rejects are left exactly as they were. Blocks whose
preceding sibling element carries the marker class (no_toggle by default)
are skipped. Optionally a printable list of outbound links is appended.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewBuildCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCacheCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
