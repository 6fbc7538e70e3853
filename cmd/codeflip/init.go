package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/codeflip/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/codeflip.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a commented .codeflip.yaml project file",
		Long: `Init writes a .codeflip.yaml project file to the current directory.

The generated file documents every setting:
- The transformer command and its timeout
- Which blocks are converted (opt-out or opt-in marker)
- How dual views are rendered
- The printable footnote list
- Include, exclude and per-path override patterns

Examples:
  # Create .codeflip.yaml in the current directory
  codeflip init

  # Create the file at a specific path
  codeflip init -o docs/.codeflip.yaml

  # Overwrite an existing file
  codeflip init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the project file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite an existing project file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("project file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/codeflip.yaml")
	if err != nil {
		return fmt.Errorf("failed to read project file template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created project file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - The transformer command")
	fmt.Fprintln(out, "  - Opt-out or opt-in block selection")
	fmt.Fprintln(out, "  - Footnote lists for printing")

	return nil
}
