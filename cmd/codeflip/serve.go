package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/codeflip/internal/config"
	"github.com/nao1215/codeflip/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve a directory, processing pages on request",
		Long: `Serve starts a local HTTP server for a documentation directory.

HTML and Markdown pages are processed on every request, so edits show up on
reload without a build step. A request for page.html falls back to page.md
when only the Markdown source exists. Other files are served as-is.

Examples:
  # Preview ./docs on http://127.0.0.1:8080
  codeflip serve docs --transformer "coffee --stdio --print --bare"

  # Listen on another address
  codeflip serve docs --addr :9000`,
		Args: cobra.MaximumNArgs(1),
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", config.DefaultListenAddress, "Listen address")
	cmd.Flags().Bool("cors-allow-all", false,
		"Allow cross-origin requests from any origin (default: localhost only)")
	addTransformerFlags(cmd)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	if _, err := readTransformerFlags(cmd, cfg); err != nil {
		return err
	}

	var err error
	if cfg.ListenAddress, err = cmd.Flags().GetString("addr"); err != nil {
		return err
	}
	allowAll, err := cmd.Flags().GetBool("cors-allow-all")
	if err != nil {
		return err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}
	cfg.Inputs = []string{root}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	env, err := openEnvironment(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Addr:            cfg.ListenAddress,
		Root:            root,
		AllowAllOrigins: allowAll,
	}, env.settingsFor(cfg, logger), logger)

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s on http://%s (Ctrl+C to stop)\n", root, cfg.ListenAddress)
	return srv.Start(ctx)
}
