package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/nao1215/codeflip/internal/config"
	"github.com/nao1215/codeflip/internal/database"
	cflog "github.com/nao1215/codeflip/internal/log"
	"github.com/nao1215/codeflip/internal/markdown"
	"github.com/nao1215/codeflip/internal/pipeline"
	"github.com/nao1215/codeflip/internal/transform"
	"github.com/spf13/cobra"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogJSONFlag retrieves the log-json flag from the command or its parent.
func getLogJSONFlag(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool("log-json")
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates a structured logger based on the global flags.
// Logs go to stderr so they never mix with pages written to stdout.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	w := cmd.ErrOrStderr()
	if getLogJSONFlag(cmd) {
		return cflog.NewJSONLogger(w, getVerboseFlag(cmd))
	}
	return cflog.NewLogger(w, getVerboseFlag(cmd))
}

// loadProject loads the project file into cfg.Project and returns its
// path, or "" when none was found. An explicitly named file must exist.
func loadProject(cfg *config.Config) (string, error) {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case path != "":
		project, err := config.LoadConfigFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.Project = project
	case explicit:
		return "", fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.Project = config.DefaultFile()
	}
	return path, nil
}

// addTransformerFlags registers the flags shared by build and serve.
func addTransformerFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("transformer", "t", "",
		"Transformer command line, e.g. \"coffee --stdio --print --bare\" (overrides the config file)")
	cmd.Flags().Duration("timeout", config.DefaultTransformTimeout,
		"Timeout for a single transformer invocation")
	cmd.Flags().Int("block-concurrency", config.DefaultBlockConcurrency,
		"Number of concurrent transforms within one page")
	cmd.Flags().String("base-url", "",
		"Base URL used to qualify root-relative links in footnote lists")
	cmd.Flags().Bool("no-cache", false,
		"Disable the persistent transform cache and run history")
	cmd.Flags().String("db-dir", "",
		"Directory of the cache database (default: XDG cache directory)")
	cmd.Flags().StringP("config", "c", "",
		"Config file path (default: .codeflip.yaml in current or home directory)")
}

// readTransformerFlags copies the shared flags into cfg and loads the
// project file. The project file's transformer timeout applies unless
// --timeout was given.
func readTransformerFlags(cmd *cobra.Command, cfg *config.Config) (string, error) {
	var err error
	flags := cmd.Flags()

	if cfg.Transformer, err = flags.GetString("transformer"); err != nil {
		return "", err
	}
	if cfg.TransformTimeout, err = flags.GetDuration("timeout"); err != nil {
		return "", err
	}
	if cfg.BlockConcurrency, err = flags.GetInt("block-concurrency"); err != nil {
		return "", err
	}
	if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
		return "", err
	}
	if cfg.NoCache, err = flags.GetBool("no-cache"); err != nil {
		return "", err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return "", err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return "", err
	}

	path, err := loadProject(cfg)
	if err != nil {
		return "", err
	}
	if !flags.Changed("timeout") && cfg.Project.Transformer.Timeout > 0 {
		cfg.TransformTimeout = cfg.Project.Transformer.Timeout
	}
	return path, nil
}

// environment holds the resources shared by all pages of a command.
type environment struct {
	transformer transform.Transformer
	renderer    *markdown.Renderer
	db          *database.DB
}

// openEnvironment builds the transformer, wrapped with the persistent cache
// unless cfg.NoCache is set. A database that cannot be opened disables the
// cache with a warning.
func openEnvironment(cfg *config.Config, logger *slog.Logger) (*environment, error) {
	var env []string
	if cfg.Project != nil {
		env = cfg.Project.Transformer.Env
	}
	cmdT, err := transform.NewCommand(cfg.TransformerCommand(),
		transform.WithTimeout(cfg.TransformTimeout),
		transform.WithEnv(env...),
	)
	if err != nil {
		return nil, err
	}

	e := &environment{
		transformer: cmdT,
		renderer:    markdown.NewRenderer(markdown.WithStyle(cfg.Project.DualView.HighlightStyle)),
	}
	if cfg.NoCache {
		return e, nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("transform cache disabled", "dir", cfg.DBDir, "error", err)
		return e, nil
	}
	e.db = db
	e.transformer = transform.NewCached(cmdT, db, logger)
	return e, nil
}

// Close releases the database.
func (e *environment) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

// settingsFor returns the per-page pipeline settings: the project file
// settings for the page path, with the --base-url flag applied to the
// footnote list.
func (e *environment) settingsFor(cfg *config.Config, logger *slog.Logger) func(rel string) pipeline.Settings {
	var base *url.URL
	if cfg.BaseURL != "" {
		base, _ = url.Parse(cfg.BaseURL) //nolint:errcheck // Validated by Config.Validate
	}
	project := cfg.Project
	return func(rel string) pipeline.Settings {
		ps := project.Settings(rel)
		if ps.Footnotes != nil && base != nil {
			ps.Footnotes.BaseURL = base
		}
		return pipeline.Settings{
			Transformer:      e.transformer,
			Policy:           ps.Policy,
			View:             ps.View,
			Footnotes:        ps.Footnotes,
			Renderer:         e.renderer,
			BlockConcurrency: cfg.BlockConcurrency,
			Logger:           logger,
		}
	}
}

// openReportOutput returns the report destination: the report file when
// set, otherwise def. The returned close function is never nil.
func openReportOutput(path string, def io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return def, func() error { return nil }, nil
	}
	f, err := createFile(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// errPagesFailed is returned by build when at least one page could not be
// processed.
var errPagesFailed = errors.New("some pages could not be processed")
