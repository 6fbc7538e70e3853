package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/codeflip/internal/config"
	"github.com/nao1215/codeflip/internal/crawler"
	"github.com/nao1215/codeflip/internal/model"
	"github.com/nao1215/codeflip/internal/pipeline"
	"github.com/nao1215/codeflip/internal/report"
	"github.com/nao1215/codeflip/internal/source"
	"github.com/spf13/cobra"
)

// stdoutDir is the --output value that writes a single page to stdout.
const stdoutDir = "-"

// fetchTimeout bounds one HTTP request for a remote input.
const fetchTimeout = 30 * time.Second

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [paths or URLs...]",
		Short: "Convert source blocks in pages into dual views",
		Long: `Build processes HTML and Markdown pages and writes the results to an output
directory. Markdown is rendered to HTML first.

Every <pre> block is compiled with the transformer. On success the block is
replaced by a dual view holding the original, the compiled output and a
toggle control; on failure the block is left exactly as it was. A run
report is printed at the end.

Arguments may be files, directories (walked recursively, filtered by the
include and exclude patterns of the config file) or http(s) URLs, which are
fetched and, with --depth, crawled on the same host.

Examples:
  # Process a documentation tree into ./public
  codeflip build docs --transformer "coffee --stdio --print --bare"

  # Process one page and print it
  codeflip build -o - guide.html

  # Rebuild whenever a page changes
  codeflip build docs --watch

  # Fetch a published page and one level of linked pages
  codeflip build https://docs.example.com/ --depth 1

  # Write a Markdown run report for CI
  codeflip build docs --markdown --report-file report.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBuildCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Output directory (\"-\" writes a single page to stdout)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pages processed concurrently")
	cmd.Flags().BoolP("watch", "w", false,
		"Rebuild when an input changes")

	// Remote inputs
	cmd.Flags().IntP("depth", "d", 0,
		"How many links deep to follow on remote inputs")
	cmd.Flags().Int("max-pages", config.DefaultCrawlMaxPages,
		"Maximum number of pages fetched per remote input")
	cmd.Flags().Duration("crawl-delay", config.DefaultCrawlDelay,
		"Delay between requests to a remote site")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report-file", "r", "",
		"Write the report to the specified file path (creates directories if needed)")

	addTransformerFlags(cmd)

	return cmd
}

// buildOptions are the resolved inputs of a build.
type buildOptions struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	out        io.Writer
	errOut     io.Writer
}

// runBuildCmd executes the build command.
func runBuildCmd(cmd *cobra.Command, args []string) error {
	cfg, configPath, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.Watch && cfg.OutputDir == "" {
		return errors.New("--watch needs an output directory")
	}

	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &buildOptions{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		out:        cmd.OutOrStdout(),
		errOut:     cmd.ErrOrStderr(),
	}

	if cfg.Watch {
		return runWatch(ctx, opts)
	}

	summary, err := runBuild(ctx, opts)
	if err != nil {
		return err
	}
	if summary.Errors > 0 {
		return fmt.Errorf("%w: %d of %d", errPagesFailed, summary.Errors, summary.Pages)
	}
	return nil
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, "", err
	}
	if cfg.OutputDir == stdoutDir {
		cfg.OutputDir = ""
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, "", err
	}
	if cfg.Watch, err = flags.GetBool("watch"); err != nil {
		return nil, "", err
	}
	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return nil, "", err
	}
	if cfg.CrawlMaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, "", err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("crawl-delay"); err != nil {
		return nil, "", err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, "", err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, "", err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, "", err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	configPath, err := readTransformerFlags(cmd, cfg)
	if err != nil {
		return nil, "", err
	}

	cfg.Inputs = args
	return cfg, configPath, nil
}

// isRemote reports whether an input argument is a URL to fetch.
func isRemote(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// splitInputs separates local paths from URLs.
func splitInputs(inputs []string) (local, remote []string) {
	for _, in := range inputs {
		if isRemote(in) {
			remote = append(remote, in)
		} else {
			local = append(local, in)
		}
	}
	return local, remote
}

// loadPages discovers and reads local inputs and fetches remote ones.
func loadPages(ctx context.Context, opts *buildOptions) ([]*model.Page, error) {
	cfg := opts.cfg
	local, remote := splitInputs(cfg.Inputs)

	var pages []*model.Page
	if len(local) > 0 {
		inputs, err := source.Discover(local, cfg.Project, cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		for _, in := range inputs {
			pg, err := source.Load(in)
			if err != nil {
				return nil, err
			}
			pages = append(pages, pg)
		}
	}

	for _, u := range remote {
		spider := crawler.NewSpider(&http.Client{Timeout: fetchTimeout},
			crawler.WithMaxDepth(cfg.CrawlDepth),
			crawler.WithMaxPages(cfg.CrawlMaxPages),
			crawler.WithDelay(cfg.CrawlDelay),
			crawler.WithIgnorePatterns(cfg.Project.Exclude),
			crawler.WithUserAgent(crawler.DefaultUserAgent+" "+getVersion()),
			crawler.WithLogger(opts.logger),
		)
		fetched, err := spider.Crawl(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
		}
		if len(fetched) == 0 {
			opts.logger.Warn("no pages fetched", "url", u)
		}
		pages = append(pages, fetched...)
	}
	return pages, nil
}

// runBuild performs one full build: load, process, write, report.
func runBuild(ctx context.Context, opts *buildOptions) (*model.Summary, error) {
	cfg := opts.cfg
	startedAt := time.Now()

	env, err := openEnvironment(cfg, opts.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := env.Close(); err != nil {
			opts.logger.Error("failed to close database", "error", err)
		}
	}()

	pages, err := loadPages(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, errors.New("no pages found in the given inputs")
	}
	if cfg.OutputDir == "" && len(pages) != 1 {
		return nil, fmt.Errorf("writing to stdout needs exactly one page, got %d", len(pages))
	}

	settings := env.settingsFor(cfg, opts.logger)
	bp := pipeline.NewBatchProcessor(
		func(pg *model.Page) *pipeline.Pipeline {
			return pipeline.NewDefault(settings(pg.Path))
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(opts.logger),
	)

	reports, err := bp.ProcessBatch(ctx, pages)
	if err != nil {
		return nil, err
	}

	for i, pg := range pages {
		if reports[i] == nil || reports[i].Error != "" {
			continue
		}
		if err := writeOutput(cfg, pg, opts.out); err != nil {
			reports[i].Error = err.Error()
			opts.logger.Error("failed to write page", "page", pg.Path, "error", err)
		}
	}

	summary := model.Summarize(startedAt, reports)

	if env.db != nil {
		if _, err := env.db.SaveRun(ctx, summary); err != nil {
			opts.logger.Warn("failed to save run history", "error", err)
		}
	}

	// The page itself owns stdout when written there.
	reportOut := opts.out
	if cfg.OutputDir == "" {
		reportOut = opts.errOut
	}
	if err := outputReport(cfg, summary, reportOut); err != nil {
		return summary, fmt.Errorf("failed to write report: %w", err)
	}
	return summary, nil
}

// writeOutput writes a processed page to the output directory or to w.
func writeOutput(cfg *config.Config, pg *model.Page, w io.Writer) error {
	if cfg.OutputDir == "" {
		return source.WriteTo(w, pg)
	}
	_, err := source.WritePage(cfg.OutputDir, pg)
	return err
}

// outputReport writes the run report in the requested format.
func outputReport(cfg *config.Config, summary *model.Summary, def io.Writer) error {
	output, closeOutput, err := openReportOutput(cfg.ReportFile, def)
	if err != nil {
		return err
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		opts := []report.TextWriterOption{report.WithVerbose(cfg.Verbose)}
		if cfg.ReportFile != "" {
			opts = append(opts, report.WithColor(false))
		}
		writer = report.NewTextWriter(output, opts...)
	}

	if _, err := writer.Write(summary); err != nil {
		_ = closeOutput() //nolint:errcheck // Write error takes precedence
		return err
	}
	return closeOutput()
}

// createFile creates or truncates path, creating parent directories.
func createFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// runWatch builds once and then rebuilds on every change to a local
// input or the config file until ctx is done.
func runWatch(ctx context.Context, opts *buildOptions) error {
	local, remote := splitInputs(opts.cfg.Inputs)
	if len(local) == 0 {
		return errors.New("--watch needs at least one local input")
	}
	if len(remote) > 0 {
		opts.logger.Warn("remote inputs are fetched once per rebuild and not watched", "urls", remote)
	}

	if _, err := runBuild(ctx, opts); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		opts.logger.Error("build failed", "error", err)
	}

	w := source.NewWatcher(
		source.WithDebounce(config.DefaultWatchDebounce),
		source.WithSkipDirs(opts.cfg.OutputDir),
		source.WithExtraFiles(opts.configPath),
		source.WithWatchLogger(opts.logger),
	)
	fmt.Fprintf(opts.errOut, "Watching %s for changes (Ctrl+C to stop)\n", strings.Join(local, ", "))

	return w.Run(ctx, local, func(changed []string) {
		if opts.configPath != "" && slices.ContainsFunc(changed, func(p string) bool {
			return sameFile(p, opts.configPath)
		}) {
			reloadProject(opts)
		}
		fmt.Fprintf(opts.errOut, "Rebuilding: %d file(s) changed\n", len(changed))
		if _, err := runBuild(ctx, opts); err != nil && ctx.Err() == nil {
			opts.logger.Error("build failed", "error", err)
		}
	})
}

// reloadProject re-reads the config file, keeping the previous settings
// when the new file is invalid.
func reloadProject(opts *buildOptions) {
	project, err := config.LoadConfigFile(opts.configPath)
	if err != nil {
		opts.logger.Error("config file not reloaded", "path", opts.configPath, "error", err)
		return
	}
	opts.cfg.Project = project
	opts.logger.Info("config file reloaded", "path", opts.configPath)
}

// sameFile compares two paths after making them absolute.
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
