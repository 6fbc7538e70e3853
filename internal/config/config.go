package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "codeflip"

	// DefaultTransformTimeout bounds a single transformer invocation.
	DefaultTransformTimeout = 30 * time.Second

	// DefaultBatchSize is the number of pages processed concurrently.
	DefaultBatchSize = 4

	// DefaultBlockConcurrency is the number of concurrent transforms within
	// one page.
	DefaultBlockConcurrency = 4

	// DefaultOutputDir is where processed pages are written.
	DefaultOutputDir = "public"

	// DefaultListenAddress is the address of the preview server.
	DefaultListenAddress = "127.0.0.1:8080"

	// DefaultHistoryLimit is the number of runs listed by the history command.
	DefaultHistoryLimit = 20

	// DefaultCrawlMaxPages bounds the number of pages fetched for one
	// remote input.
	DefaultCrawlMaxPages = 100

	// DefaultCrawlDelay is the pause between two requests to the same site.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultWatchDebounce groups bursts of file events into one rebuild.
	DefaultWatchDebounce = 200 * time.Millisecond
)

// Config holds the options of one command invocation.
// It is populated from CLI flags, with the project file loaded into Project.
type Config struct {
	// Inputs are the files and directories to process.
	Inputs []string

	// OutputDir is the directory processed pages are written to.
	// When empty, the build command writes a single page to stdout.
	OutputDir string

	// Transformer is the command line of the external compiler.
	// Overrides the project file when set.
	Transformer string

	// TransformTimeout bounds a single transformer invocation.
	TransformTimeout time.Duration

	// BatchSize is the number of pages processed concurrently.
	BatchSize int

	// BlockConcurrency is the number of concurrent transforms within one page.
	BlockConcurrency int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the project file.
	// If empty, the tool searches for .codeflip.yaml in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// Project holds the settings loaded from the project file.
	Project *File

	// JSONReport enables JSON run report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown run report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the run report.
	// When set, the report is written to this file instead of stderr.
	ReportFile string

	// DBDir is the directory of the SQLite database holding the transform
	// cache and the run history. Defaults to the XDG cache directory.
	DBDir string

	// NoCache disables the persistent transform cache and run history.
	NoCache bool

	// Watch rebuilds when an input changes.
	Watch bool

	// ListenAddress is the address of the preview server.
	ListenAddress string

	// BaseURL qualifies root-relative links in the footnote list.
	// Overrides the project file when set.
	BaseURL string

	// CrawlDepth is how many links deep remote inputs are followed.
	// 0 fetches only the given URL.
	CrawlDepth int

	// CrawlMaxPages bounds the pages fetched per remote input.
	CrawlMaxPages int

	// CrawlDelay is the pause between requests to the same site.
	CrawlDelay time.Duration
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:        DefaultOutputDir,
		TransformTimeout: DefaultTransformTimeout,
		BatchSize:        DefaultBatchSize,
		BlockConcurrency: DefaultBlockConcurrency,
		DBDir:            XDGCacheDir(),
		ListenAddress:    DefaultListenAddress,
		CrawlMaxPages:    DefaultCrawlMaxPages,
		CrawlDelay:       DefaultCrawlDelay,
		Project:          DefaultFile(),
	}
}

// XDGDataDir returns the XDG data directory for codeflip.
// On Linux: ~/.local/share/codeflip
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for codeflip.
// On Linux: ~/.config/codeflip
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for codeflip.
// On Linux: ~/.cache/codeflip
// On macOS: ~/Library/Caches/codeflip
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// TransformerCommand returns the effective transformer command line: the
// flag value when set, otherwise the project file's.
func (c *Config) TransformerCommand() string {
	if c.Transformer != "" {
		return c.Transformer
	}
	if c.Project != nil {
		return c.Project.Transformer.Command
	}
	return ""
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}

	if c.TransformerCommand() == "" {
		return ErrNoTransformer
	}

	if c.TransformTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.BlockConcurrency <= 0 {
		return ErrInvalidBlockConcurrency
	}

	if c.CrawlDepth < 0 || c.CrawlMaxPages <= 0 || c.CrawlDelay < 0 {
		return ErrInvalidCrawl
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.BaseURL != "" {
		if err := validateBaseURL(c.BaseURL); err != nil {
			return err
		}
	}

	if c.Project != nil {
		return c.Project.Validate()
	}
	return nil
}

// validateBaseURL requires an absolute http(s) URL.
func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	return nil
}
