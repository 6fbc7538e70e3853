package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and File.Validate() so
// callers can match them with errors.Is().
var (
	// ErrNoInput is returned when no input file or directory is given.
	ErrNoInput = errors.New("no input specified: provide at least one file or directory")

	// ErrNoTransformer is returned when neither --transformer nor the
	// project file names a transformer command.
	ErrNoTransformer = errors.New("no transformer specified: use --transformer or set transformer.command in the config file")

	// ErrInvalidTimeout is returned when the transform timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidBlockConcurrency is returned when the per-page concurrency
	// is not positive.
	ErrInvalidBlockConcurrency = errors.New("invalid block concurrency: must be positive")

	// ErrInvalidCrawl is returned for a negative crawl depth or delay, or a
	// non-positive page limit.
	ErrInvalidCrawl = errors.New("invalid crawl settings: depth and delay must not be negative, max pages must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute
	// http or https URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrInvalidMode is returned for a scan mode other than opt-out or opt-in.
	ErrInvalidMode = errors.New("invalid scan mode: must be opt-out or opt-in")

	// ErrInvalidToggleKind is returned for a toggle kind other than button or div.
	ErrInvalidToggleKind = errors.New("invalid toggle kind: must be button or div")

	// ErrInvalidPattern is returned for a malformed include, exclude or
	// override glob pattern.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)
