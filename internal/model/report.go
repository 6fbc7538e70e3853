package model

import "time"

// Report is the result of processing one page.
// It is tool output only; the rendered page never shows failures.
type Report struct {
	// Page is the page path.
	Page string `json:"page"`

	// ProcessedAt is when processing started.
	ProcessedAt time.Time `json:"processed_at"`

	// Duration is the wall time spent on the page.
	Duration time.Duration `json:"duration"`

	// PreElements is the number of <pre> elements found at scan time.
	PreElements int `json:"pre_elements"`

	// Blocks holds one result per candidate block, in document order.
	Blocks []BlockResult `json:"blocks,omitempty"`

	// Footnotes is the number of footnote entries added.
	Footnotes int `json:"footnotes"`

	// Error is set when processing the page aborted.
	Error string `json:"error,omitempty"`
}

// BlockResult records the outcome of one candidate block.
type BlockResult struct {
	// Index is the document-order position of the block among all
	// <pre> elements of the page.
	Index int `json:"index"`

	// Outcome is what happened to the block.
	Outcome Outcome `json:"outcome"`

	// Message holds the compiler diagnostics or error for failed blocks.
	Message string `json:"message,omitempty"`
}

// NewReport returns an empty report for the page at path.
func NewReport(path string) *Report {
	return &Report{
		Page:        path,
		ProcessedAt: time.Now(),
	}
}

// Count returns the number of blocks with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, b := range r.Blocks {
		if b.Outcome == o {
			n++
		}
	}
	return n
}

// Converted returns the number of blocks replaced by a dual view.
func (r *Report) Converted() int { return r.Count(OutcomeConverted) }

// Failed returns the number of blocks left untouched because the
// transformer failed for any reason.
func (r *Report) Failed() int { return r.Count(OutcomeFailed) + r.Count(OutcomeErrored) }

// Skipped returns the number of <pre> elements the scan policy filtered out
// or that were already processed.
func (r *Report) Skipped() int {
	if n := r.PreElements - len(r.Blocks); n > 0 {
		return n
	}
	return 0
}

// Changed reports whether processing modified the page.
func (r *Report) Changed() bool {
	return r.Converted() > 0 || r.Footnotes > 0
}
