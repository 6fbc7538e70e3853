package model

import "time"

// Summary aggregates the page reports of one run.
type Summary struct {
	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`

	// Pages is the number of pages processed, including aborted ones.
	Pages int `json:"pages"`

	// Converted is the total number of blocks replaced by a dual view.
	Converted int `json:"converted"`

	// Failed is the total number of blocks left untouched after a
	// transformer failure.
	Failed int `json:"failed"`

	// Skipped is the total number of <pre> elements filtered out.
	Skipped int `json:"skipped"`

	// Footnotes is the total number of footnote entries added.
	Footnotes int `json:"footnotes"`

	// Errors is the number of pages whose processing aborted.
	Errors int `json:"errors"`

	// Reports holds the per-page reports in input order.
	Reports []*Report `json:"reports"`
}

// Summarize aggregates reports. Nil entries are ignored.
func Summarize(startedAt time.Time, reports []*Report) *Summary {
	s := &Summary{
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.Pages++
		s.Converted += r.Converted()
		s.Failed += r.Failed()
		s.Skipped += r.Skipped()
		s.Footnotes += r.Footnotes
		if r.Error != "" {
			s.Errors++
		}
		s.Reports = append(s.Reports, r)
	}
	return s
}
