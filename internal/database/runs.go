package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/codeflip/internal/model"
)

// RunRecord contains summary information about a stored run.
// This is used for listing history without decoding the full summary.
type RunRecord struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Timestamp is when the run was saved.
	Timestamp time.Time

	// Pages is the number of pages processed.
	Pages int

	// Converted is the number of blocks replaced by a dual view.
	Converted int

	// Failed is the number of blocks left untouched after a transformer failure.
	Failed int

	// Skipped is the number of blocks filtered out by the scan policy.
	Skipped int

	// Footnotes is the number of footnote entries added.
	Footnotes int

	// Errors is the number of pages whose processing aborted.
	Errors int

	// Duration is the wall time of the run.
	Duration time.Duration
}

// SaveRun stores a run summary and returns its id.
func (d *DB) SaveRun(ctx context.Context, summary *model.Summary) (int64, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run summary: %w", err)
	}

	query := `
	INSERT INTO runs (pages, converted, failed, skipped, footnotes, errors, duration_ms, summary_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := d.db.ExecContext(ctx, query,
		summary.Pages,
		summary.Converted,
		summary.Failed,
		summary.Skipped,
		summary.Footnotes,
		summary.Errors,
		summary.Duration.Milliseconds(),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	return result.LastInsertId()
}

// ListRuns returns the most recent runs, newest first. A non-positive
// limit returns every run.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, timestamp, pages, converted, failed, skipped, footnotes, errors, duration_ms
	FROM runs
	ORDER BY id DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			rec        RunRecord
			timestamp  string
			durationMS int64
		)
		if err := rows.Scan(
			&rec.ID,
			&timestamp,
			&rec.Pages,
			&rec.Converted,
			&rec.Failed,
			&rec.Skipped,
			&rec.Footnotes,
			&rec.Errors,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.Timestamp = parseTimestamp(timestamp)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetRun retrieves the full summary of a run by its id.
// Returns nil without error if the run does not exist.
func (d *DB) GetRun(ctx context.Context, id int64) (*model.Summary, error) {
	var summaryJSON string
	err := d.db.QueryRowContext(ctx,
		`SELECT summary_json FROM runs WHERE id = ?`, id,
	).Scan(&summaryJSON)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var summary model.Summary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse run summary: %w", err)
	}

	return &summary, nil
}
