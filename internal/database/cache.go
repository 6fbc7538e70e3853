package database

import (
	"context"
	"fmt"
	"time"
)

// GetTransform returns the cached output for key and whether it was found.
// A hit bumps the entry's hit count and last-used time.
func (d *DB) GetTransform(ctx context.Context, key string) (string, bool, error) {
	var output string
	err := d.db.QueryRowContext(ctx,
		`SELECT output FROM transform_cache WHERE key = ?`, key,
	).Scan(&output)
	if isNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached transform: %w", err)
	}

	if _, err := d.db.ExecContext(ctx,
		`UPDATE transform_cache SET hits = hits + 1, last_used_at = CURRENT_TIMESTAMP WHERE key = ?`, key,
	); err != nil {
		return "", false, fmt.Errorf("failed to update cache entry: %w", err)
	}

	return output, true, nil
}

// PutTransform stores output under key, replacing any previous output.
func (d *DB) PutTransform(ctx context.Context, key, output string) error {
	query := `
	INSERT INTO transform_cache (key, output)
	VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET
		output = excluded.output,
		last_used_at = CURRENT_TIMESTAMP
	`

	if _, err := d.db.ExecContext(ctx, query, key, output); err != nil {
		return fmt.Errorf("failed to store transform: %w", err)
	}
	return nil
}

// CacheStats summarizes the transform cache.
type CacheStats struct {
	// Entries is the number of cached outputs.
	Entries int64

	// Hits is the total number of cache hits.
	Hits int64

	// Bytes is the total size of the cached outputs.
	Bytes int64
}

// CacheStats returns the transform cache statistics.
func (d *DB) CacheStats(ctx context.Context) (CacheStats, error) {
	var stats CacheStats
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hits), 0), COALESCE(SUM(LENGTH(CAST(output AS BLOB))), 0) FROM transform_cache`,
	).Scan(&stats.Entries, &stats.Hits, &stats.Bytes)
	if err != nil {
		return CacheStats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return stats, nil
}

// PruneTransforms deletes cache entries unused for longer than age and
// returns how many were removed. A non-positive age removes every entry.
func (d *DB) PruneTransforms(ctx context.Context, age time.Duration) (int64, error) {
	var (
		query = `DELETE FROM transform_cache`
		args  []any
	)
	if age > 0 {
		query += ` WHERE last_used_at < datetime('now', ?)`
		args = append(args, fmt.Sprintf("-%d seconds", int64(age.Seconds())))
	}

	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transform cache: %w", err)
	}
	return result.RowsAffected()
}
