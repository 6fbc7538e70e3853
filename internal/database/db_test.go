package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/codeflip/internal/model"
	"github.com/nao1215/codeflip/internal/transform"
)

// Compile-time check that DB can back the transform cache.
var _ transform.Store = (*DB)(nil)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if err := db.PutTransform(context.Background(), "k", "v"); err != nil {
			t.Fatalf("PutTransform() error = %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		out, ok, err := db.GetTransform(context.Background(), "k")
		if err != nil || !ok || out != "v" {
			t.Errorf("GetTransform() = (%q, %v, %v), want (v, true, nil)", out, ok, err)
		}
	})
}

// TestDefaultOptions tests the default options.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true")
	}
}

func TestTransformCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("miss then hit", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)

		if _, ok, err := db.GetTransform(ctx, "missing"); err != nil || ok {
			t.Fatalf("GetTransform(missing) = (_, %v, %v), want miss", ok, err)
		}

		if err := db.PutTransform(ctx, "key", "var x = 1;"); err != nil {
			t.Fatalf("PutTransform() error = %v", err)
		}
		for range 2 {
			out, ok, err := db.GetTransform(ctx, "key")
			if err != nil || !ok || out != "var x = 1;" {
				t.Fatalf("GetTransform() = (%q, %v, %v)", out, ok, err)
			}
		}

		stats, err := db.CacheStats(ctx)
		if err != nil {
			t.Fatalf("CacheStats() error = %v", err)
		}
		if stats.Entries != 1 || stats.Hits != 2 || stats.Bytes != int64(len("var x = 1;")) {
			t.Errorf("CacheStats() = %+v", stats)
		}
	})

	t.Run("put replaces output", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if err := db.PutTransform(ctx, "key", "old"); err != nil {
			t.Fatal(err)
		}
		if err := db.PutTransform(ctx, "key", "new"); err != nil {
			t.Fatal(err)
		}
		out, _, err := db.GetTransform(ctx, "key")
		if err != nil || out != "new" {
			t.Errorf("GetTransform() = (%q, %v), want new", out, err)
		}
	})

	t.Run("prune all", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		for _, k := range []string{"a", "b", "c"} {
			if err := db.PutTransform(ctx, k, k); err != nil {
				t.Fatal(err)
			}
		}

		n, err := db.PruneTransforms(ctx, time.Hour)
		if err != nil {
			t.Fatalf("PruneTransforms(1h) error = %v", err)
		}
		if n != 0 {
			t.Errorf("PruneTransforms(1h) removed %d fresh entries", n)
		}

		n, err = db.PruneTransforms(ctx, 0)
		if err != nil {
			t.Fatalf("PruneTransforms(0) error = %v", err)
		}
		if n != 3 {
			t.Errorf("PruneTransforms(0) removed %d, want 3", n)
		}
	})

	t.Run("backs the cached transformer", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		calls := 0
		inner := transform.Named("test", transform.Func(func(_ context.Context, s string) (string, error) {
			calls++
			return strings.ToUpper(s), nil
		}))
		cached := transform.NewCached(inner, db, nil)

		for range 3 {
			out, err := cached.Transform(ctx, "abc")
			if err != nil || out != "ABC" {
				t.Fatalf("Transform() = (%q, %v)", out, err)
			}
		}
		if calls != 1 {
			t.Errorf("inner called %d times, want 1", calls)
		}
	})
}

func TestRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	for i := range 3 {
		r := model.NewReport("page.html")
		r.PreElements = i + 1
		r.Blocks = []model.BlockResult{{Index: 0, Outcome: model.OutcomeConverted}}
		summary := model.Summarize(time.Now(), []*model.Report{r})
		if _, err := db.SaveRun(ctx, summary); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	runs, err := db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns(2) returned %d runs", len(runs))
	}
	if runs[0].ID <= runs[1].ID {
		t.Errorf("runs not newest first: %d, %d", runs[0].ID, runs[1].ID)
	}
	if runs[0].Skipped != 2 || runs[0].Converted != 1 || runs[0].Pages != 1 {
		t.Errorf("unexpected newest run %+v", runs[0])
	}
	if runs[0].Timestamp.IsZero() {
		t.Error("timestamp not parsed")
	}

	all, err := db.ListRuns(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Errorf("ListRuns(0) = (%d runs, %v), want 3", len(all), err)
	}

	summary, err := db.GetRun(ctx, runs[0].ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if summary == nil || len(summary.Reports) != 1 || summary.Reports[0].Page != "page.html" {
		t.Errorf("GetRun() = %+v", summary)
	}
	if summary.Reports[0].Blocks[0].Outcome != model.OutcomeConverted {
		t.Errorf("outcome not round-tripped: %+v", summary.Reports[0].Blocks)
	}

	missing, err := db.GetRun(ctx, 9999)
	if err != nil || missing != nil {
		t.Errorf("GetRun(missing) = (%v, %v), want (nil, nil)", missing, err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		zero bool
	}{
		{"2024-01-15 10:30:00", false},
		{"2024-01-15T10:30:00Z", false},
		{"2024-01-15T10:30:00+09:00", false},
		{"not a time", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.in); got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q).IsZero() = %v, want %v", tt.in, got.IsZero(), tt.zero)
			}
		})
	}
}
