// Package database provides SQLite-based storage for codeflip.
//
// The database lives in a single file and stores:
//   - the transform cache, keyed by a digest of transformer and source
//   - the run history, one summary per build
//
// It uses modernc.org/sqlite, a CGO-free driver, with WAL enabled and a
// single writer connection.
package database
