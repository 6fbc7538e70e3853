package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/codeflip/internal/model"
	"github.com/nao1215/codeflip/internal/page"
)

// ErrOutsideOutput is returned when a page's output path would escape the
// output directory.
var ErrOutsideOutput = errors.New("output path escapes the output directory")

// OutputFile returns where pg is written under dir.
func OutputFile(dir string, pg *model.Page) (string, error) {
	rel := filepath.FromSlash(pg.OutputPath())
	if filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideOutput, pg.Path)
	}
	return filepath.Join(dir, rel), nil
}

// WritePage renders pg into dir, creating parent directories as needed,
// and returns the written file's path. The file is written through a
// temporary file so readers never see a partial page.
func WritePage(dir string, pg *model.Page) (string, error) {
	if pg.Doc == nil {
		return "", fmt.Errorf("page %s has not been parsed", pg.Path)
	}
	dst, err := OutputFile(dir, pg)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf, pg.Doc); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", pg.Path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name()) //nolint:errcheck // Already renamed on success
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close() //nolint:errcheck // Write error takes precedence
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // Pages are public
		return "", fmt.Errorf("failed to set permissions on %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return dst, nil
}

// WriteTo renders pg to w.
func WriteTo(w io.Writer, pg *model.Page) error {
	if pg.Doc == nil {
		return fmt.Errorf("page %s has not been parsed", pg.Path)
	}
	return page.Render(w, pg.Doc)
}
