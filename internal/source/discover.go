package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/codeflip/internal/model"
)

// DefaultExcludes are directory names never descended into.
var DefaultExcludes = []string{
	".git",
	".hg",
	".svn",
	"node_modules",
	"vendor",
	".idea",
	".vscode",
}

// ErrUnsupportedFormat is returned for an explicitly named file that is
// neither HTML nor Markdown.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Filter decides which files under an input directory are processed.
// *config.File implements it.
type Filter interface {
	// Included reports whether the slash-separated relative path is an input.
	Included(rel string) bool

	// Excluded reports whether the slash-separated relative path is skipped.
	Excluded(rel string) bool
}

// Input is one discovered document.
type Input struct {
	// Root is the input directory the document was found under. For an
	// explicitly named file it is the file's directory.
	Root string

	// Path is the path on disk.
	Path string

	// Rel is the slash-separated path relative to Root. It names the page
	// and its output file.
	Rel string
}

// Discover expands the given files and directories into inputs.
// Directories are walked recursively and filtered through f; files are
// taken as-is when their extension is supported. Paths under any of
// skipDirs (typically the output directory) are ignored.
func Discover(paths []string, f Filter, skipDirs ...string) ([]Input, error) {
	skip := make([]string, 0, len(skipDirs))
	for _, d := range skipDirs {
		if d == "" {
			continue
		}
		if abs, err := filepath.Abs(d); err == nil {
			skip = append(skip, abs)
		}
	}

	var inputs []Input
	seen := make(map[string]bool)
	add := func(in Input) {
		if seen[in.Path] {
			return
		}
		seen[in.Path] = true
		inputs = append(inputs, in)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat input %s: %w", p, err)
		}

		if !info.IsDir() {
			if _, ok := model.FormatOf(p); !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, p)
			}
			add(Input{Root: filepath.Dir(p), Path: p, Rel: filepath.Base(p)})
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != p && (isExcludedDir(d.Name()) || under(path, skip)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(p, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if _, ok := model.FormatOf(rel); !ok {
				return nil
			}
			if f != nil && (!f.Included(rel) || f.Excluded(rel)) {
				return nil
			}
			add(Input{Root: p, Path: path, Rel: rel})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}
	return inputs, nil
}

// Load reads the input into a page named by its relative path.
func Load(in Input) (*model.Page, error) {
	format, ok := model.FormatOf(in.Path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, in.Path)
	}
	raw, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", in.Path, err)
	}
	return model.NewPage(in.Rel, format, raw), nil
}

func isExcludedDir(name string) bool {
	for _, excl := range DefaultExcludes {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// under reports whether path is one of dirs or inside one of them.
func under(path string, dirs []string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, d := range dirs {
		if abs == d || strings.HasPrefix(abs, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
