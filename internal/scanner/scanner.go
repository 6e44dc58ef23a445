// Package scanner enumerates candidate source notes under a root directory.
package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/notepub/internal/apperr"
)

// Options controls which files are candidates.
type Options struct {
	// Extension is matched case-insensitively, including the dot. Defaults to ".md".
	Extension string
	// TemplatesDir names a directory excluded at any depth. Defaults to "_templates".
	TemplatesDir string
}

func (o Options) withDefaults() Options {
	if o.Extension == "" {
		o.Extension = ".md"
	}
	if o.TemplatesDir == "" {
		o.TemplatesDir = "_templates"
	}
	return o
}

// Scan walks root and returns the slash-separated relative paths of every
// candidate file in lexicographic order. Hidden entries and the templates
// directory are pruned. Entries that cannot be read are logged and skipped;
// only a missing or non-directory root is an error.
func Scan(root string, opts Options, logger *slog.Logger) ([]string, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scanner: %w: stat root: %w", apperr.ErrStructural, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scanner: %w: root is not a directory: %s", apperr.ErrStructural, root)
	}

	var out []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			logger.Warn("scanner: entry unreadable", slog.String("path", p), slog.String("error", walkErr.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || name == opts.TemplatesDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), opts.Extension) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			logger.Warn("scanner: relative path failed", slog.String("path", p), slog.String("error", err.Error()))
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanner: %w: walk: %w", apperr.ErrStructural, err)
	}

	sort.Strings(out)
	return out, nil
}

// IsExcluded reports whether a slash-separated relative path lies under a
// hidden or templates directory. The watcher uses it to filter events.
func IsExcluded(rel string, opts Options) bool {
	opts = opts.withDefaults()
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, part := range parts {
		if part == "" || part == "." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
		if i < len(parts)-1 && part == opts.TemplatesDir {
			return true
		}
	}
	return false
}

// IsExcludedDir reports whether the directory rel, or any of its parents,
// is pruned by Scan.
func IsExcludedDir(rel string, opts Options) bool {
	opts = opts.withDefaults()
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "" || part == "." {
			continue
		}
		if strings.HasPrefix(part, ".") || part == opts.TemplatesDir {
			return true
		}
	}
	return false
}

// Matches reports whether name carries the candidate extension.
func Matches(name string, opts Options) bool {
	opts = opts.withDefaults()
	return strings.EqualFold(filepath.Ext(name), opts.Extension)
}
