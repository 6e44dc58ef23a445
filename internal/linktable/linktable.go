// Package linktable builds the whole-corpus mapping from a wiki-link target
// to the published location of a document.
package linktable

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/starford/notepub/internal/models"
)

// Entry is one publishable document as seen by the builder.
type Entry struct {
	RelativePath string
	Title        string
	Slug         string
}

// Options configures published paths.
type Options struct {
	// BasePath prefixes every published path. Defaults to "/".
	BasePath string
}

// Collision records two documents that declared the same title. The later
// one in scan order wins.
type Collision struct {
	Title  string `json:"title"`
	Loser  string `json:"loser"`
	Winner string `json:"winner"`
}

// Table is the immutable link table. It is safe for concurrent reads.
type Table struct {
	byTitle    map[string]models.FileInfo
	byPath     map[string]models.FileInfo
	pathKeys   []string
	duplicates []Collision
}

// Build indexes every entry by its title and by its relative path without
// extension. It must see the complete set of publishable documents.
func Build(entries []Entry, opts Options, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Table{
		byTitle: make(map[string]models.FileInfo, len(entries)),
		byPath:  make(map[string]models.FileInfo, len(entries)),
	}

	for _, e := range entries {
		rel := strings.TrimPrefix(path.Clean(e.RelativePath), "/")
		info := models.FileInfo{
			RelativeSourcePath: rel,
			Slug:               e.Slug,
			PublishedPath:      PublishedPath(opts.BasePath, rel),
		}

		if prev, ok := t.byTitle[e.Title]; ok {
			c := Collision{Title: e.Title, Loser: prev.RelativeSourcePath, Winner: rel}
			t.duplicates = append(t.duplicates, c)
			logger.Warn("linktable: duplicate title, last one wins",
				slog.String("title", e.Title),
				slog.String("previous", c.Loser),
				slog.String("path", c.Winner))
		}
		t.byTitle[e.Title] = info

		key := stripExt(rel)
		if _, ok := t.byPath[key]; !ok {
			t.pathKeys = append(t.pathKeys, key)
		}
		t.byPath[key] = info
	}

	sort.Strings(t.pathKeys)
	return t
}

// Lookup resolves a wiki-link target: first by title, then by relative path
// (with or without extension), then by the first path ending in "/target".
func (t *Table) Lookup(target string) (models.FileInfo, bool) {
	if t == nil {
		return models.FileInfo{}, false
	}
	if info, ok := t.byTitle[target]; ok {
		return info, true
	}
	key := strings.TrimPrefix(target, "/")
	if strings.EqualFold(path.Ext(key), ".md") {
		key = stripExt(key)
	}
	if info, ok := t.byPath[key]; ok {
		return info, true
	}
	suffix := "/" + key
	for _, k := range t.pathKeys {
		if strings.HasSuffix(k, suffix) {
			return t.byPath[k], true
		}
	}
	return models.FileInfo{}, false
}

// Len returns the number of distinct documents in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byPath)
}

// Duplicates returns the title collisions seen while building.
func (t *Table) Duplicates() []Collision {
	if t == nil {
		return nil
	}
	return append([]Collision(nil), t.duplicates...)
}

// Titles returns the title keys in sorted order.
func (t *Table) Titles() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.byTitle))
	for k := range t.byTitle {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PublishedPath maps a relative source path to its URL path under base.
func PublishedPath(base, rel string) string {
	if base == "" {
		base = "/"
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + stripExt(strings.TrimPrefix(rel, "/")) + ".html"
}

func stripExt(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}
