// Package testutil provides shared test helpers for source trees, output
// stores and manifests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/notepub/internal/index"
	"github.com/starford/notepub/internal/storage"
)

// TestDB creates a temporary SQLite manifest that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestOutput creates a temporary output directory with a storage.FS over it.
func TestOutput(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Note returns a publishable source document with the given title and body.
// Extra header lines (e.g. "tags: [a]") are inserted before the closing marker.
func Note(title, body string, extra ...string) string {
	var b strings.Builder
	b.WriteString("---\ntitle: " + title + "\nis_completed: true\ncreated: 2024-01-01\n")
	for _, line := range extra {
		b.WriteString(line + "\n")
	}
	b.WriteString("---\n" + body)
	return b.String()
}

// WriteSource writes content to rel under root, creating parent directories.
func WriteSource(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
