package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/notepub/internal/apperr"
	"github.com/starford/notepub/internal/checksum"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestPutAndGet(t *testing.T) {
	s := tempStore(t)
	content := []byte("<h1>Hello</h1>\n")
	if err := s.Put("note.html", content); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get("note.html")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestPutCreatesSubdirs(t *testing.T) {
	s := tempStore(t)
	if err := s.Put("a/b/c.html", []byte("deep")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get("a/b/c.html")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Get("nope.html"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	_ = s.Put("del.html", []byte("bye"))
	if err := s.Delete("del.html"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("del.html"); err == nil {
		t.Error("expected error reading deleted key")
	}
	if err := s.Delete("del.html"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempStore(t)
	_ = s.Put("b.html", []byte("b"))
	_ = s.Put("sub/a.html", []byte("a"))
	_ = s.Put("a.html", []byte("a"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a.html", "b.html", "sub/a.html"}
	if len(items) != len(want) {
		t.Fatalf("len = %d, want %d", len(items), len(want))
	}
	for i, k := range want {
		if items[i].Key != k {
			t.Errorf("items[%d].Key = %q, want %q", i, items[i].Key, k)
		}
	}
	if items[0].Checksum != checksum.Sum([]byte("a")) || items[0].Size != 1 {
		t.Errorf("metadata = %+v", items[0])
	}

	sub, err := s.List("sub")
	if err != nil {
		t.Fatalf("List sub: %v", err)
	}
	if len(sub) != 1 || sub[0].Key != "sub/a.html" {
		t.Errorf("sub = %+v", sub)
	}

	missing, err := s.List("nothing-here")
	if err != nil || len(missing) != 0 {
		t.Errorf("missing prefix: %v %v", missing, err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.html",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Get(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Put(p, []byte("x")); err == nil {
			t.Errorf("expected error for put to %q", p)
		}
	}
}

func TestAtomicPutNoLeftovers(t *testing.T) {
	s := tempStore(t)
	_ = s.Put("atomic.html", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Put("atomic.html", updated); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ := s.Get("atomic.html")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), tmpPattern))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
	if _, err := CreateFS(filepath.Join(f, "child")); !errors.Is(err, apperr.ErrStructural) {
		t.Errorf("CreateFS under a file: expected ErrStructural, got %v", err)
	}
}

func TestCreateFS(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out", "site")
	s, err := CreateFS(root)
	if err != nil {
		t.Fatalf("CreateFS: %v", err)
	}
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("writability check left files behind: %v", entries)
	}
	if err := s.Put("x.html", []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestCheckWritable_RootGone(t *testing.T) {
	s := tempStore(t)
	if err := s.CheckWritable(); err != nil {
		t.Fatalf("CheckWritable: %v", err)
	}
	if err := os.RemoveAll(s.Root()); err != nil {
		t.Fatal(err)
	}
	if err := s.CheckWritable(); !errors.Is(err, apperr.ErrStructural) {
		t.Errorf("expected ErrStructural, got %v", err)
	}
}

func TestCreateFS_ReadOnlyRoot(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(root, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	if _, err := CreateFS(root); !errors.Is(err, apperr.ErrStructural) {
		t.Errorf("expected ErrStructural, got %v", err)
	}
}

func TestMirror(t *testing.T) {
	src, dst := tempStore(t), tempStore(t)
	_ = src.Put("a.html", []byte("a"))
	_ = src.Put("sub/b.html", []byte("b"))
	_ = dst.Put("a.html", []byte("a"))
	_ = dst.Put("sub/b.html", []byte("old"))
	_ = dst.Put("stale.html", []byte("gone"))

	stats, err := Mirror(context.Background(), src, dst, "", nil)
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	if stats.Copied != 1 || stats.Unchanged != 1 || stats.Deleted != 1 {
		t.Errorf("stats = %+v", stats)
	}
	got, _ := dst.Get("sub/b.html")
	if string(got) != "b" {
		t.Errorf("sub/b.html = %q", got)
	}
	if _, err := dst.Get("stale.html"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stale key survived: %v", err)
	}

	again, err := Mirror(context.Background(), src, dst, "", nil)
	if err != nil {
		t.Fatalf("second Mirror: %v", err)
	}
	if again.Copied != 0 || again.Unchanged != 2 || again.Deleted != 0 {
		t.Errorf("second run stats = %+v", again)
	}
}

func TestMirrorCancelled(t *testing.T) {
	src, dst := tempStore(t), tempStore(t)
	_ = src.Put("a.html", []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Mirror(ctx, src, dst, "", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
