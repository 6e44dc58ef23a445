package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"testing"
)

const created = "2025-01-01T00:00:00+09:00"

var hexRe = regexp.MustCompile(`^[0-9a-f]{12}$`)

func TestGenerate_Format(t *testing.T) {
	cases := []struct{ title, path string }{
		{"Test Article", "tech/rust/test.md"},
		{"日本語のタイトル", "tech/article.md"},
		{"Test & Special Characters", "daily/test.md"},
		{"", ""},
	}
	for _, c := range cases {
		s := Generate(c.title, c.path, created)
		if !hexRe.MatchString(s) {
			t.Errorf("Generate(%q, %q) = %q, want 12 lowercase hex chars", c.title, c.path, s)
		}
	}
}

func TestGenerate_KnownDigest(t *testing.T) {
	sum := sha256.Sum256([]byte("Test/tech/test.md/" + created))
	want := hex.EncodeToString(sum[:])[:12]
	if got := Generate("Test", "tech/test.md", created); got != want {
		t.Errorf("Generate = %q, want %q", got, want)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate("Same Title", "test/path.md", created)
	for i := 0; i < 5; i++ {
		if b := Generate("Same Title", "test/path.md", created); a != b {
			t.Fatalf("call %d: %q != %q", i, b, a)
		}
	}
}

func TestGenerate_Sensitivity(t *testing.T) {
	base := Generate("Test", "tech/test.md", created)
	variants := map[string]string{
		"trailing space": Generate("Test ", "tech/test.md", created),
		"lowercase":      Generate("test", "tech/test.md", created),
		"other path":     Generate("Test", "tech/test2.md", created),
		"other created":  Generate("Test", "tech/test.md", "2025-01-01T00:00:01+09:00"),
	}
	seen := map[string]string{base: "base"}
	for name, s := range variants {
		if s == base {
			t.Errorf("%s: slug did not change", name)
		}
		if prev, ok := seen[s]; ok {
			t.Errorf("%s collides with %s", name, prev)
		}
		seen[s] = name
	}
}

func TestIsUnique(t *testing.T) {
	known := []string{"abc123def456", "789xyz012tuv"}
	if IsUnique("abc123def456", known) {
		t.Error("existing slug reported unique")
	}
	if !IsUnique("new123slug45", known) {
		t.Error("new slug reported duplicate")
	}
}

func TestCollisions(t *testing.T) {
	got := Collisions(map[string]string{
		"b.md": "aaaaaaaaaaaa",
		"a.md": "aaaaaaaaaaaa",
		"c.md": "bbbbbbbbbbbb",
	})
	if len(got) != 1 {
		t.Fatalf("collisions = %v, want one group", got)
	}
	paths := got["aaaaaaaaaaaa"]
	if len(paths) != 2 || paths[0] != "a.md" || paths[1] != "b.md" {
		t.Errorf("paths = %v", paths)
	}
}
