package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/notepub/internal/apperr"
	"github.com/starford/notepub/internal/docservice"
	"github.com/starford/notepub/internal/index"
	"github.com/starford/notepub/internal/storage"
	"github.com/starford/notepub/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a config over a fresh source tree holding two linked
// notes and a draft.
func testConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Source.Path = filepath.Join(root, "notes")
	cfg.Output.Path = filepath.Join(root, "public")
	cfg.SQLite.Path = filepath.Join(root, "notepub.db")

	testutil.WriteSource(t, cfg.Source.Path, "alpha.md", testutil.Note("Alpha", "# Alpha\n\nSee [[Beta]].\n"))
	testutil.WriteSource(t, cfg.Source.Path, "sub/beta.md", testutil.Note("Beta", "Beta body.\n", "tags: [go]"))
	testutil.WriteSource(t, cfg.Source.Path, "draft.md", "---\ntitle: Draft\nis_completed: false\ncreated: 2024-01-01\n---\nwip\n")
	return cfg
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t)

	report, err := Build(context.Background(), WithConfig(cfg), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Published != 2 || report.Skipped != 1 || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}
	for _, p := range []string{"alpha.html", "sub/beta.html"} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Path, p)); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	slugs, err := db.KnownSlugs()
	if err != nil {
		t.Fatal(err)
	}
	if len(slugs) != 2 {
		t.Errorf("manifest slugs = %v", slugs)
	}

	// A second build writes nothing.
	report, err = Build(context.Background(), WithConfig(cfg), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if report.Published != 0 || report.Unchanged != 2 {
		t.Errorf("second report = %+v", report)
	}
}

func TestBuild_MissingSourceIsStructural(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.Path = filepath.Join(t.TempDir(), "missing")

	_, err := Build(context.Background(), WithConfig(cfg), WithLogger(quietLogger()))
	if !errors.Is(err, apperr.ErrStructural) {
		t.Errorf("err = %v, want ErrStructural", err)
	}
	for _, p := range []string{cfg.Output.Path, cfg.SQLite.Path} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s should not be created on a structural failure (stat err = %v)", p, err)
		}
	}
}

func TestBuild_UnwritableOutputIsStructural(t *testing.T) {
	cfg := testConfig(t)
	// A regular file where the output directory should be.
	if err := os.WriteFile(cfg.Output.Path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Build(context.Background(), WithConfig(cfg), WithLogger(quietLogger()))
	if !errors.Is(err, apperr.ErrStructural) {
		t.Errorf("err = %v, want ErrStructural", err)
	}
}

func TestBuild_RequiresConfig(t *testing.T) {
	if _, err := Build(context.Background(), WithLogger(quietLogger())); err == nil {
		t.Error("expected error without config")
	}
}

func TestHTTPHandler(t *testing.T) {
	cfg := testConfig(t)
	if _, err := Build(context.Background(), WithConfig(cfg), WithLogger(quietLogger())); err != nil {
		t.Fatal(err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	out, err := storage.NewFS(cfg.Output.Path)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHTTPHandler(cfg, docservice.New(db, out), out, nil)

	get := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w
	}

	if w := get("/health/live"); w.Code != http.StatusOK {
		t.Errorf("live = %d", w.Code)
	}
	if w := get("/health/ready"); w.Code != http.StatusOK {
		t.Errorf("ready = %d", w.Code)
	}

	w := get("/api/documents?tag=go")
	if w.Code != http.StatusOK {
		t.Fatalf("documents = %d %s", w.Code, w.Body.String())
	}
	var list struct {
		Documents []docservice.DocumentListItem `json:"documents"`
		Total     int                           `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Documents[0].PublishedPath != "/sub/beta.html" {
		t.Errorf("list = %+v", list)
	}

	w = get("/alpha.html")
	if w.Code != http.StatusOK {
		t.Fatalf("page = %d", w.Code)
	}
	body := w.Body.String()
	if strings.HasPrefix(body, "---") {
		t.Error("page should not include the YAML header")
	}
	if !strings.Contains(body, `<a href="/sub/beta.html">Beta</a>`) {
		t.Errorf("page body = %q", body)
	}

	if w := get("/api/events"); w.Code != http.StatusNotFound {
		t.Errorf("events without broker = %d, want 404", w.Code)
	}
}

func TestPush(t *testing.T) {
	cfg := testConfig(t)
	if _, err := Build(context.Background(), WithConfig(cfg), WithLogger(quietLogger())); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "site")

	stats, err := Push(context.Background(), dest, WithConfig(cfg), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if stats.Copied != 2 || stats.Deleted != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(dest, "sub", "beta.html")); err != nil {
		t.Errorf("mirrored page missing: %v", err)
	}

	stats, err = Push(context.Background(), dest, WithConfig(cfg), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Copied != 0 || stats.Unchanged != 2 {
		t.Errorf("second push = %+v", stats)
	}
}

func TestPush_DestinationFromConfig(t *testing.T) {
	cfg := testConfig(t)
	if _, err := Push(context.Background(), "", WithConfig(cfg), WithLogger(quietLogger())); err == nil {
		t.Error("expected error without destination")
	}
	if err := os.MkdirAll(cfg.Output.Path, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Push.Path = cfg.Output.Path
	if _, err := Push(context.Background(), "", WithConfig(cfg), WithLogger(quietLogger())); err == nil {
		t.Error("expected error when destination is the output directory")
	}
}
