package api

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/starford/notepub/internal/apperr"
	"github.com/starford/notepub/internal/parser"
	"github.com/starford/notepub/internal/storage"
)

// PageHandler serves published pages from the output store.
// Requests are mapped onto keys under basePath; the YAML header of HTML
// pages is stripped before the body is written.
type PageHandler struct {
	store    storage.Provider
	basePath string
}

// NewPageHandler creates a PageHandler. An empty basePath means "/".
func NewPageHandler(store storage.Provider, basePath string) *PageHandler {
	if basePath == "" {
		basePath = "/"
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	return &PageHandler{store: store, basePath: basePath}
}

// pageKey maps a request path to an output store key.
// Returns false for paths outside basePath or containing "..".
func (p *PageHandler) pageKey(urlPath string) (string, bool) {
	if !strings.HasPrefix(urlPath+"/", p.basePath) {
		return "", false
	}
	rel := strings.TrimPrefix(urlPath, strings.TrimSuffix(p.basePath, "/"))
	rel = strings.TrimPrefix(rel, "/")
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return "", false
		}
	}
	if rel == "" || strings.HasSuffix(rel, "/") {
		return rel + "index.html", true
	}
	if path.Ext(rel) == "" {
		return rel + ".html", true
	}
	return rel, true
}

// ServeHTTP handles GET requests for published pages.
func (p *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}
	key, ok := p.pageKey(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := p.store.Get(key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("serve page failed", slog.String("key", key), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ctype := mime.TypeByExtension(path.Ext(key))
	if path.Ext(key) == ".html" {
		if _, body, found, err := parser.Split(data); err == nil && found {
			data = body
		}
		ctype = "text/html; charset=utf-8"
	}
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}
