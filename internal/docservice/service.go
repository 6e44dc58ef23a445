// Package docservice serves published documents from the manifest and the
// output tree.
package docservice

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notepub/internal/apperr"
	"github.com/starford/notepub/internal/index"
	"github.com/starford/notepub/internal/models"
	"github.com/starford/notepub/internal/parser"
	"github.com/starford/notepub/internal/pipeline"
	"github.com/starford/notepub/internal/storage"
)

// MaxPageSize bounds list and search results.
const MaxPageSize = 500

// DocumentRef identifies another published document.
type DocumentRef struct {
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Path          string `json:"path"`
	PublishedPath string `json:"published_path"`
}

// DocumentDetail is the full representation of a published document.
type DocumentDetail struct {
	models.Document
	HTML      string        `json:"html"`
	Backlinks []DocumentRef `json:"backlinks"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Slug          string   `json:"slug"`
	Title         string   `json:"title"`
	Path          string   `json:"path"`
	PublishedPath string   `json:"published_path"`
	Tags          []string `json:"tags"`
	Description   string   `json:"description,omitempty"`
	Created       string   `json:"created"`
}

// ListParams selects one page of documents.
type ListParams struct {
	Limit  int
	Offset int
	Tag    string
	Sort   string
}

// Validate checks paging bounds and the sort key.
func (p ListParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Limit, validation.Min(0), validation.Max(MaxPageSize)),
		validation.Field(&p.Offset, validation.Min(0)),
		validation.Field(&p.Sort, validation.In("title", "path", "created", "-created", "updated")),
	)
}

// Service coordinates manifest and output-store reads.
type Service struct {
	db     index.Manifest
	output storage.Provider
}

// New creates a new document service.
func New(db index.Manifest, output storage.Provider) *Service {
	return &Service{db: db, output: output}
}

// GetDocument returns the document published under slug with its rendered
// HTML and backlinks.
func (s *Service) GetDocument(_ context.Context, slug string) (*DocumentDetail, error) {
	doc, err := s.db.GetDocument(slug)
	if err != nil {
		return nil, err
	}
	data, err := s.output.Get(pipeline.OutputKey(doc.Path))
	if err != nil {
		return nil, fmt.Errorf("docservice: read output: %w", err)
	}
	_, body, found, err := parser.Split(data)
	if err != nil || !found {
		body = data
	}
	backlinks, err := s.backlinks(doc.Path)
	if err != nil {
		return nil, err
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	return &DocumentDetail{Document: *doc, HTML: string(body), Backlinks: backlinks}, nil
}

// ListDocuments returns one page of documents and the total count.
func (s *Service) ListDocuments(_ context.Context, p ListParams) ([]DocumentListItem, int, error) {
	if err := p.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	docs, total, err := s.db.ListDocuments(p.Limit, p.Offset, p.Tag, p.Sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocumentListItem, len(docs))
	for i, d := range docs {
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		items[i] = DocumentListItem{
			Slug:          d.Slug,
			Title:         d.Title,
			Path:          d.Path,
			PublishedPath: d.PublishedPath,
			Tags:          tags,
			Description:   d.Description,
			Created:       d.Created,
		}
	}
	return items, total, nil
}

// Backlinks returns the documents linking to the one published under slug.
func (s *Service) Backlinks(_ context.Context, slug string) ([]DocumentRef, error) {
	doc, err := s.db.GetDocument(slug)
	if err != nil {
		return nil, err
	}
	return s.backlinks(doc.Path)
}

func (s *Service) backlinks(path string) ([]DocumentRef, error) {
	docs, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentRef, len(docs))
	for i, d := range docs {
		out[i] = DocumentRef{Slug: d.Slug, Title: d.Title, Path: d.Path, PublishedPath: d.PublishedPath}
	}
	return out, nil
}

// Search runs a full-text query over published documents.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	err := validation.Errors{
		"q":     validation.Validate(query, validation.Required),
		"limit": validation.Validate(limit, validation.Min(0), validation.Max(MaxPageSize)),
	}.Filter()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	return s.db.Search(query, limit)
}

// Graph returns the link graph of published documents.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

// KnownSlugs returns every published slug.
func (s *Service) KnownSlugs(_ context.Context) ([]string, error) {
	return s.db.KnownSlugs()
}
