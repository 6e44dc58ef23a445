package index

import (
	"context"

	"github.com/starford/notepub/internal/models"
)

// Manifest defines the read and write operations over published documents.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Manifest interface {
	UpsertDocument(d models.Document) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(slug string) (*models.Document, error)
	ListDocuments(limit, offset int, tag, sort string) ([]models.Document, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(path string) ([]models.Document, error)
	Graph() ([]GraphNode, []GraphLink, error)
	KnownSlugs() ([]string, error)
	AllChecksums() (map[string]string, error)
	Record(ctx context.Context, published []models.Document) error
	Close() error
}

// Verify *DB satisfies Manifest at compile time.
var _ Manifest = (*DB)(nil)
