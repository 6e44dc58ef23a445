package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/notepub/internal/apperr"
	"github.com/starford/notepub/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// GraphNode is one published document in the link graph.
type GraphNode struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// GraphLink is a resolved link between two published documents, by slug.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

const documentColumns = `path, slug, title, published_path, checksum, tags, description, created, updated, body`

var listOrder = map[string]string{
	"":         "title COLLATE NOCASE, path",
	"title":    "title COLLATE NOCASE, path",
	"path":     "path",
	"created":  "created, path",
	"-created": "created DESC, path",
	"updated":  "updated_at DESC, path",
}

// UpsertDocument inserts or replaces a document, its FTS entry and links
// within a transaction.
func (db *DB) UpsertDocument(d models.Document) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO documents (`+documentColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			slug           = excluded.slug,
			title          = excluded.title,
			published_path = excluded.published_path,
			checksum       = excluded.checksum,
			tags           = excluded.tags,
			description    = excluded.description,
			created        = excluded.created,
			updated        = excluded.updated,
			body           = excluded.body,
			updated_at     = excluded.updated_at
	`, d.Path, d.Slug, d.Title, d.PublishedPath, d.Checksum, string(tagsJSON),
		d.Description, d.Created, d.Updated, d.Body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Path, d.Title, d.Body, tags); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(d.Links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, target_path) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range d.Links {
			if _, err := stmt.Exec(d.Path, l.Target, l.Path); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry and outgoing links.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, path); err != nil {
		return fmt.Errorf("index: delete links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetDocument returns the document published under slug, with its links.
func (db *DB) GetDocument(slug string) (*models.Document, error) {
	row := db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE slug = ? ORDER BY path LIMIT 1`, slug)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}

	rows, err := db.conn.Query(`SELECT target, target_path FROM links WHERE source = ? ORDER BY target`, d.Path)
	if err != nil {
		return nil, fmt.Errorf("index: get links: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l models.Link
		if err := rows.Scan(&l.Target, &l.Path); err != nil {
			return nil, err
		}
		d.Links = append(d.Links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocuments returns one page of documents, optionally filtered by tag,
// and the total number of matching documents.
func (db *DB) ListDocuments(limit, offset int, tag, sort string) ([]models.Document, int, error) {
	order, ok := listOrder[sort]
	if !ok {
		return nil, 0, fmt.Errorf("index: unknown sort %q", sort)
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	var args []any
	if tag != "" {
		where = ` WHERE EXISTS (SELECT 1 FROM json_each(documents.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+documentColumns+` FROM documents`+where+
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// Backlinks returns the documents that link to the document at path.
func (db *DB) Backlinks(path string) ([]models.Document, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT d.path, d.slug, d.title, d.published_path
		FROM links l
		JOIN documents d ON d.path = l.source
		WHERE l.target_path = ?
		ORDER BY d.path
	`, path)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.Path, &d.Slug, &d.Title, &d.PublishedPath); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Graph returns every published document and every resolved link between them.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	rows, err := db.conn.Query(`SELECT slug, title, path FROM documents ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	nodes := []GraphNode{}
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.Slug, &n.Title, &n.Path); err != nil {
			rows.Close()
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = db.conn.Query(`
		SELECT DISTINCT s.slug, t.slug
		FROM links l
		JOIN documents s ON s.path = l.source
		JOIN documents t ON t.path = l.target_path
		ORDER BY s.slug, t.slug
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer rows.Close()
	links := []GraphLink{}
	for rows.Next() {
		var l GraphLink
		if err := rows.Scan(&l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, rows.Err()
}

// KnownSlugs returns every slug in the manifest.
func (db *DB) KnownSlugs() ([]string, error) {
	rows, err := db.conn.Query(`SELECT slug FROM documents ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("index: known slugs: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (*models.Document, error) {
	var d models.Document
	var tagsJSON string
	if err := r.Scan(&d.Path, &d.Slug, &d.Title, &d.PublishedPath, &d.Checksum, &tagsJSON,
		&d.Description, &d.Created, &d.Updated, &d.Body); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &d.Tags); err != nil {
		return nil, fmt.Errorf("index: decode tags for %s: %w", d.Path, err)
	}
	return &d, nil
}
