package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/notepub/internal/apperr"
	"github.com/starford/notepub/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func doc(path, slug, title string, links ...models.Link) models.Document {
	return models.Document{
		Path:          path,
		Slug:          slug,
		Title:         title,
		PublishedPath: "/" + path[:len(path)-len(filepath.Ext(path))] + ".html",
		Checksum:      "cs-" + slug,
		Tags:          []string{},
		Created:       "2024-01-01",
		Body:          "body of " + title,
		Links:         links,
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	d := doc("hello.md", "aaaaaaaaaaaa", "Hello World")
	d.Checksum = "abc123"
	if err := db.UpsertDocument(d); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestGetDocument(t *testing.T) {
	db := testDB(t)
	d := doc("notes/a.md", "aaaaaaaaaaaa", "A",
		models.Link{Target: "B", Path: "b.md"},
		models.Link{Target: "Missing"})
	d.Tags = []string{"go", "notes"}
	d.Description = "about a"
	if err := db.UpsertDocument(d); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetDocument("aaaaaaaaaaaa")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Path != "notes/a.md" || got.Title != "A" || got.PublishedPath != "/notes/a.html" {
		t.Errorf("document = %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Description != "about a" {
		t.Errorf("tags/description = %v %q", got.Tags, got.Description)
	}
	if len(got.Links) != 2 || got.Links[0].Target != "B" || got.Links[0].Path != "b.md" || got.Links[1].Path != "" {
		t.Errorf("links = %+v", got.Links)
	}

	if _, err := db.GetDocument("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	db := testDB(t)
	c := doc("c.md", "cccccccccccc", "charlie")
	c.Tags = []string{"x"}
	c.Created = "2024-03-01"
	a := doc("a.md", "aaaaaaaaaaaa", "Alpha")
	a.Tags = []string{"x", "y"}
	a.Created = "2024-02-01"
	b := doc("b.md", "bbbbbbbbbbbb", "bravo")
	b.Created = "2024-01-01"
	for _, d := range []models.Document{c, a, b} {
		if err := db.UpsertDocument(d); err != nil {
			t.Fatal(err)
		}
	}

	all, total, err := db.ListDocuments(10, 0, "", "")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 3 || len(all) != 3 || all[0].Title != "Alpha" || all[1].Title != "bravo" {
		t.Errorf("default order: total=%d %+v", total, all)
	}

	page, total, _ := db.ListDocuments(1, 1, "", "-created")
	if total != 3 || len(page) != 1 || page[0].Path != "a.md" {
		t.Errorf("paged -created: total=%d %+v", total, page)
	}

	tagged, total, _ := db.ListDocuments(10, 0, "y", "")
	if total != 1 || len(tagged) != 1 || tagged[0].Path != "a.md" {
		t.Errorf("tag filter: total=%d %+v", total, tagged)
	}

	if _, _, err := db.ListDocuments(10, 0, "", "bogus"); err == nil {
		t.Error("expected error for unknown sort")
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(doc("a.md", "aaaaaaaaaaaa", "A", models.Link{Target: "B", Path: "b.md"}))
	_ = db.UpsertDocument(doc("c.md", "cccccccccccc", "C", models.Link{Target: "b", Path: "b.md"}))
	_ = db.UpsertDocument(doc("b.md", "bbbbbbbbbbbb", "B"))

	bl, err := db.Backlinks("b.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 || bl[0].Path != "a.md" || bl[1].Slug != "cccccccccccc" {
		t.Fatalf("backlinks = %+v", bl)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(doc("del.md", "dddddddddddd", "Del", models.Link{Target: "T", Path: "target.md"}))

	if err := db.DeleteDocument("del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("target.md")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	old := doc("up.md", "uuuuuuuuuuuu", "Old", models.Link{Target: "X", Path: "x.md"})
	old.Checksum = "1"
	updated := doc("up.md", "uuuuuuuuuuuu", "New", models.Link{Target: "Y", Path: "y.md"})
	updated.Checksum = "2"
	_ = db.UpsertDocument(old)
	_ = db.UpsertDocument(updated)

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	_ = db.UpsertDocument(doc("x.md", "xxxxxxxxxxxx", "X"))
	_ = db.UpsertDocument(doc("y.md", "yyyyyyyyyyyy", "Y"))
	if bl, _ := db.Backlinks("x.md"); len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	if bl, _ := db.Backlinks("y.md"); len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestGraph(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(doc("a.md", "aaaaaaaaaaaa", "A",
		models.Link{Target: "B", Path: "b.md"},
		models.Link{Target: "Nowhere"}))
	_ = db.UpsertDocument(doc("b.md", "bbbbbbbbbbbb", "B"))

	nodes, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("nodes = %+v", nodes)
	}
	if len(links) != 1 || links[0].Source != "aaaaaaaaaaaa" || links[0].Target != "bbbbbbbbbbbb" {
		t.Errorf("links = %+v", links)
	}
}

func TestKnownSlugs(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(doc("b.md", "bbbbbbbbbbbb", "B"))
	_ = db.UpsertDocument(doc("a.md", "aaaaaaaaaaaa", "A"))

	slugs, err := db.KnownSlugs()
	if err != nil {
		t.Fatal(err)
	}
	if len(slugs) != 2 || slugs[0] != "aaaaaaaaaaaa" || slugs[1] != "bbbbbbbbbbbb" {
		t.Errorf("slugs = %v", slugs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	d := doc("s.md", "ssssssssssss", "Search Me")
	d.Body = "uniqueword appears here"
	_ = db.UpsertDocument(d)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" || results[0].Slug != "ssssssssssss" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestRecord(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := doc("a.md", "aaaaaaaaaaaa", "A")
	b := doc("b.md", "bbbbbbbbbbbb", "B")
	if err := db.Record(ctx, []models.Document{a, b}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	a.Checksum = "changed"
	a.Title = "A2"
	if err := db.Record(ctx, []models.Document{a}); err != nil {
		t.Fatalf("second Record: %v", err)
	}

	sums, _ := db.AllChecksums()
	if len(sums) != 1 || sums["a.md"] != "changed" {
		t.Errorf("checksums = %v", sums)
	}
	got, err := db.GetDocument("aaaaaaaaaaaa")
	if err != nil || got.Title != "A2" {
		t.Errorf("document = %+v, %v", got, err)
	}
}
