// Package models defines the domain types shared by the publishing pipeline.
package models

// Frontmatter is the structured header of a source note.
//
// Pointer fields distinguish an absent key from its zero value. Timestamps
// keep their original text so that slug inputs are never normalized.
type Frontmatter struct {
	Title       string   `yaml:"title"`
	Tags        []string `yaml:"tags"`
	Summary     *string  `yaml:"summary"`
	Description *string  `yaml:"description"`
	IsCompleted *bool    `yaml:"is_completed"`
	Priority    *int     `yaml:"priority"`
	Created     string   `yaml:"created"`
	Updated     string   `yaml:"updated"`
	Category    string   `yaml:"category"`
}

// Publishable reports whether the note is marked for publication.
func (f *Frontmatter) Publishable() bool {
	return f != nil && f.IsCompleted != nil && *f.IsCompleted
}

// PublishedHeader is the header block written in front of every published
// document. Summary is published as description.
type PublishedHeader struct {
	Title       string   `yaml:"title"`
	Tags        []string `yaml:"tags,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Priority    *int     `yaml:"priority,omitempty"`
	Created     string   `yaml:"created"`
	Updated     string   `yaml:"updated,omitempty"`
	Slug        string   `yaml:"slug"`
}

// NewPublishedHeader maps a source header to its published form.
func NewPublishedHeader(fm *Frontmatter, slug string) PublishedHeader {
	h := PublishedHeader{
		Title:    fm.Title,
		Tags:     fm.Tags,
		Priority: fm.Priority,
		Created:  fm.Created,
		Updated:  fm.Updated,
		Slug:     slug,
	}
	switch {
	case fm.Summary != nil:
		h.Description = *fm.Summary
	case fm.Description != nil:
		h.Description = *fm.Description
	}
	return h
}

// FileInfo locates a published document. It is the value type of the link table.
type FileInfo struct {
	RelativeSourcePath string `json:"relative_source_path"`
	Slug               string `json:"slug"`
	PublishedPath      string `json:"published_path"`
}

// State is the lifecycle position of a document within one pipeline run.
type State int

const (
	StateDiscovered State = iota
	StateParsed
	StateSkipped
	StateRejected
	StateLinkTableReady
	StateConverted
	StateWritten
	StateFailed
)

var stateNames = [...]string{
	StateDiscovered:     "discovered",
	StateParsed:         "parsed",
	StateSkipped:        "skipped",
	StateRejected:       "rejected",
	StateLinkTableReady: "link_table_ready",
	StateConverted:      "converted",
	StateWritten:        "written",
	StateFailed:         "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Link is one outgoing wiki link of a published document. Path is the
// relative source path of the resolved target, empty when unresolved.
type Link struct {
	Target string `json:"target"`
	Path   string `json:"path,omitempty"`
}

// Document is a published note as recorded in the manifest.
type Document struct {
	Path          string   `json:"path"`
	Slug          string   `json:"slug"`
	Title         string   `json:"title"`
	PublishedPath string   `json:"published_path"`
	Checksum      string   `json:"checksum"`
	Tags          []string `json:"tags"`
	Description   string   `json:"description,omitempty"`
	Created       string   `json:"created"`
	Updated       string   `json:"updated,omitempty"`
	Body          string   `json:"-"`
	Links         []Link   `json:"links,omitempty"`
}
