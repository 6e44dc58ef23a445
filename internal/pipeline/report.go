package pipeline

import (
	"time"

	"github.com/starford/notepub/internal/linktable"
)

// Stages attributed to a Failure.
const (
	StageRead    = "read"
	StageParse   = "parse"
	StageConvert = "convert"
	StageWrite   = "write"
)

// Failure is a per-document error. The document was dropped; the run went on.
type Failure struct {
	Path  string `json:"path"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// LinkWarning is a wiki link that fell back to "/target".
type LinkWarning struct {
	Path     string `json:"path"`
	Target   string `json:"target"`
	Fallback string `json:"fallback"`
}

// Report summarizes one run.
type Report struct {
	Discovered int `json:"discovered"`
	// Published counts documents written in this run.
	Published int `json:"published"`
	// Unchanged counts documents whose output already matched.
	Unchanged int `json:"unchanged"`
	// Skipped counts documents without a header or not marked completed.
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`

	Failures        []Failure             `json:"failures,omitempty"`
	LinkWarnings    []LinkWarning         `json:"link_warnings,omitempty"`
	SlugCollisions  map[string][]string   `json:"slug_collisions,omitempty"`
	TitleCollisions []linktable.Collision `json:"title_collisions,omitempty"`
	Duration        time.Duration         `json:"duration"`
}

func (r *Report) fail(path, stage string, err error) {
	r.Failed++
	r.Failures = append(r.Failures, Failure{Path: path, Stage: stage, Error: err.Error()})
}
