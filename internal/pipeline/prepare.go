package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/notepub/internal/linktable"
	"github.com/starford/notepub/internal/models"
	"github.com/starford/notepub/internal/parser"
	"github.com/starford/notepub/internal/scanner"
	"github.com/starford/notepub/internal/slug"
)

// Planned is a publishable document that passed the parse stage.
type Planned struct {
	Path        string
	Slug        string
	Frontmatter *models.Frontmatter
	Body        string
	Info        models.FileInfo
	State       models.State
}

// Plan is the outcome of the stages before conversion: the publishable
// documents in scan order and the complete, immutable link table.
type Plan struct {
	Documents []Planned
	Table     *linktable.Table
	Report    *Report
}

type parsed struct {
	fm    *models.Frontmatter
	body  []byte
	state models.State
	stage string
	err   error
}

// Prepare scans the source tree, parses every candidate and builds the link
// table over the publishable ones.
func (p *Pipeline) Prepare(ctx context.Context) (*Plan, error) {
	paths, err := scanner.Scan(p.cfg.SourceRoot, p.cfg.Scan, p.logger)
	if err != nil {
		return nil, err
	}
	report := &Report{Discovered: len(paths)}
	p.logger.Debug("pipeline: scanned", slog.Int("documents", len(paths)))

	results := make([]parsed, len(paths))
	if err := runPool(ctx, len(paths), p.cfg.Workers, func(i int) {
		results[i] = p.parseOne(paths[i])
	}); err != nil {
		return nil, err
	}

	plan := &Plan{Report: report}
	entries := make([]linktable.Entry, 0, len(paths))
	slugs := make(map[string]string, len(paths))
	for i, res := range results {
		rel := paths[i]
		switch res.state {
		case models.StateFailed, models.StateRejected:
			p.logger.Warn("pipeline: "+res.stage+" failed",
				slog.String("path", rel),
				slog.String("error", res.err.Error()))
			report.fail(rel, res.stage, res.err)
			continue
		case models.StateSkipped:
			report.Skipped++
			continue
		}

		s := slug.Generate(res.fm.Title, rel, res.fm.Created)
		slugs[rel] = s
		entries = append(entries, linktable.Entry{RelativePath: rel, Title: res.fm.Title, Slug: s})
		plan.Documents = append(plan.Documents, Planned{
			Path:        rel,
			Slug:        s,
			Frontmatter: res.fm,
			Body:        string(res.body),
			State:       models.StateParsed,
		})
	}

	plan.Table = linktable.Build(entries, linktable.Options{BasePath: p.cfg.BasePath}, p.logger)
	report.TitleCollisions = plan.Table.Duplicates()

	for i := range plan.Documents {
		d := &plan.Documents[i]
		d.Info = models.FileInfo{
			RelativeSourcePath: d.Path,
			Slug:               d.Slug,
			PublishedPath:      linktable.PublishedPath(p.cfg.BasePath, d.Path),
		}
		d.State = models.StateLinkTableReady
	}

	if collisions := slug.Collisions(slugs); len(collisions) > 0 {
		report.SlugCollisions = collisions
		for s, ps := range collisions {
			p.logger.Warn("pipeline: slug collision", slog.String("slug", s), slog.Any("paths", ps))
		}
	}
	return plan, nil
}

func (p *Pipeline) parseOne(rel string) parsed {
	data, err := os.ReadFile(filepath.Join(p.cfg.SourceRoot, filepath.FromSlash(rel)))
	if err != nil {
		return parsed{state: models.StateFailed, stage: StageRead, err: fmt.Errorf("read source: %w", err)}
	}
	fm, body, err := parser.Parse(data, p.cfg.Parse)
	if err != nil {
		return parsed{state: models.StateRejected, stage: StageParse, err: err}
	}
	if fm == nil {
		p.logger.Debug("pipeline: skipped", slog.String("path", rel), slog.String("reason", "no frontmatter"))
		return parsed{state: models.StateSkipped}
	}
	if !fm.Publishable() {
		p.logger.Debug("pipeline: skipped", slog.String("path", rel), slog.String("reason", "not completed"))
		return parsed{state: models.StateSkipped}
	}
	return parsed{fm: fm, body: body, state: models.StateParsed}
}
