package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/notepub/internal/apperr"
	"github.com/starford/notepub/internal/checksum"
	"github.com/starford/notepub/internal/converter"
	"github.com/starford/notepub/internal/linktable"
	"github.com/starford/notepub/internal/models"
	"github.com/starford/notepub/internal/parser"
)

type output struct {
	state     models.State
	unchanged bool
	stage     string
	err       error
	warnings  []converter.Warning
	record    models.Document
}

func (p *Pipeline) convertAll(ctx context.Context, plan *Plan) []output {
	outputs := make([]output, len(plan.Documents))
	_ = runPool(ctx, len(plan.Documents), p.cfg.Workers, func(i int) {
		outputs[i] = p.publishOne(plan.Documents[i], plan.Table)
	})
	return outputs
}

func (p *Pipeline) publishOne(d Planned, table *linktable.Table) output {
	res, err := p.conv.Convert(d.Body, table)
	if err != nil {
		p.logger.Warn("pipeline: convert failed", slog.String("path", d.Path), slog.String("error", err.Error()))
		return output{state: models.StateFailed, stage: StageConvert, err: err}
	}
	for _, w := range res.Warnings {
		p.logger.Warn("pipeline: unresolved link",
			slog.String("path", d.Path),
			slog.String("target", w.Target),
			slog.String("fallback", w.Fallback))
	}

	header := models.NewPublishedHeader(d.Frontmatter, d.Slug)
	content, err := RenderDocument(header, res.HTML)
	if err != nil {
		p.logger.Warn("pipeline: encode header failed", slog.String("path", d.Path), slog.String("error", err.Error()))
		return output{state: models.StateFailed, stage: StageConvert, err: err, warnings: res.Warnings}
	}

	key := OutputKey(d.Path)
	sum := checksum.Sum(content)
	unchanged, err := p.write(key, content, sum)
	if err != nil {
		p.logger.Warn("pipeline: write failed", slog.String("path", d.Path), slog.String("error", err.Error()))
		return output{state: models.StateFailed, stage: StageWrite, err: err, warnings: res.Warnings}
	}

	return output{
		state:     models.StateWritten,
		unchanged: unchanged,
		warnings:  res.Warnings,
		record: models.Document{
			Path:          d.Path,
			Slug:          d.Slug,
			Title:         header.Title,
			PublishedPath: d.Info.PublishedPath,
			Checksum:      sum,
			Tags:          header.Tags,
			Description:   header.Description,
			Created:       header.Created,
			Updated:       header.Updated,
			Body:          d.Body,
			Links:         resolveLinks(d.Body, table),
		},
	}
}

// write stores content at key unless the stored copy already matches.
func (p *Pipeline) write(key string, content []byte, sum string) (unchanged bool, err error) {
	existing, err := p.store.Get(key)
	switch {
	case err == nil:
		if checksum.Equal(existing, sum) {
			return true, nil
		}
	case !errors.Is(err, apperr.ErrNotFound):
		return false, err
	}
	return false, p.store.Put(key, content)
}

func resolveLinks(body string, table *linktable.Table) []models.Link {
	targets := parser.ExtractLinks(body)
	if len(targets) == 0 {
		return nil
	}
	links := make([]models.Link, 0, len(targets))
	for _, target := range targets {
		l := models.Link{Target: target}
		if info, ok := table.Lookup(target); ok {
			l.Path = info.RelativeSourcePath
		}
		links = append(links, l)
	}
	return links
}

// OutputKey maps a source path to its output key: same relative path with
// the extension replaced by ".html".
func OutputKey(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".html"
}

// RenderDocument assembles the published file: the YAML header between
// "---" lines followed by the HTML body.
func RenderDocument(h models.PublishedHeader, html string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(html) + 256)
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	buf.WriteString("---\n")
	buf.WriteString(html)
	return buf.Bytes(), nil
}
