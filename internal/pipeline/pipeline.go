// Package pipeline sequences scan, parse, link-table and convert stages and
// writes the published tree.
//
// Scanning and the link table are hard barriers: every document is parsed
// before the table is built, and the table is complete before any body is
// converted. Within the parse and convert stages documents are processed by
// a bounded worker pool. Per-document errors are collected in the Report;
// only structural errors abort a run.
package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notepub/internal/converter"
	"github.com/starford/notepub/internal/models"
	"github.com/starford/notepub/internal/parser"
	"github.com/starford/notepub/internal/scanner"
	"github.com/starford/notepub/internal/storage"
)

// Options configures a Pipeline.
type Options struct {
	SourceRoot string
	Scan       scanner.Options
	Parse      parser.Options
	// BasePath prefixes published paths. Defaults to "/".
	BasePath string
	// Workers bounds the parse and convert pools. Defaults to GOMAXPROCS.
	Workers int
	TOC     bool
}

// Recorder receives every document published by a run, written or unchanged.
type Recorder interface {
	Record(ctx context.Context, published []models.Document) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder records published documents after each run.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// writableStore is implemented by stores that can verify up front that
// writes will succeed.
type writableStore interface {
	CheckWritable() error
}

// Pipeline is reusable across runs; it keeps no state between them.
type Pipeline struct {
	cfg      Options
	store    storage.Provider
	logger   *slog.Logger
	recorder Recorder
	conv     *converter.Converter
}

// New creates a Pipeline writing to store.
func New(cfg Options, store storage.Provider, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	p := &Pipeline{
		cfg:    cfg,
		store:  store,
		logger: logger,
		conv:   converter.New(converter.Options{TOC: cfg.TOC}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes a full build. The returned error is non-nil only for
// structural failures or cancellation; everything else is in the Report.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	if ws, ok := p.store.(writableStore); ok {
		if err := ws.CheckWritable(); err != nil {
			return nil, err
		}
	}

	plan, err := p.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	report := plan.Report

	outputs := p.convertAll(ctx, plan)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var published []models.Document
	for i, out := range outputs {
		doc := plan.Documents[i]
		for _, w := range out.warnings {
			report.LinkWarnings = append(report.LinkWarnings, LinkWarning{
				Path: doc.Path, Target: w.Target, Fallback: w.Fallback,
			})
		}
		switch out.state {
		case models.StateWritten:
			if out.unchanged {
				report.Unchanged++
			} else {
				report.Published++
			}
			published = append(published, out.record)
		case models.StateFailed:
			report.fail(doc.Path, out.stage, out.err)
		}
	}

	if p.recorder != nil {
		if err := p.recorder.Record(ctx, published); err != nil {
			p.logger.Warn("pipeline: record manifest failed", slog.String("error", err.Error()))
		}
	}

	report.Duration = time.Since(start)
	p.logSummary(report, published)
	return report, nil
}

func (p *Pipeline) logSummary(r *Report, published []models.Document) {
	for _, d := range published {
		p.logger.Debug("pipeline: published",
			slog.String("title", d.Title),
			slog.String("slug", d.Slug),
			slog.String("path", d.PublishedPath))
	}
	p.logger.Info("pipeline: run complete",
		slog.Int("discovered", r.Discovered),
		slog.Int("published", r.Published),
		slog.Int("unchanged", r.Unchanged),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", r.Failed),
		slog.Int("link_warnings", len(r.LinkWarnings)),
		slog.Duration("duration", r.Duration))
}

// runPool calls fn for every index in [0, n) on at most workers goroutines.
func runPool(ctx context.Context, n, workers int, fn func(i int)) error {
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
