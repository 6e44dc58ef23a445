// Package converter turns a Markdown body into publishable HTML: wiki-link
// resolution, CommonMark+GFM rendering, optional table of contents and
// KaTeX math marking, in that order.
package converter

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Options controls optional conversion passes.
type Options struct {
	// TOC assigns heading ids and prepends a table-of-contents nav.
	TOC bool
}

// Result is the converted document.
type Result struct {
	HTML     string
	Warnings []Warning
	Headings []Heading
}

// Converter is safe for concurrent use.
type Converter struct {
	opts Options
}

// New creates a Converter.
func New(opts Options) *Converter {
	return &Converter{opts: opts}
}

// Convert resolves wiki links against r, renders the body and marks math.
func (c *Converter) Convert(body string, r Resolver) (*Result, error) {
	linked, warnings := ResolveLinks(body, r)

	rendered, headings, err := c.render([]byte(linked))
	if err != nil {
		return nil, err
	}
	out := MarkMath(rendered)
	if c.opts.TOC && len(headings) > 0 {
		out = RenderTOC(headings) + out
	}
	return &Result{HTML: out, Warnings: warnings, Headings: headings}, nil
}

// Render converts Markdown to HTML without link or math passes.
func Render(markdown string) (string, error) {
	out, _, err := (&Converter{}).render([]byte(markdown))
	return out, err
}

func (c *Converter) render(src []byte) (string, []Heading, error) {
	md := newEngine()
	doc := md.Parser().Parse(text.NewReader(src))

	var headings []Heading
	if c.opts.TOC {
		headings = assignHeadingIDs(doc, src)
	}

	var buf bytes.Buffer
	buf.Grow(len(src) * 2)
	if err := md.Renderer().Render(&buf, src, doc); err != nil {
		return "", nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), headings, nil
}

// newEngine builds a fresh goldmark instance per call; conversions run on
// many goroutines at once.
func newEngine() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Footnote,
			extension.Strikethrough,
			extension.TaskList,
			extension.Typographer,
		),
		goldmark.WithRendererOptions(
			// Resolved wiki links are raw anchors and must pass through.
			html.WithUnsafe(),
		),
	)
}
