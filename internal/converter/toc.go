package converter

import (
	"html"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
)

// Heading is one entry of the table of contents.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
	// HTML is the heading text as rendered, with typographic entities.
	HTML string `json:"html,omitempty"`
}

// HeadingSlug lowercases s, keeps letters and digits, folds runs of
// whitespace and '-' into single hyphens and drops everything else.
func HeadingSlug(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			pendingDash = true
		}
	}
	if b.Len() == 0 {
		return "section"
	}
	return b.String()
}

// assignHeadingIDs sets a unique id attribute on every heading in document
// order and returns them.
func assignHeadingIDs(doc ast.Node, src []byte) []Heading {
	var headings []Heading
	seen := make(map[string]int)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title, markup := headingText(h, src)
		id := HeadingSlug(title)
		if count, dup := seen[id]; dup {
			seen[id] = count + 1
			id = id + "-" + strconv.Itoa(count+1)
		} else {
			seen[id] = 0
		}
		h.SetAttributeString("id", []byte(id))
		headings = append(headings, Heading{Level: h.Level, Text: title, ID: id, HTML: markup})
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// headingText returns the plain text of h and its HTML form. Typographer
// substitutions arrive as *ast.String nodes holding entities such as
// "&rsquo;"; the plain text carries the decoded character.
func headingText(h *ast.Heading, src []byte) (text, markup string) {
	var plain, rich strings.Builder
	_ = ast.Walk(h, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			seg := string(t.Segment.Value(src))
			plain.WriteString(seg)
			rich.WriteString(escapeHTML(seg))
			if t.SoftLineBreak() || t.HardLineBreak() {
				plain.WriteByte(' ')
				rich.WriteByte(' ')
			}
		case *ast.String:
			v := string(t.Value)
			if t.IsCode() || t.IsRaw() {
				plain.WriteString(html.UnescapeString(v))
				rich.WriteString(v)
			} else {
				plain.WriteString(v)
				rich.WriteString(escapeHTML(v))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(plain.String()), strings.TrimSpace(rich.String())
}

// RenderTOC renders headings as a flat nav list.
func RenderTOC(headings []Heading) string {
	var b strings.Builder
	b.WriteString("<nav class=\"toc\">\n<ul>\n")
	for _, h := range headings {
		b.WriteString(`<li class="toc-h`)
		b.WriteString(strconv.Itoa(h.Level))
		b.WriteString(`"><a href="#`)
		b.WriteString(escapeHTML(h.ID))
		b.WriteString(`">`)
		if h.HTML != "" {
			b.WriteString(h.HTML)
		} else {
			b.WriteString(escapeHTML(h.Text))
		}
		b.WriteString("</a></li>\n")
	}
	b.WriteString("</ul>\n</nav>\n")
	return b.String()
}
