package converter

import (
	"regexp"
	"strings"
)

const (
	displayOpen  = `<div class="katex-display">`
	displayClose = `</div>`
	inlineOpen   = `<span class="katex-inline">`
	inlineClose  = `</span>`
)

// Code regions are copied through untouched so "$" in code is never math.
var codeRegionRe = regexp.MustCompile(`(?is)<pre[\s>].*?</pre>|<code[\s>].*?</code>`)

// An inline span never crosses a block-level tag.
var blockTagRe = regexp.MustCompile(`(?i)</?(?:p|div|h[1-6]|ul|ol|li|blockquote|table|thead|tbody|tr|td|th|pre|hr|dl|dt|dd|section|nav)[\s/>]`)

// MarkMath wraps $$display$$ and $inline$ spans of rendered HTML in KaTeX
// containers. Display spans are matched first, left to right and without
// overlap; inline spans are then matched in the remaining text. Unpaired
// delimiters stay as they are. Math content is not altered.
func MarkMath(html string) string {
	if !strings.Contains(html, "$") {
		return html
	}
	var b strings.Builder
	b.Grow(len(html) + 64)

	last := 0
	for _, loc := range codeRegionRe.FindAllStringIndex(html, -1) {
		markDisplay(&b, html[last:loc[0]])
		b.WriteString(html[loc[0]:loc[1]])
		last = loc[1]
	}
	markDisplay(&b, html[last:])
	return b.String()
}

func markDisplay(b *strings.Builder, s string) {
	for {
		start := strings.Index(s, "$$")
		if start < 0 {
			break
		}
		end := strings.Index(s[start+2:], "$$")
		if end < 0 {
			break
		}
		markInline(b, s[:start])
		b.WriteString(displayOpen)
		b.WriteString(s[start+2 : start+2+end])
		b.WriteString(displayClose)
		s = s[start+2+end+2:]
	}
	markInline(b, s)
}

func markInline(b *strings.Builder, s string) {
	for {
		start := strings.IndexByte(s, '$')
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+1:], '$')
		if end < 0 {
			break
		}
		if end == 0 {
			// An unpaired "$$" is not an empty inline span.
			b.WriteString(s[:start+2])
			s = s[start+2:]
			continue
		}
		if blockTagRe.MatchString(s[start+1 : start+1+end]) {
			// The opener is unpaired within its block.
			b.WriteString(s[:start+1])
			s = s[start+1:]
			continue
		}
		b.WriteString(s[:start])
		b.WriteString(inlineOpen)
		b.WriteString(s[start+1 : start+1+end])
		b.WriteString(inlineClose)
		s = s[start+1+end+1:]
	}
	b.WriteString(s)
}
