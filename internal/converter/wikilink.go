package converter

import (
	"regexp"
	"strings"

	"github.com/starford/notepub/internal/models"
)

var wikiLinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// Resolver maps a wiki-link target to a published document.
type Resolver interface {
	Lookup(target string) (models.FileInfo, bool)
}

// Warning is a non-fatal problem found while converting a document.
type Warning struct {
	Target   string `json:"target"`
	Fallback string `json:"fallback"`
}

// ResolveLinks rewrites [[target]] and [[target|display]] into anchors.
// Targets missing from r get a "/target" href and a Warning. Href and
// display text are escaped after resolution.
func ResolveLinks(content string, r Resolver) (string, []Warning) {
	var warnings []Warning
	out := wikiLinkRe.ReplaceAllStringFunc(content, func(m string) string {
		inner := m[2 : len(m)-2]
		target, display, hasDisplay := strings.Cut(inner, "|")
		target = strings.TrimSpace(target)
		if hasDisplay {
			display = strings.TrimSpace(display)
		} else {
			display = target
		}

		var href string
		if r != nil {
			if info, ok := r.Lookup(target); ok {
				href = info.PublishedPath
			}
		}
		if href == "" {
			href = "/" + target
			warnings = append(warnings, Warning{Target: target, Fallback: href})
		}
		return `<a href="` + escapeHTML(href) + `">` + escapeHTML(display) + `</a>`
	})
	return out, warnings
}

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
