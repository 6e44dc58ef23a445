// Package parser splits a note into its YAML frontmatter and Markdown body
// and decodes the frontmatter into the typed schema.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/notepub/internal/models"
)

const delim = "---"

var (
	// ErrUnterminated is returned when an opening marker has no matching close.
	ErrUnterminated = errors.New("frontmatter: unterminated header")
	// ErrDecode is returned when the header does not match the schema.
	ErrDecode = errors.New("frontmatter: decode failed")
)

var wikilinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// Options tunes decoding.
type Options struct {
	// Strict rejects header keys that are not part of the schema.
	Strict bool
}

// Parse extracts and decodes the frontmatter of data. A note without a header
// yields a nil Frontmatter, the untouched data as body, and no error.
func Parse(data []byte, opts Options) (*models.Frontmatter, []byte, error) {
	header, body, found, err := Split(data)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, data, nil
	}
	fm, err := Decode(header, opts)
	if err != nil {
		return nil, nil, err
	}
	return fm, body, nil
}

// Split separates the header from the body.
//
// The header must open the document (after optional leading whitespace) with
// a line holding only "---". It is closed by the next line holding only "---"
// that is itself terminated by a newline; a closing marker at end of input is
// not accepted.
func Split(data []byte) (header, body []byte, found bool, err error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, nil, false, nil
	}

	rest := trimmed[len(delim):]
	switch {
	case bytes.HasPrefix(rest, []byte("\n")):
		rest = rest[1:]
	case bytes.HasPrefix(rest, []byte("\r\n")):
		rest = rest[2:]
	default:
		// "----" or "--- text" is not a header opener.
		return nil, nil, false, nil
	}

	pos := 0
	for {
		nl := bytes.IndexByte(rest[pos:], '\n')
		if nl < 0 {
			return nil, nil, true, ErrUnterminated
		}
		line := bytes.TrimSuffix(rest[pos:pos+nl], []byte("\r"))
		if string(line) == delim {
			return rest[:pos], rest[pos+nl+1:], true, nil
		}
		pos += nl + 1
	}
}

// Decode unmarshals and validates a header block.
func Decode(header []byte, opts Options) (*models.Frontmatter, error) {
	var fm models.Frontmatter

	dec := yaml.NewDecoder(bytes.NewReader(header))
	dec.KnownFields(opts.Strict)
	if err := dec.Decode(&fm); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := fm.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &fm, nil
}

// ExtractLinks returns deduplicated wiki-link targets in order of appearance,
// with aliases stripped.
func ExtractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target, _, _ := strings.Cut(m[1], "|")
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}
