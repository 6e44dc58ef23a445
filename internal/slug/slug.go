// Package slug derives short content-addressed identifiers for documents.
package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"path/filepath"
	"sort"
)

// Length is the number of hex characters kept from the digest.
const Length = 12

const separator = "/"

// Generate returns the slug for the identity tuple (title, relativePath,
// created). Inputs are hashed verbatim; case and whitespace are significant.
// relativePath is converted to forward slashes so the result does not depend
// on the host OS.
func Generate(title, relativePath, created string) string {
	input := title + separator + filepath.ToSlash(relativePath) + separator + created
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:Length]
}

// IsUnique reports whether s is absent from known.
func IsUnique(s string, known []string) bool {
	for _, k := range known {
		if k == s {
			return false
		}
	}
	return true
}

// Collisions groups paths by slug and returns only the slugs shared by more
// than one path. Path lists are sorted.
func Collisions(byPath map[string]string) map[string][]string {
	groups := make(map[string][]string, len(byPath))
	for p, s := range byPath {
		groups[s] = append(groups[s], path.Clean(p))
	}
	out := make(map[string][]string)
	for s, paths := range groups {
		if len(paths) > 1 {
			sort.Strings(paths)
			out[s] = paths
		}
	}
	return out
}
