// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid argument")
	// ErrStructural marks failures that abort a whole pipeline run.
	ErrStructural = errors.New("structural error")
)
