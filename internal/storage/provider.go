// Package storage defines the object store that published output is written to.
package storage

import "time"

// Object describes one stored key.
type Object struct {
	Key       string    `json:"key"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for object store operations. Keys are
// slash-separated paths relative to the store root.
type Provider interface {
	// Get returns the bytes stored at key. A missing key wraps apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	// Put atomically stores data at key, creating parents as needed.
	Put(key string, data []byte) error
	// List returns every object under prefix, sorted by key.
	List(prefix string) ([]Object, error)
	// Delete removes key.
	Delete(key string) error
}
