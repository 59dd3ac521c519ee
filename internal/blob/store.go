// Package blob keeps encoded image buffers addressable by "blob:" URLs.
//
// A URL stays valid until Release is called; the store never evicts on its own.
// Holders that forget to release keep the buffer alive for the life of the Store.
package blob

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Scheme prefixes every URL handed out by a Store.
const Scheme = "blob:"

// DefaultOrigin is used when NewStore is given an empty origin.
const DefaultOrigin = "image-optimizer"

type entry struct {
	data     []byte
	mimeType string
}

// Store maps blob URLs to byte buffers.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	origin string

	mu      sync.RWMutex
	entries map[string]entry
	bytes   int64
}

// NewStore creates an empty store whose URLs look like "blob:<origin>/<uuid>".
func NewStore(origin string) *Store {
	if origin == "" {
		origin = DefaultOrigin
	}
	return &Store{
		origin:  strings.TrimSuffix(origin, "/"),
		entries: make(map[string]entry),
	}
}

// Register stores data and returns a new URL for it. The slice is kept as is;
// callers must not modify it afterwards.
func (s *Store) Register(data []byte, mimeType string) string {
	url := Scheme + s.origin + "/" + uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[url] = entry{data: data, mimeType: mimeType}
	s.bytes += int64(len(data))
	return url
}

// Open returns the buffer and MIME type behind url.
func (s *Store) Open(url string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[url]
	return e.data, e.mimeType, ok
}

// Release forgets url. It reports whether the URL was registered; releasing twice
// is harmless.
func (s *Store) Release(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[url]
	if !ok {
		return false
	}
	delete(s.entries, url)
	s.bytes -= int64(len(e.data))
	return true
}

// Len returns the number of live URLs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Bytes returns the total size of all live buffers.
func (s *Store) Bytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes
}
