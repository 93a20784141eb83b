package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pm-go/internal/pm"
)

// ErrInjected is returned by FailingBlobStore for paths set to fail.
var ErrInjected = errors.New("injected failure")

// FailingBlobStore wraps a BlobStore and fails writes to chosen paths.
type FailingBlobStore struct {
	pm.BlobStore

	mu        sync.Mutex
	failWrite map[string]bool
	writes    []string
}

// NewFailingBlobStore wraps inner. No paths fail until FailWrites is called.
func NewFailingBlobStore(inner pm.BlobStore) *FailingBlobStore {
	return &FailingBlobStore{BlobStore: inner, failWrite: make(map[string]bool)}
}

// FailWrites makes every subsequent Write to a path with the given prefix
// return ErrInjected. An empty prefix clears all injected failures.
func (s *FailingBlobStore) FailWrites(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prefix == "" {
		s.failWrite = make(map[string]bool)
		return
	}
	s.failWrite[prefix] = true
}

// Writes returns the paths written so far, including failed attempts.
func (s *FailingBlobStore) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

func (s *FailingBlobStore) Write(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	s.writes = append(s.writes, path)
	fail := false
	for prefix := range s.failWrite {
		if strings.HasPrefix(path, prefix) {
			fail = true
		}
	}
	s.mu.Unlock()

	if fail {
		return ErrInjected
	}
	return s.BlobStore.Write(ctx, path, data)
}
