package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pm-go/internal/pm"
)

// FailedAttemptsPath is where the lockout counter is kept. It is plain JSON
// and holds no secrets.
const FailedAttemptsPath = "state/failedAttemptsData.json"

// StateStore keeps small plaintext application state in a blob store.
type StateStore struct {
	blobs pm.BlobStore
}

// NewStateStore creates a StateStore on top of blobs.
func NewStateStore(blobs pm.BlobStore) *StateStore {
	return &StateStore{blobs: blobs}
}

// LoadFailedAttempts returns nil when no counter has been stored.
func (s *StateStore) LoadFailedAttempts(ctx context.Context) (*pm.FailedAttempts, error) {
	data, err := s.blobs.Read(ctx, FailedAttemptsPath)
	if err != nil {
		if errors.Is(err, pm.ErrBlobNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading failed attempts: %w", err)
	}

	var fa pm.FailedAttempts
	if err := json.Unmarshal(data, &fa); err != nil {
		return nil, fmt.Errorf("parsing failed attempts: %w", err)
	}
	return &fa, nil
}

func (s *StateStore) SaveFailedAttempts(ctx context.Context, fa pm.FailedAttempts) error {
	data, err := json.Marshal(fa)
	if err != nil {
		return fmt.Errorf("encoding failed attempts: %w", err)
	}
	if err := s.blobs.CreateDirectory(ctx, "state"); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := s.blobs.Write(ctx, FailedAttemptsPath, data); err != nil {
		return fmt.Errorf("writing failed attempts: %w", err)
	}
	return nil
}

// Compile-time check that StateStore implements pm.LockoutStore interface
var _ pm.LockoutStore = (*StateStore)(nil)
