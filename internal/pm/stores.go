package pm

import (
	"context"

	"pm-go/internal/keys"
)

// BlobStore is the persistence backend. Paths are slash-separated and
// relative to the store root, e.g. "data/users.json".
type BlobStore interface {
	Exists(ctx context.Context, path string) (bool, error)

	// Read returns ErrBlobNotFound when path does not exist.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write creates or replaces path atomically: readers see either the
	// previous content or the new content, never a partial write.
	Write(ctx context.Context, path string, data []byte) error

	// Delete removes path. Deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error

	// CreateDirectory ensures a directory exists. Backends without
	// directories treat it as a no-op.
	CreateDirectory(ctx context.Context, path string) error
}

// UserStore persists the user registry.
type UserStore interface {
	LoadAll(ctx context.Context) ([]UserIdentity, error)
	// SaveAll replaces the registry. It rejects duplicate ids and usernames
	// that clash ignoring case.
	SaveAll(ctx context.Context, users []UserIdentity) error
	// FindByUsername matches ignoring case. Returns nil if not found.
	FindByUsername(ctx context.Context, username string) (*UserIdentity, error)
	// FindByID returns nil if not found.
	FindByID(ctx context.Context, id string) (*UserIdentity, error)
}

// VaultStore persists each user's records as an encrypted blob.
type VaultStore interface {
	// Load returns an empty slice when the user has no vault yet and an
	// error wrapping ErrVaultUnreadable when it cannot be decrypted. A
	// staged vault that key opens is promoted and returned.
	Load(ctx context.Context, userID string, key *keys.SessionKey) ([]AccountRecord, error)

	// Save encrypts and replaces the user's vault. Returns
	// ErrConcurrentWrite if another save for userID is in flight.
	Save(ctx context.Context, records []AccountRecord, userID string, key *keys.SessionKey) error

	// DeleteVault removes the user's vault. Idempotent.
	DeleteVault(ctx context.Context, userID string) error

	// Stage writes records under key next to the current vault without
	// replacing it.
	Stage(ctx context.Context, records []AccountRecord, userID string, key *keys.SessionKey) error

	// Promote replaces the vault with the staged one.
	Promote(ctx context.Context, userID string) error

	// DiscardStaged removes the staged vault. Idempotent.
	DiscardStaged(ctx context.Context, userID string) error
}

// LockoutStore persists the failed-attempt counter across restarts.
type LockoutStore interface {
	// LoadFailedAttempts returns nil when nothing has been stored.
	LoadFailedAttempts(ctx context.Context) (*FailedAttempts, error)
	SaveFailedAttempts(ctx context.Context, attempts FailedAttempts) error
}
