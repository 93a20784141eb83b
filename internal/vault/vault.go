// Package vault stores each user's account records as a single encrypted
// blob at data/data-<userID>.bin. A vault re-encrypted under a new key is
// first staged at data/staged-<userID>.bin and promoted once the new key is
// committed; Load finishes a promotion interrupted by a crash.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"pm-go/internal/envelope"
	"pm-go/internal/keys"
	"pm-go/internal/pm"
)

const dataDir = "data"

// Path returns the blob path of a user's vault.
func Path(userID string) string {
	return fmt.Sprintf("%s/data-%s.bin", dataDir, userID)
}

// StagedPath returns the blob path of a user's staged vault.
func StagedPath(userID string) string {
	return fmt.Sprintf("%s/staged-%s.bin", dataDir, userID)
}

// Store is a pm.VaultStore on top of a blob store. It allows one in-flight
// save per user; a concurrent save for the same user is rejected rather than
// queued.
type Store struct {
	blobs  pm.BlobStore
	logger pm.Logger

	mu     sync.Mutex
	saving map[string]bool
}

// NewStore creates a Store backed by blobs.
func NewStore(blobs pm.BlobStore, logger pm.Logger) *Store {
	return &Store{
		blobs:  blobs,
		logger: logger,
		saving: make(map[string]bool),
	}
}

// Load decrypts the user's vault. A missing vault yields an empty slice; a
// vault that exists but cannot be decrypted or parsed is logged and returned
// as an error wrapping pm.ErrVaultUnreadable.
//
// When key opens a staged vault instead, the credential change that staged it
// was committed but not promoted; the staged vault is promoted and returned.
// A staged vault that key does not open was never committed and is left for
// the next Stage to overwrite.
func (s *Store) Load(ctx context.Context, userID string, key *keys.SessionKey) ([]pm.AccountRecord, error) {
	records, err := s.load(ctx, Path(userID), key)
	switch {
	case err == nil:
		return records, nil
	case errors.Is(err, pm.ErrBlobNotFound), errors.Is(err, pm.ErrVaultUnreadable):
	default:
		return nil, err
	}

	staged, stagedErr := s.load(ctx, StagedPath(userID), key)
	switch {
	case stagedErr == nil:
		s.logger.Warn("finishing interrupted vault re-encryption", "user_id", userID)
		if err := s.Promote(ctx, userID); err != nil {
			return nil, err
		}
		return staged, nil
	case errors.Is(stagedErr, pm.ErrBlobNotFound), errors.Is(stagedErr, pm.ErrVaultUnreadable):
	default:
		return nil, stagedErr
	}

	if errors.Is(err, pm.ErrBlobNotFound) {
		return []pm.AccountRecord{}, nil
	}
	s.logger.Error("vault could not be opened", "user_id", userID, "error", err)
	return nil, err
}

// load reads and decrypts the blob at path. A missing blob is returned as
// pm.ErrBlobNotFound.
func (s *Store) load(ctx context.Context, path string, key *keys.SessionKey) ([]pm.AccountRecord, error) {
	blob, err := s.blobs.Read(ctx, path)
	if err != nil {
		if errors.Is(err, pm.ErrBlobNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("reading vault: %w", err)
	}

	plaintext, err := envelope.Decrypt(blob, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pm.ErrVaultUnreadable, err)
	}

	var records []pm.AccountRecord
	if err := json.Unmarshal(plaintext, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", pm.ErrVaultUnreadable, err)
	}
	if records == nil {
		records = []pm.AccountRecord{}
	}
	return records, nil
}

// Save serializes, encrypts and atomically replaces the user's vault.
func (s *Store) Save(ctx context.Context, records []pm.AccountRecord, userID string, key *keys.SessionKey) error {
	if err := s.write(ctx, Path(userID), records, userID, key); err != nil {
		return err
	}
	s.logger.Debug("vault saved", "user_id", userID, "records", len(records))
	return nil
}

// Stage writes records encrypted under key to the staged path, leaving the
// current vault untouched until Promote.
func (s *Store) Stage(ctx context.Context, records []pm.AccountRecord, userID string, key *keys.SessionKey) error {
	if err := s.write(ctx, StagedPath(userID), records, userID, key); err != nil {
		return fmt.Errorf("staging vault: %w", err)
	}
	s.logger.Debug("vault staged", "user_id", userID, "records", len(records))
	return nil
}

func (s *Store) write(ctx context.Context, path string, records []pm.AccountRecord, userID string, key *keys.SessionKey) error {
	if !s.begin(userID) {
		return fmt.Errorf("%w: user %s", pm.ErrConcurrentWrite, userID)
	}
	defer s.end(userID)

	if records == nil {
		records = []pm.AccountRecord{}
	}
	plaintext, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	blob, err := envelope.Encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("encrypting vault: %w", err)
	}

	if err := s.blobs.CreateDirectory(ctx, dataDir); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := s.blobs.Write(ctx, path, blob); err != nil {
		return fmt.Errorf("writing vault: %w", err)
	}
	return nil
}

// Promote replaces the user's vault with the staged one and removes the
// staged copy.
func (s *Store) Promote(ctx context.Context, userID string) error {
	if !s.begin(userID) {
		return fmt.Errorf("%w: user %s", pm.ErrConcurrentWrite, userID)
	}
	defer s.end(userID)

	blob, err := s.blobs.Read(ctx, StagedPath(userID))
	if err != nil {
		return fmt.Errorf("reading staged vault: %w", err)
	}
	if err := s.blobs.Write(ctx, Path(userID), blob); err != nil {
		return fmt.Errorf("promoting staged vault: %w", err)
	}
	if err := s.blobs.Delete(ctx, StagedPath(userID)); err != nil {
		return fmt.Errorf("removing staged vault: %w", err)
	}
	return nil
}

// DiscardStaged removes the user's staged vault, if any.
func (s *Store) DiscardStaged(ctx context.Context, userID string) error {
	if err := s.blobs.Delete(ctx, StagedPath(userID)); err != nil {
		return fmt.Errorf("discarding staged vault: %w", err)
	}
	return nil
}

// DeleteVault removes the user's vault and any staged copy. Deleting a
// missing vault succeeds.
func (s *Store) DeleteVault(ctx context.Context, userID string) error {
	if err := s.blobs.Delete(ctx, Path(userID)); err != nil {
		return fmt.Errorf("deleting vault: %w", err)
	}
	return s.DiscardStaged(ctx, userID)
}

func (s *Store) begin(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving[userID] {
		return false
	}
	s.saving[userID] = true
	return true
}

func (s *Store) end(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saving, userID)
}

// Compile-time check that Store implements pm.VaultStore interface
var _ pm.VaultStore = (*Store)(nil)
