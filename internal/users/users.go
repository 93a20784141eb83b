// Package users implements the user registry stored as data/users.json.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pm-go/internal/pm"
)

const (
	dataDir   = "data"
	usersPath = "data/users.json"
)

// Store is a pm.UserStore on top of a blob store.
type Store struct {
	blobs pm.BlobStore
}

// NewStore creates a Store backed by blobs.
func NewStore(blobs pm.BlobStore) *Store {
	return &Store{blobs: blobs}
}

// LoadAll returns every registered user, or an empty slice when the registry
// does not exist yet.
func (s *Store) LoadAll(ctx context.Context) ([]pm.UserIdentity, error) {
	data, err := s.blobs.Read(ctx, usersPath)
	if err != nil {
		if errors.Is(err, pm.ErrBlobNotFound) {
			return []pm.UserIdentity{}, nil
		}
		return nil, fmt.Errorf("reading users: %w", err)
	}

	var users []pm.UserIdentity
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parsing users: %w", err)
	}
	if users == nil {
		users = []pm.UserIdentity{}
	}
	return users, nil
}

// SaveAll replaces the registry after checking that ids and case-folded
// usernames are unique.
func (s *Store) SaveAll(ctx context.Context, users []pm.UserIdentity) error {
	if err := validate(users); err != nil {
		return err
	}

	if users == nil {
		users = []pm.UserIdentity{}
	}
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encoding users: %w", err)
	}

	if err := s.blobs.CreateDirectory(ctx, dataDir); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := s.blobs.Write(ctx, usersPath, data); err != nil {
		return fmt.Errorf("writing users: %w", err)
	}
	return nil
}

// FindByUsername matches ignoring case.
func (s *Store) FindByUsername(ctx context.Context, username string) (*pm.UserIdentity, error) {
	users, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if sameUsername(users[i].Username, username) {
			return &users[i], nil
		}
	}
	return nil, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*pm.UserIdentity, error) {
	users, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, nil
}

func validate(users []pm.UserIdentity) error {
	ids := make(map[string]bool, len(users))

	for i, u := range users {
		if u.ID == "" || u.Username == "" || u.Hash == "" {
			return fmt.Errorf("%w: user entries need id, username and hash", pm.ErrValidation)
		}
		if ids[u.ID] {
			return fmt.Errorf("%w: duplicate user id %s", pm.ErrValidation, u.ID)
		}
		for _, prev := range users[:i] {
			if sameUsername(prev.Username, u.Username) {
				return fmt.Errorf("%w: %s", pm.ErrDuplicateUsername, u.Username)
			}
		}
		ids[u.ID] = true
	}
	return nil
}

// sameUsername is the one case-insensitive comparison used for usernames,
// by lookups and by the uniqueness check alike.
func sameUsername(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Compile-time check that Store implements pm.UserStore interface
var _ pm.UserStore = (*Store)(nil)
