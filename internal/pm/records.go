package pm

import (
	"context"
	"fmt"
)

// RecordInput holds the editable fields of an AccountRecord.
type RecordInput struct {
	Name     string
	URL      string
	Username string
	Password string
	Notes    string
}

// Validate requires a name, username and password.
func (in RecordInput) Validate() error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case in.Username == "":
		return fmt.Errorf("%w: username is required", ErrValidation)
	case in.Password == "":
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	return nil
}

// Records returns the logged-in user's records, most recently used first.
func (s *Session) Records(ctx context.Context) ([]AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	SortByUsedAt(records)
	return records, nil
}

// AddRecord stores a new record and returns it.
func (s *Session) AddRecord(ctx context.Context, in RecordInput) (*AccountRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}

	rec := AccountRecord{
		ID:       s.ids.New(),
		Name:     in.Name,
		URL:      in.URL,
		Username: in.Username,
		Password: in.Password,
		Notes:    in.Notes,
		UsedAt:   s.clock.Now().UnixMilli(),
	}
	if err := s.saveLocked(ctx, append(records, rec)); err != nil {
		return nil, err
	}

	s.logger.Info("record added", "record_id", rec.ID)
	return &rec, nil
}

// OpenRecord returns a record and marks it as used now.
func (s *Session) OpenRecord(ctx context.Context, id string) (*AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOfRecord(records, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	records[i].UsedAt = s.clock.Now().UnixMilli()
	if err := s.saveLocked(ctx, records); err != nil {
		return nil, err
	}

	rec := records[i]
	return &rec, nil
}

// UpdateRecord replaces the editable fields of a record. UsedAt is kept.
func (s *Session) UpdateRecord(ctx context.Context, id string, in RecordInput) (*AccountRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOfRecord(records, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	records[i].Name = in.Name
	records[i].URL = in.URL
	records[i].Username = in.Username
	records[i].Password = in.Password
	records[i].Notes = in.Notes
	if err := s.saveLocked(ctx, records); err != nil {
		return nil, err
	}

	s.logger.Info("record updated", "record_id", id)
	rec := records[i]
	return &rec, nil
}

// RemoveRecord deletes a record.
func (s *Session) RemoveRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	i := indexOfRecord(records, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	records = append(records[:i], records[i+1:]...)
	if err := s.saveLocked(ctx, records); err != nil {
		return err
	}

	s.logger.Info("record removed", "record_id", id)
	return nil
}

// ImportRecords appends records to the vault. Each imported record gets a
// fresh id and UsedAt set to now. Returns the number of records added.
func (s *Session) ImportRecords(ctx context.Context, in []RecordInput) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now().UnixMilli()
	for _, r := range in {
		records = append(records, AccountRecord{
			ID:       s.ids.New(),
			Name:     r.Name,
			URL:      r.URL,
			Username: r.Username,
			Password: r.Password,
			Notes:    r.Notes,
			UsedAt:   now,
		})
	}
	if err := s.saveLocked(ctx, records); err != nil {
		return 0, err
	}

	s.logger.Info("records imported", "count", len(in))
	return len(in), nil
}

func (s *Session) loadLocked(ctx context.Context) ([]AccountRecord, error) {
	if err := s.requireLoggedIn(); err != nil {
		return nil, err
	}
	s.touchLocked()

	records, err := s.vaults.Load(ctx, s.user.ID, s.key)
	if err != nil {
		return nil, fmt.Errorf("loading vault: %w", err)
	}
	return records, nil
}

func (s *Session) saveLocked(ctx context.Context, records []AccountRecord) error {
	if err := s.vaults.Save(ctx, records, s.user.ID, s.key); err != nil {
		return fmt.Errorf("saving vault: %w", err)
	}
	return nil
}

func indexOfRecord(records []AccountRecord, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
