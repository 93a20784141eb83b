package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"pm-go/internal/blobstore"
	"pm-go/internal/config"
	"pm-go/internal/database"
	"pm-go/internal/encryption"
	"pm-go/internal/pm"
	"pm-go/internal/transfer"
	"pm-go/internal/users"
	"pm-go/internal/vault"
)

// ErrAmbiguousRecord is returned when a record reference matches more than
// one record by name.
var ErrAmbiguousRecord = errors.New("record name is ambiguous")

// PMApp is the application layer between the CLI and the pm Session.
// It constructs all dependencies from config, exposes high-level operations,
// records state-changing operations in the database and manages the DB
// lifecycle on Close.
type PMApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	blobs     pm.BlobStore
	session   *pm.Session
	encryptor pm.ExportEncryptor
	clock     pm.Clock
	logger    *slogAdapter
	op        *Operation
	logFile   *os.File
}

// NewPMApp creates a fully wired PMApp from the given config.
// operation identifies the CLI command being run (e.g. "AddRecord", "Export").
// When verbose is set, log records are also written to stderr.
// The caller must call Close when done.
func NewPMApp(ctx context.Context, cfg *config.Config, operation string, verbose bool) (*PMApp, error) {
	clock := pm.RealClock{}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	blobs, err := blobstore.NewBlobStoreFromConfig(ctx, cfg.Store, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Export)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, verbose)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	lockout, err := pm.NewLockout(ctx, blobstore.NewStateStore(blobs), clock, adapter, pm.LockoutPolicy{
		Threshold: cfg.Session.LockoutThreshold,
		Window:    time.Duration(cfg.Session.LockoutWindowMinutes) * time.Minute,
	})
	if err != nil {
		logFile.Close()
		db.Close()
		return nil, fmt.Errorf("loading lockout state: %w", err)
	}

	session := pm.NewSession(
		users.NewStore(blobs),
		vault.NewStore(blobs, adapter),
		lockout,
		adapter,
		clock,
		pm.UUIDGenerator{},
		time.Duration(cfg.Session.IdleTimeoutMinutes)*time.Minute,
	)

	a := &PMApp{
		cfg:       cfg,
		db:        db,
		blobs:     blobs,
		session:   session,
		encryptor: enc,
		clock:     clock,
		logger:    adapter,
		op:        NewOperation(operation, clock.Now()),
		logFile:   logFile,
	}
	a.OnLogout(nil)
	return a, nil
}

// Session returns the underlying session.
func (a *PMApp) Session() *pm.Session {
	return a.session
}

// Config returns the configuration the app was built from.
func (a *PMApp) Config() *config.Config {
	return a.cfg
}

// Encryptor returns the export encryptor selected by the config.
func (a *PMApp) Encryptor() pm.ExportEncryptor {
	return a.encryptor
}

// OnLogout registers f to be called whenever the session ends. f may be nil.
// It can be called from a timer goroutine.
func (a *PMApp) OnLogout(f func(pm.LogoutReason)) {
	a.session.OnLogout(func(reason pm.LogoutReason) {
		a.logger.Info("logged out", "reason", string(reason))
		if f != nil {
			f(reason)
		}
	})
}

// track persists the operation before a state-changing call and records
// its outcome and the user it ran as.
func (a *PMApp) track(ctx context.Context, f func() error) error {
	if err := a.op.persist(ctx, a.db); err != nil {
		return err
	}
	err := f()
	if err != nil {
		a.op.Fail()
	}
	if u := a.session.CurrentUser(); u != nil {
		a.op.UserID = u.ID
	}
	return err
}

// Register creates a user and logs it in.
func (a *PMApp) Register(ctx context.Context, username, password, confirm string) (*pm.UserIdentity, error) {
	var user *pm.UserIdentity
	err := a.track(ctx, func() error {
		var err error
		user, _, err = a.session.RegisterConfirmed(ctx, username, password, confirm)
		return err
	})
	return user, err
}

// Login authenticates a user. Failed attempts are recorded as failed
// operations.
func (a *PMApp) Login(ctx context.Context, username, password string) (*pm.UserIdentity, error) {
	var user *pm.UserIdentity
	err := a.track(ctx, func() error {
		var err error
		user, _, err = a.session.Login(ctx, username, password)
		return err
	})
	return user, err
}

// Logout ends the session.
func (a *PMApp) Logout() {
	a.session.Logout()
}

// Records returns the logged-in user's records, most recently used first.
func (a *PMApp) Records(ctx context.Context) ([]pm.AccountRecord, error) {
	return a.session.Records(ctx)
}

// FindRecord resolves ref to a record by exact id or, failing that, by name
// ignoring case.
func (a *PMApp) FindRecord(ctx context.Context, ref string) (*pm.AccountRecord, error) {
	records, err := a.session.Records(ctx)
	if err != nil {
		return nil, err
	}

	var matches []pm.AccountRecord
	for _, r := range records {
		if r.ID == ref {
			return &r, nil
		}
		if strings.EqualFold(r.Name, ref) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", pm.ErrRecordNotFound, ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d records, use the id", ErrAmbiguousRecord, ref, len(matches))
	}
}

// OpenRecord resolves ref and marks the record as used.
func (a *PMApp) OpenRecord(ctx context.Context, ref string) (*pm.AccountRecord, error) {
	var rec *pm.AccountRecord
	err := a.track(ctx, func() error {
		found, err := a.FindRecord(ctx, ref)
		if err != nil {
			return err
		}
		rec, err = a.session.OpenRecord(ctx, found.ID)
		return err
	})
	return rec, err
}

// AddRecord stores a new record.
func (a *PMApp) AddRecord(ctx context.Context, in pm.RecordInput) (*pm.AccountRecord, error) {
	var rec *pm.AccountRecord
	err := a.track(ctx, func() error {
		var err error
		rec, err = a.session.AddRecord(ctx, in)
		return err
	})
	return rec, err
}

// UpdateRecord resolves ref and replaces the record's fields.
func (a *PMApp) UpdateRecord(ctx context.Context, ref string, in pm.RecordInput) (*pm.AccountRecord, error) {
	var rec *pm.AccountRecord
	err := a.track(ctx, func() error {
		found, err := a.FindRecord(ctx, ref)
		if err != nil {
			return err
		}
		rec, err = a.session.UpdateRecord(ctx, found.ID, in)
		return err
	})
	return rec, err
}

// RemoveRecord resolves ref and deletes the record.
func (a *PMApp) RemoveRecord(ctx context.Context, ref string) error {
	return a.track(ctx, func() error {
		found, err := a.FindRecord(ctx, ref)
		if err != nil {
			return err
		}
		return a.session.RemoveRecord(ctx, found.ID)
	})
}

// ChangeCredentials updates the logged-in user's username and/or password.
func (a *PMApp) ChangeCredentials(ctx context.Context, change pm.CredentialChange) (*pm.UserIdentity, error) {
	var user *pm.UserIdentity
	err := a.track(ctx, func() error {
		var err error
		user, _, err = a.session.ChangeCredentials(ctx, change)
		return err
	})
	return user, err
}

// DeleteAccount removes the logged-in user, their vault and their operation
// history.
func (a *PMApp) DeleteAccount(ctx context.Context, password string) error {
	current := a.session.CurrentUser()
	err := a.track(ctx, func() error {
		if err := a.session.DeleteAccount(ctx, password); err != nil {
			return err
		}
		if err := a.db.DeleteOperationsForUser(ctx, current.ID); err != nil {
			return fmt.Errorf("deleting history: %w", err)
		}
		return nil
	})
	if err == nil {
		a.op.UserID = ""
	}
	return err
}

// Export writes the logged-in user's records as CSV to w, protected with
// passphrase by the configured encryptor. Returns the number of records.
func (a *PMApp) Export(ctx context.Context, w io.Writer, passphrase string) (int, error) {
	if a.encryptor.NeedsPassphrase() && passphrase == "" {
		return 0, fmt.Errorf("%w: export passphrase is required", pm.ErrValidation)
	}

	var n int
	err := a.track(ctx, func() error {
		records, err := a.session.Records(ctx)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := transfer.Export(&buf, records); err != nil {
			return fmt.Errorf("formatting csv: %w", err)
		}
		if err := a.encryptor.Encrypt(&buf, w, passphrase); err != nil {
			return fmt.Errorf("encrypting export: %w", err)
		}
		n = len(records)
		return nil
	})
	if err == nil {
		a.logger.Info("records exported", "count", n)
	}
	return n, err
}

// Import reads CSV from r and appends the records to the logged-in user's
// vault. A non-empty passphrase means r was produced by Export and is
// decrypted first; otherwise r is plain CSV.
func (a *PMApp) Import(ctx context.Context, r io.Reader, passphrase string) (int, error) {
	var n int
	err := a.track(ctx, func() error {
		in := r
		if passphrase != "" {
			var buf bytes.Buffer
			if err := a.encryptor.Decrypt(r, &buf, passphrase); err != nil {
				return fmt.Errorf("decrypting import: %w", err)
			}
			in = &buf
		}

		parsed, err := transfer.Import(in)
		if err != nil {
			return err
		}
		n, err = a.session.ImportRecords(ctx, parsed)
		return err
	})
	return n, err
}

// History returns the most recent operations of the logged-in user.
func (a *PMApp) History(ctx context.Context, limit int) ([]*database.Operation, error) {
	u := a.session.CurrentUser()
	if u == nil {
		return nil, pm.ErrNotLoggedIn
	}
	a.session.Touch()
	return a.db.ListOperations(ctx, u.ID, limit)
}

// Close ends the session, finalizes the operation record and closes all
// resources.
func (a *PMApp) Close() error {
	var firstErr error

	if err := a.session.Close(); err != nil {
		firstErr = fmt.Errorf("closing session: %w", err)
	}

	if err := a.op.finish(context.Background(), a.db, a.clock.Now()); err != nil && firstErr == nil {
		firstErr = err
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
