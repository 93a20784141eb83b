package pm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pm-go/internal/keys"
)

// DefaultIdleTimeout logs a session out after 15 minutes without interaction.
const DefaultIdleTimeout = 15 * time.Minute

// CredentialChange describes a username and/or password update. An empty
// NewUsername keeps the current username; an empty NewPassword keeps the
// current password and key.
type CredentialChange struct {
	CurrentPassword string
	NewUsername     string
	NewPassword     string
	ConfirmPassword string
}

// Session is the authenticated session. It holds at most one logged-in user
// and that user's session key, which never leaves memory and is destroyed
// on logout. All methods are safe for concurrent use.
type Session struct {
	users   UserStore
	vaults  VaultStore
	lockout *Lockout
	logger  Logger
	clock   Clock
	ids     IDGenerator

	idleTimeout time.Duration

	mu        sync.Mutex
	state     SessionState
	user      *UserIdentity
	key       *keys.SessionKey
	idleTimer Timer
	idleGen   uint64
	onLogout  func(LogoutReason)
}

// NewSession creates a logged-out session. A non-positive idleTimeout uses
// DefaultIdleTimeout.
func NewSession(users UserStore, vaults VaultStore, lockout *Lockout, logger Logger, clock Clock, ids IDGenerator, idleTimeout time.Duration) *Session {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Session{
		users:       users,
		vaults:      vaults,
		lockout:     lockout,
		logger:      logger,
		clock:       clock,
		ids:         ids,
		idleTimeout: idleTimeout,
	}
}

// OnLogout registers a callback invoked after the session ends for any
// reason. It runs without the session lock held.
func (s *Session) OnLogout(f func(LogoutReason)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = f
}

// Register creates a new user and logs it in. Any current session is ended
// first.
func (s *Session) Register(ctx context.Context, username, password string) (*UserIdentity, *keys.SessionKey, error) {
	if username == "" {
		return nil, nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if password == "" {
		return nil, nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	s.mu.Lock()
	notify := s.endLocked(LogoutRequested)
	user, key, err := s.registerLocked(ctx, username, password)
	s.mu.Unlock()
	notify()

	return user, key, err
}

// RegisterConfirmed is Register with a password confirmation check.
func (s *Session) RegisterConfirmed(ctx context.Context, username, password, confirm string) (*UserIdentity, *keys.SessionKey, error) {
	if password != confirm {
		return nil, nil, fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	return s.Register(ctx, username, password)
}

func (s *Session) registerLocked(ctx context.Context, username, password string) (*UserIdentity, *keys.SessionKey, error) {
	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up username: %w", err)
	}
	if existing != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
	}

	salt, err := keys.GenerateSalt()
	if err != nil {
		return nil, nil, err
	}
	key, err := keys.DeriveSessionKey(password, salt)
	if err != nil {
		return nil, nil, err
	}

	user := UserIdentity{
		ID:       s.ids.New(),
		Username: username,
		Hash:     keys.EncodeHash(password, salt),
	}

	all, err := s.users.LoadAll(ctx)
	if err != nil {
		key.Destroy()
		return nil, nil, fmt.Errorf("loading users: %w", err)
	}
	if err := s.users.SaveAll(ctx, append(all, user)); err != nil {
		key.Destroy()
		return nil, nil, fmt.Errorf("saving users: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	s.beginLocked(&user, key)

	u := user
	return &u, key, nil
}

// Login authenticates a user. Empty fields fail validation without counting
// as an attempt. While locked out the credentials are not checked at all.
// Unknown usernames and wrong passwords both count as failed attempts.
func (s *Session) Login(ctx context.Context, username, password string) (*UserIdentity, *keys.SessionKey, error) {
	if username == "" {
		return nil, nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if password == "" {
		return nil, nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	s.mu.Lock()
	notify := s.endLocked(LogoutRequested)
	user, key, err := s.loginLocked(ctx, username, password)
	if err != nil {
		s.state = StateLoggedOut
	}
	s.mu.Unlock()
	notify()

	return user, key, err
}

func (s *Session) loginLocked(ctx context.Context, username, password string) (*UserIdentity, *keys.SessionKey, error) {
	s.state = StateAuthenticating

	if err := s.lockout.Check(ctx); err != nil {
		s.logger.Warn("login rejected", "reason", "locked out")
		return nil, nil, err
	}

	found, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up username: %w", err)
	}
	if found == nil || !keys.VerifyPassword(password, found.Hash) {
		return nil, nil, s.failedAttempt(ctx)
	}

	salt, err := keys.SaltFromHash(found.Hash)
	if err != nil {
		return nil, nil, err
	}
	key, err := keys.DeriveSessionKey(password, salt)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in", "user_id", found.ID)
	s.beginLocked(found, key)

	u := *found
	return &u, key, nil
}

// failedAttempt records a failure and returns ErrAuthentication, joined with
// the persistence error if the counter could not be saved.
func (s *Session) failedAttempt(ctx context.Context) error {
	if _, err := s.lockout.RecordFailure(ctx); err != nil {
		s.logger.Error("recording failed attempt", "error", err)
		return errors.Join(ErrAuthentication, err)
	}
	return ErrAuthentication
}

// verifyCurrentLocked checks password against the logged-in user. A failure
// is recorded; reaching the threshold ends the session. While locked out,
// possibly by another process sharing the lockout state, the password is not
// checked and the session ends.
func (s *Session) verifyCurrentLocked(ctx context.Context, password string) (*UserIdentity, func(), error) {
	if s.state != StateLoggedIn {
		return nil, func() {}, ErrNotLoggedIn
	}
	if password == "" {
		return nil, func() {}, fmt.Errorf("%w: current password is required", ErrValidation)
	}
	if err := s.lockout.Check(ctx); err != nil {
		if errors.Is(err, ErrLockedOut) {
			s.logger.Warn("session ended while locked out", "user_id", s.user.ID)
			return nil, s.endLocked(LogoutLockout), err
		}
		return nil, func() {}, err
	}

	current, err := s.users.FindByID(ctx, s.user.ID)
	if err != nil {
		return nil, func() {}, fmt.Errorf("looking up user: %w", err)
	}
	if current == nil {
		return nil, func() {}, fmt.Errorf("%w: user %s no longer exists", ErrAuthentication, s.user.ID)
	}

	if !keys.VerifyPassword(password, current.Hash) {
		err := s.failedAttempt(ctx)
		if s.lockout.Locked() {
			s.logger.Warn("session ended after too many failed attempts", "user_id", current.ID)
			return nil, s.endLocked(LogoutLockout), errors.Join(err, ErrLockedOut)
		}
		return nil, func() {}, err
	}
	return current, func() {}, nil
}

// ChangeCredentials updates the username and/or password of the logged-in
// user. When the password changes, the vault is re-encrypted under the new
// key. The re-encrypted vault is staged first and only replaces the current
// one after the user registry is saved, so a vault the stored hash can open
// always exists.
func (s *Session) ChangeCredentials(ctx context.Context, change CredentialChange) (*UserIdentity, *keys.SessionKey, error) {
	s.mu.Lock()
	user, key, notify, err := s.changeCredentialsLocked(ctx, change)
	s.mu.Unlock()
	notify()

	return user, key, err
}

func (s *Session) changeCredentialsLocked(ctx context.Context, change CredentialChange) (*UserIdentity, *keys.SessionKey, func(), error) {
	current, notify, err := s.verifyCurrentLocked(ctx, change.CurrentPassword)
	if err != nil {
		return nil, nil, notify, err
	}
	s.touchLocked()

	updated := *current
	if change.NewUsername != "" && change.NewUsername != current.Username {
		clash, err := s.users.FindByUsername(ctx, change.NewUsername)
		if err != nil {
			return nil, nil, notify, fmt.Errorf("looking up username: %w", err)
		}
		if clash != nil && clash.ID != current.ID {
			return nil, nil, notify, fmt.Errorf("%w: %s", ErrDuplicateUsername, change.NewUsername)
		}
		updated.Username = change.NewUsername
	}

	newKey := s.key
	if change.NewPassword != "" {
		if change.NewPassword != change.ConfirmPassword {
			return nil, nil, notify, fmt.Errorf("%w: passwords do not match", ErrValidation)
		}
		salt, err := keys.GenerateSalt()
		if err != nil {
			return nil, nil, notify, err
		}
		newKey, err = keys.DeriveSessionKey(change.NewPassword, salt)
		if err != nil {
			return nil, nil, notify, err
		}
		updated.Hash = keys.EncodeHash(change.NewPassword, salt)
	}

	if err := s.commitCredentialsLocked(ctx, updated, newKey); err != nil {
		if newKey != s.key {
			newKey.Destroy()
		}
		return nil, nil, notify, err
	}

	if newKey != s.key {
		s.key.Destroy()
		s.key = newKey
	}
	s.user = &updated
	s.logger.Info("credentials changed", "user_id", updated.ID,
		"username_changed", updated.Username != current.Username,
		"password_changed", updated.Hash != current.Hash)

	u := updated
	return &u, s.key, notify, nil
}

// commitCredentialsLocked stages the re-encrypted vault, saves the registry
// and then promotes the staged vault. A failed registry write discards the
// staged vault. Once the registry holds the new hash, a failed promotion is
// finished by the next Load under the new key.
func (s *Session) commitCredentialsLocked(ctx context.Context, updated UserIdentity, newKey *keys.SessionKey) error {
	reencrypt := newKey != s.key

	if reencrypt {
		records, err := s.vaults.Load(ctx, updated.ID, s.key)
		if err != nil {
			return fmt.Errorf("loading vault for re-encryption: %w", err)
		}
		if err := s.vaults.Stage(ctx, records, updated.ID, newKey); err != nil {
			return fmt.Errorf("re-encrypting vault: %w", err)
		}
	}

	all, err := s.users.LoadAll(ctx)
	if err == nil {
		for i := range all {
			if all[i].ID == updated.ID {
				all[i] = updated
			}
		}
		err = s.users.SaveAll(ctx, all)
	}
	if err != nil {
		if reencrypt {
			if dErr := s.vaults.DiscardStaged(ctx, updated.ID); dErr != nil {
				s.logger.Error("discarding staged vault", "user_id", updated.ID, "error", dErr)
			}
		}
		return fmt.Errorf("saving users: %w", err)
	}

	if reencrypt {
		if err := s.vaults.Promote(ctx, updated.ID); err != nil {
			s.logger.Warn("staged vault not promoted, next load retries", "user_id", updated.ID, "error", err)
		}
	}
	return nil
}

// DeleteAccount removes the logged-in user and their vault after verifying
// the password, then logs out.
func (s *Session) DeleteAccount(ctx context.Context, currentPassword string) error {
	s.mu.Lock()
	notify, err := s.deleteAccountLocked(ctx, currentPassword)
	s.mu.Unlock()
	notify()

	return err
}

func (s *Session) deleteAccountLocked(ctx context.Context, password string) (func(), error) {
	current, notify, err := s.verifyCurrentLocked(ctx, password)
	if err != nil {
		return notify, err
	}

	all, err := s.users.LoadAll(ctx)
	if err != nil {
		return notify, fmt.Errorf("loading users: %w", err)
	}
	remaining := make([]UserIdentity, 0, len(all))
	for _, u := range all {
		if u.ID != current.ID {
			remaining = append(remaining, u)
		}
	}
	if err := s.users.SaveAll(ctx, remaining); err != nil {
		return notify, fmt.Errorf("saving users: %w", err)
	}
	if err := s.vaults.DeleteVault(ctx, current.ID); err != nil {
		s.logger.Error("deleting vault", "user_id", current.ID, "error", err)
		return s.endLocked(LogoutDeleted), fmt.Errorf("deleting vault: %w", err)
	}

	s.logger.Info("user deleted", "user_id", current.ID)
	return s.endLocked(LogoutDeleted), nil
}

// Logout ends the session and destroys the key. Safe to call when logged out.
func (s *Session) Logout() {
	s.mu.Lock()
	notify := s.endLocked(LogoutRequested)
	s.mu.Unlock()
	notify()
}

// Close ends the session and stops all timers. The Lockout is closed too.
func (s *Session) Close() error {
	s.mu.Lock()
	notify := s.endLocked(LogoutClosed)
	s.mu.Unlock()
	notify()

	s.lockout.Close()
	return nil
}

// Touch records user interaction and restarts the idle timer.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
}

// State returns the current authentication state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentUser returns a copy of the logged-in identity, or nil.
func (s *Session) CurrentUser() *UserIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Key returns the session key, or nil when logged out.
func (s *Session) Key() *keys.SessionKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Lockout returns the limiter used by this session.
func (s *Session) Lockout() *Lockout {
	return s.lockout
}

func (s *Session) beginLocked(user *UserIdentity, key *keys.SessionKey) {
	u := *user
	s.user = &u
	s.key = key
	s.state = StateLoggedIn
	s.touchLocked()
}

// endLocked clears the session and returns a function that runs the
// OnLogout callback. Callers invoke it after releasing the lock.
func (s *Session) endLocked(reason LogoutReason) func() {
	s.stopIdleTimerLocked()
	if s.state != StateLoggedIn {
		s.state = StateLoggedOut
		return func() {}
	}

	userID := s.user.ID
	s.key.Destroy()
	s.key = nil
	s.user = nil
	s.state = StateLoggedOut
	s.logger.Info("session ended", "user_id", userID, "reason", string(reason))

	cb := s.onLogout
	return func() {
		if cb != nil {
			cb(reason)
		}
	}
}

func (s *Session) touchLocked() {
	if s.state != StateLoggedIn {
		return
	}
	s.stopIdleTimerLocked()
	gen := s.idleGen
	s.idleTimer = s.clock.AfterFunc(s.idleTimeout, func() { s.onIdle(gen) })
}

func (s *Session) stopIdleTimerLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	s.idleGen++
}

func (s *Session) onIdle(gen uint64) {
	s.mu.Lock()
	if gen != s.idleGen || s.state != StateLoggedIn {
		s.mu.Unlock()
		return
	}
	s.logger.Info("idle timeout", "after", s.idleTimeout.String())
	notify := s.endLocked(LogoutIdle)
	s.mu.Unlock()
	notify()
}

// requireLoggedIn is called by record operations with the lock held.
func (s *Session) requireLoggedIn() error {
	if s.state != StateLoggedIn {
		return ErrNotLoggedIn
	}
	return nil
}
