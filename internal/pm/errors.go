package pm

import "errors"

var (
	// ErrValidation is returned for empty or malformed input. It never
	// counts as a failed login attempt.
	ErrValidation = errors.New("validation failed")
	// ErrAuthentication covers both unknown usernames and wrong passwords.
	ErrAuthentication = errors.New("invalid username or password")
	// ErrDuplicateUsername is returned when a username clashes with an
	// existing one, ignoring case.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrLockedOut is returned while the failed-attempt threshold is reached
	// and the lockout window has not elapsed.
	ErrLockedOut = errors.New("too many failed attempts")
	// ErrNotLoggedIn is returned by operations that need an active session.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrConcurrentWrite is returned when a save for the same user is
	// already in flight.
	ErrConcurrentWrite = errors.New("save already in progress")
	// ErrVaultUnreadable is returned when a vault blob exists but cannot be
	// decrypted or parsed with the given key.
	ErrVaultUnreadable = errors.New("vault is unreadable")
	// ErrBlobNotFound is returned by BlobStore.Read for a missing path.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrRecordNotFound is returned when no record has the requested id.
	ErrRecordNotFound = errors.New("record not found")
)
