package pm

import (
	"sort"
	"time"
)

// UserIdentity is one entry of the user registry. Hash is the encoded
// password hash (salt followed by the hex SHA-256 digest).
type UserIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Hash     string `json:"hash"`
}

// AccountRecord is one stored credential. UsedAt is Unix milliseconds.
type AccountRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Notes    string `json:"notes"`
	UsedAt   int64  `json:"usedAt"`
}

// UsedTime returns UsedAt as a time.Time.
func (r AccountRecord) UsedTime() time.Time {
	return time.UnixMilli(r.UsedAt)
}

// SortByUsedAt orders records most recently used first. Records with equal
// UsedAt keep their relative order.
func SortByUsedAt(records []AccountRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UsedAt > records[j].UsedAt
	})
}

// FailedAttempts is the persisted lockout counter. Timestamps are Unix
// milliseconds; zero values mean no window is open.
type FailedAttempts struct {
	Count             int   `json:"count"`
	StartMilliseconds int64 `json:"startMilliseconds"`
	EndMilliseconds   int64 `json:"endMilliseconds"`
}

// SessionState is the authentication state of a Session.
type SessionState int

const (
	StateLoggedOut SessionState = iota
	StateAuthenticating
	StateLoggedIn
)

func (s SessionState) String() string {
	switch s {
	case StateLoggedOut:
		return "logged-out"
	case StateAuthenticating:
		return "authenticating"
	case StateLoggedIn:
		return "logged-in"
	default:
		return "unknown"
	}
}

// LogoutReason tells an OnLogout callback why the session ended.
type LogoutReason string

const (
	LogoutRequested LogoutReason = "logout"
	LogoutIdle      LogoutReason = "idle"
	LogoutLockout   LogoutReason = "lockout"
	LogoutDeleted   LogoutReason = "deleted"
	LogoutClosed    LogoutReason = "closed"
)
