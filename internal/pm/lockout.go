package pm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutWindow    = 15 * time.Minute
)

// LockoutPolicy configures the failed-attempt limiter.
type LockoutPolicy struct {
	Threshold int
	Window    time.Duration
}

// DefaultLockoutPolicy returns 5 attempts per 15 minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Window: DefaultLockoutWindow}
}

// Lockout counts failed authentication attempts in a fixed window and
// rejects logins once the threshold is reached. A successful login does not
// reset the counter; it resets when the window ends.
//
// The counter is persisted through a LockoutStore so restarting the process
// does not clear it. Check and RecordFailure reload it first, so several
// processes sharing one store count against the same window. Once the
// threshold is reached, a timer resets the counter when the window ends.
type Lockout struct {
	mu     sync.Mutex
	policy LockoutPolicy
	store  LockoutStore
	clock  Clock
	logger Logger

	state  FailedAttempts
	timer  Timer
	gen    uint64
	closed bool
}

// NewLockout loads the persisted counter and re-arms the reset timer if a
// lockout is still in effect.
func NewLockout(ctx context.Context, store LockoutStore, clock Clock, logger Logger, policy LockoutPolicy) (*Lockout, error) {
	if policy.Threshold <= 0 {
		policy.Threshold = DefaultLockoutThreshold
	}
	if policy.Window <= 0 {
		policy.Window = DefaultLockoutWindow
	}

	l := &Lockout{
		policy: policy,
		store:  store,
		clock:  clock,
		logger: logger,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.reloadLocked(ctx); err != nil {
		return nil, err
	}
	if err := l.expireLocked(ctx); err != nil {
		return nil, err
	}
	l.armLocked()

	return l, nil
}

// Check returns ErrLockedOut while the threshold is reached and the window
// has not ended. An expired lockout is cleared and persisted.
func (l *Lockout) Check(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.reloadLocked(ctx); err != nil {
		return err
	}
	if err := l.expireLocked(ctx); err != nil {
		return err
	}
	if l.lockedLocked() {
		return fmt.Errorf("%w: try again after %s", ErrLockedOut,
			time.UnixMilli(l.state.EndMilliseconds).Format(time.Kitchen))
	}
	return nil
}

// RecordFailure counts one failed attempt and persists the result. The first
// failure opens a window; a failure more than one window length after the
// window start opens a fresh one.
func (l *Lockout) RecordFailure(ctx context.Context) (FailedAttempts, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.reloadLocked(ctx); err != nil {
		return l.state, err
	}

	now := l.clock.Now()
	start := time.UnixMilli(l.state.StartMilliseconds)

	if l.state.Count == 0 || now.Sub(start) > l.policy.Window {
		l.state = FailedAttempts{
			Count:             1,
			StartMilliseconds: now.UnixMilli(),
			EndMilliseconds:   now.Add(l.policy.Window).UnixMilli(),
		}
	} else {
		l.state.Count++
	}

	l.logger.Warn("failed authentication attempt", "count", l.state.Count, "threshold", l.policy.Threshold)

	if err := l.store.SaveFailedAttempts(ctx, l.state); err != nil {
		return l.state, fmt.Errorf("saving failed attempts: %w", err)
	}
	if l.lockedLocked() {
		l.logger.Warn("lockout engaged", "until", time.UnixMilli(l.state.EndMilliseconds).Format(time.RFC3339))
		l.armLocked()
	}
	return l.state, nil
}

// Attempts returns a copy of the current counter.
func (l *Lockout) Attempts() FailedAttempts {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Locked reports whether logins are currently rejected.
func (l *Lockout) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lockedLocked()
}

// Policy returns the active policy.
func (l *Lockout) Policy() LockoutPolicy {
	return l.policy
}

// Close cancels the reset timer.
func (l *Lockout) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.stopTimerLocked()
}

func (l *Lockout) lockedLocked() bool {
	return l.state.Count >= l.policy.Threshold &&
		l.clock.Now().Before(time.UnixMilli(l.state.EndMilliseconds))
}

// reloadLocked replaces the in-memory counter with the persisted one and
// re-arms the reset timer when it changed.
func (l *Lockout) reloadLocked(ctx context.Context) error {
	stored, err := l.store.LoadFailedAttempts(ctx)
	if err != nil {
		return fmt.Errorf("loading failed attempts: %w", err)
	}
	next := FailedAttempts{}
	if stored != nil {
		next = *stored
	}
	if next == l.state {
		return nil
	}
	l.state = next
	l.armLocked()
	return nil
}

// expireLocked clears a lockout whose window has ended.
func (l *Lockout) expireLocked(ctx context.Context) error {
	if l.state.Count < l.policy.Threshold {
		return nil
	}
	if l.clock.Now().Before(time.UnixMilli(l.state.EndMilliseconds)) {
		return nil
	}
	return l.resetLocked(ctx)
}

func (l *Lockout) resetLocked(ctx context.Context) error {
	l.state = FailedAttempts{}
	l.stopTimerLocked()
	if err := l.store.SaveFailedAttempts(ctx, l.state); err != nil {
		return fmt.Errorf("saving failed attempts: %w", err)
	}
	l.logger.Info("failed attempt counter reset")
	return nil
}

func (l *Lockout) armLocked() {
	l.stopTimerLocked()
	if l.closed || !l.lockedLocked() {
		return
	}

	l.gen++
	gen := l.gen
	remaining := time.UnixMilli(l.state.EndMilliseconds).Sub(l.clock.Now())
	l.timer = l.clock.AfterFunc(remaining, func() { l.onWindowEnd(gen) })
}

func (l *Lockout) onWindowEnd(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen || l.closed {
		return
	}
	l.timer = nil
	ctx := context.Background()
	if err := l.reloadLocked(ctx); err != nil {
		l.logger.Error("reloading lockout", "error", err)
		return
	}
	if err := l.expireLocked(ctx); err != nil {
		l.logger.Error("resetting lockout", "error", err)
	}
}

func (l *Lockout) stopTimerLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.gen++
}
