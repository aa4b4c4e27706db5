// Package lockout implements the per-user login lockout policy.
package lockout

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by Check.
var (
	ErrLocked            = errors.New("account locked")
	ErrTemporarilyLocked = errors.New("account temporarily locked")
)

// TemporaryLockError carries the time left on a temporary lock.
type TemporaryLockError struct {
	Remaining time.Duration
}

func (e *TemporaryLockError) Error() string {
	return fmt.Sprintf("account temporarily locked for %.2f more minutes", e.Remaining.Minutes())
}

func (e *TemporaryLockError) Is(target error) bool { return target == ErrTemporarilyLocked }

// Policy holds the lockout thresholds.
type Policy struct {
	Threshold  int           // consecutive failures before a temporary lock
	Duration   time.Duration // length of a temporary lock
	DailyLimit int           // temporary locks per day before a permanent lock
}

// DefaultPolicy returns 5 failures, 15 minutes, 3 locks per day.
func DefaultPolicy() Policy {
	return Policy{Threshold: 5, Duration: 15 * time.Minute, DailyLimit: 3}
}

// State mirrors the lockout columns of a user row.
type State struct {
	Locked      bool
	LockedUntil time.Time // zero when not temporarily locked
	Failures    int
	LocksToday  int
	UpdatedAt   time.Time
}

// Check rejects an attempt while the account is locked. It never changes state.
func (p Policy) Check(s State, now time.Time) error {
	if s.Locked {
		return ErrLocked
	}
	if !s.LockedUntil.IsZero() && s.LockedUntil.After(now) {
		return &TemporaryLockError{Remaining: s.LockedUntil.Sub(now)}
	}
	return nil
}

// ResetDaily clears the daily lock counter when the row was last touched
// before the start of today in loc.
func (p Policy) ResetDaily(s State, now time.Time, loc *time.Location) State {
	local := now.In(loc)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if s.UpdatedAt.Before(startOfDay) {
		s.LocksToday = 0
	}
	return s
}

// RegisterFailure applies one failed password comparison.
func (p Policy) RegisterFailure(s State, now time.Time) State {
	s.Failures++
	if s.Failures >= p.Threshold {
		s.LockedUntil = now.Add(p.Duration)
		s.Failures = 0
		s.LocksToday++
		if s.LocksToday >= p.DailyLimit {
			s.Locked = true
		}
	}
	return s
}

// RegisterSuccess clears the failure counter and any temporary lock.
func (p Policy) RegisterSuccess(s State) State {
	s.Failures = 0
	s.LockedUntil = time.Time{}
	return s
}
