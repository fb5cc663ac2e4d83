package twofa

import "time"

const (
	// MaxFailedAttempts is the number of consecutive failures that locks a record.
	MaxFailedAttempts = 3
	LockoutDuration   = 15 * time.Minute
)

// IsLocked reports whether verification is withheld at now.
func (r *SecurityRecord) IsLocked(now time.Time) bool {
	return r.LockedUntil != nil && r.LockedUntil.After(now)
}

// RecordFailure counts a failed verification. Reaching the threshold locks
// the record for LockoutDuration. A record that is already locked keeps its
// original locked_until.
func (r *SecurityRecord) RecordFailure(now time.Time) {
	r.FailedAttempts++
	if r.FailedAttempts >= MaxFailedAttempts && !r.IsLocked(now) {
		until := now.Add(LockoutDuration)
		r.LockedUntil = &until
	}
	r.UpdatedAt = now
}

// RecordSuccess clears failure state and stamps last_used_at.
func (r *SecurityRecord) RecordSuccess(now time.Time) {
	r.FailedAttempts = 0
	r.LockedUntil = nil
	t := now
	r.LastUsedAt = &t
	r.UpdatedAt = now
}

// ResetLockout clears failure state without counting as a use.
func (r *SecurityRecord) ResetLockout(now time.Time) {
	r.FailedAttempts = 0
	r.LockedUntil = nil
	r.UpdatedAt = now
}
