package domain

import "time"

// RefreshToken represents a persisted refresh token. At most one token per
// account is active at any time.
type RefreshToken struct {
	ID             string
	AccountID      string
	Value          string
	ExpirationDate time.Time
	IsActive       bool
}

// Expired reports whether the token is past its expiration date.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpirationDate)
}

// Remaining returns the token lifetime left at the supplied instant.
// Negative values mean the token already expired.
func (t RefreshToken) Remaining(now time.Time) time.Duration {
	return t.ExpirationDate.Sub(now)
}
