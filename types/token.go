package types

import (
	"time"
)

// TokenStatus is the verification token state machine position.
type TokenStatus string

// Token lifecycle states. Completed and Expired are terminal.
const (
	TokenMinted    TokenStatus = "minted"
	TokenInFlight  TokenStatus = "in_flight"
	TokenCompleted TokenStatus = "completed"
	TokenExpired   TokenStatus = "expired"
)

// Terminal reports whether the status permits no further transitions.
func (s TokenStatus) Terminal() bool {
	return s == TokenCompleted || s == TokenExpired
}

// Token is a single-use verification token. Exactly one terminal transition
// is ever applied to a token record.
type Token struct {
	ID          string      `json:"id"`
	UserID      int64       `json:"user_id"`
	Status      TokenStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	AdvancedAt  time.Time   `json:"advanced_at"`
	CompletedAt time.Time   `json:"completed_at"`
}

// StatusAt returns the status as observed at the given instant: a
// non-terminal token past its expiry reads as expired regardless of the
// stored status.
func (t *Token) StatusAt(now time.Time) TokenStatus {
	if !t.Status.Terminal() && now.After(t.ExpiresAt) {
		return TokenExpired
	}
	return t.Status
}
