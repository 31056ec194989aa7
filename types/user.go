// Package types defines the record types persisted by the filegate store
// and shared across the bot, web, and entitlement components.
package types

import (
	"time"
)

// User is the per-user entitlement record. It is created on first contact
// and retained indefinitely; ExpiresAt drives semantic expiry, never
// deletion of the record itself.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	FirstName     string    `json:"first_name"`
	Verified      bool      `json:"verified"`
	VerifiedAt    time.Time `json:"verified_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	VerifiedBy    int64     `json:"verified_by"`
	FilesConsumed int64     `json:"files_consumed"`
	FilesSeen     []int64   `json:"files_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Blocked       bool      `json:"blocked"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsVerified reports whether the user holds an unexpired verification at
// the given instant.
func (u *User) IsVerified(now time.Time) bool {
	return u.Verified && !now.After(u.ExpiresAt)
}

// HasSeen reports whether the post was already delivered to the user within
// the current verification window.
func (u *User) HasSeen(postNo int64) bool {
	for _, p := range u.FilesSeen {
		if p == postNo {
			return true
		}
	}
	return false
}
