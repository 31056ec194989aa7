package types_test

import (
	"testing"
	"time"

	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/types"
)

func TestTokenStatusAt(t *testing.T) {
	created := time.Unix(1000, 0)
	expires := created.Add(10 * time.Minute)
	tests := []struct {
		name   string
		status types.TokenStatus
		now    time.Time
		want   types.TokenStatus
	}{
		{"minted before expiry", types.TokenMinted, expires.Add(-time.Second), types.TokenMinted},
		{"minted after expiry", types.TokenMinted, expires.Add(time.Second), types.TokenExpired},
		{"in flight after expiry", types.TokenInFlight, expires.Add(time.Millisecond), types.TokenExpired},
		{"at expiry still live", types.TokenInFlight, expires, types.TokenInFlight},
		{"completed survives expiry", types.TokenCompleted, expires.Add(time.Hour), types.TokenCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &types.Token{Status: tt.status, CreatedAt: created, ExpiresAt: expires}
			assert.Equal(t, tt.want, tok.StatusAt(tt.now))
		})
	}
}

func TestTokenStatusTerminal(t *testing.T) {
	assert.Equal(t, false, types.TokenMinted.Terminal())
	assert.Equal(t, false, types.TokenInFlight.Terminal())
	assert.Equal(t, true, types.TokenCompleted.Terminal())
	assert.Equal(t, true, types.TokenExpired.Terminal())
}

func TestUserIsVerified(t *testing.T) {
	now := time.Unix(5000, 0)
	u := &types.User{Verified: true, ExpiresAt: now}
	assert.Equal(t, true, u.IsVerified(now), "expiry instant itself is still valid")
	assert.Equal(t, false, u.IsVerified(now.Add(time.Millisecond)))
	assert.Equal(t, false, (&types.User{Verified: false, ExpiresAt: now.Add(time.Hour)}).IsVerified(now))
}

func TestMembershipFromChatStatus(t *testing.T) {
	for _, s := range []string{"creator", "administrator", "member", "restricted"} {
		assert.Equal(t, types.Member, types.MembershipFromChatStatus(s), "status %s", s)
	}
	for _, s := range []string{"left", "kicked", "unknown", ""} {
		assert.Equal(t, types.NotMember, types.MembershipFromChatStatus(s), "status %s", s)
	}
}
