// Package verification owns the token state machine that gates file
// delivery: mint, advance, validate, retire. All transitions are
// compare-and-set operations on the store, so concurrent calls across the
// web flow and the bot settle deterministically.
package verification

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/config/settings"
	"github.com/filegate/filegate/db"
	"github.com/filegate/filegate/types"
)

var log = logrus.WithField("prefix", "verification")

// mintAttempts bounds retries on token id collisions.
const mintAttempts = 3

// Manager drives the token state machine against the store.
type Manager struct {
	store    db.Database
	settings *settings.Resolver
	now      func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithNow injects a clock for tests.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager builds a token manager.
func NewManager(store db.Database, resolver *settings.Resolver, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		settings: resolver,
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// newTokenID draws an unpredictable 128-bit token id.
func newTokenID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", errors.Wrap(err, "draw token id")
	}
	return hex.EncodeToString(raw[:]), nil
}

// Mint creates a fresh MINTED token for the user. The store retires any
// outstanding non-terminal token for the same user in the same atomic step,
// preserving the single-outstanding-token invariant. Id collisions retry
// with a fresh id.
func (m *Manager) Mint(ctx context.Context, userID int64) (*types.Token, error) {
	now := m.now()
	ttl := m.settings.TokenTTL(ctx)
	var lastErr error
	for i := 0; i < mintAttempts; i++ {
		id, err := newTokenID()
		if err != nil {
			return nil, err
		}
		t := &types.Token{
			ID:        id,
			UserID:    userID,
			Status:    types.TokenMinted,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := m.store.MintToken(ctx, t); err != nil {
			if errors.Is(err, db.ErrAlreadyExists) {
				lastErr = err
				continue
			}
			return nil, err
		}
		tokensMintedTotal.Inc()
		log.WithFields(logrus.Fields{
			"user":    userID,
			"expires": t.ExpiresAt.Unix(),
		}).Debug("Minted verification token")
		return t, nil
	}
	return nil, errors.Wrap(lastErr, "token id space exhausted after retries")
}

// AdvanceResult classifies what the web landing observed.
type AdvanceResult int

const (
	// AdvanceOK means this call moved the token MINTED to IN_FLIGHT.
	AdvanceOK AdvanceResult = iota
	// AdvanceAlreadyInFlight means an earlier landing advanced it; the
	// countdown still renders. advanced_at is not re-stamped.
	AdvanceAlreadyInFlight
	// AdvanceNotFound means no such token.
	AdvanceNotFound
	// AdvanceExpired means the token lapsed before the landing.
	AdvanceExpired
	// AdvanceUsed means the token already completed.
	AdvanceUsed
)

// Advance applies the MINTED to IN_FLIGHT transition for a web landing.
func (m *Manager) Advance(ctx context.Context, tokenID string) (AdvanceResult, error) {
	status, applied, err := m.store.AdvanceToken(ctx, tokenID, m.now())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return AdvanceNotFound, nil
		}
		return 0, err
	}
	if applied {
		tokensAdvancedTotal.Inc()
		return AdvanceOK, nil
	}
	switch status {
	case types.TokenInFlight:
		return AdvanceAlreadyInFlight, nil
	case types.TokenCompleted:
		return AdvanceUsed, nil
	case types.TokenExpired:
		return AdvanceExpired, nil
	default:
		return 0, errors.Errorf("advance left token in unexpected status %s", status)
	}
}

// RejectReason classifies a failed validation.
type RejectReason string

// Reject reasons surfaced to the entitlement engine. BadState and TooFast
// indicate the web flow was skipped and render the bypass-detected screen.
const (
	ReasonNotFound     RejectReason = "not_found"
	ReasonUserMismatch RejectReason = "user_mismatch"
	ReasonExpired      RejectReason = "expired"
	ReasonReused       RejectReason = "reused"
	ReasonBadState     RejectReason = "bad_state"
	ReasonTooFast      RejectReason = "too_fast"
)

// BypassSuspected reports whether the reason indicates an attempt to skip
// the interstitial traversal.
func (r RejectReason) BypassSuspected() bool {
	return r == ReasonBadState || r == ReasonTooFast
}

// Verdict is the outcome of a validation attempt.
type Verdict struct {
	Accepted bool
	Reason   RejectReason
	Token    *types.Token
}

func (m *Manager) reject(reason RejectReason, t *types.Token) Verdict {
	tokensRejectedTotal.WithLabelValues(string(reason)).Inc()
	if reason.BypassSuspected() {
		bypassSuspectedTotal.Inc()
	}
	return Verdict{Reason: reason, Token: t}
}

// Validate decides whether the returning user completed a genuine
// traversal. Accept requires an IN_FLIGHT token owned by the user, inside
// its lifetime, past both dwell floors; acceptance itself is a CAS so two
// concurrent validates settle as one accept and one reused rejection.
func (m *Manager) Validate(ctx context.Context, tokenID string, userID int64) (Verdict, error) {
	t, err := m.store.Token(ctx, tokenID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return m.reject(ReasonNotFound, nil), nil
		}
		return Verdict{}, err
	}
	if t.UserID != userID {
		log.WithFields(logrus.Fields{
			"token_user": t.UserID,
			"caller":     userID,
		}).Warn("Token presented by a different user")
		return m.reject(ReasonUserMismatch, t), nil
	}

	now := m.now()
	switch t.StatusAt(now) {
	case types.TokenExpired:
		m.retireQuietly(ctx, tokenID, now)
		return m.reject(ReasonExpired, t), nil
	case types.TokenCompleted:
		return m.reject(ReasonReused, t), nil
	case types.TokenMinted:
		// The web flow was never visited: a MINTED token arriving at
		// validation means the deep link was forged or replayed.
		log.WithFields(logrus.Fields{
			"user":  userID,
			"token": tokenID,
		}).Warn("Bypass suspected: validation against a minted token")
		m.retireQuietly(ctx, tokenID, now)
		return m.reject(ReasonBadState, t), nil
	}

	// In flight: enforce the dwell floors.
	if now.Sub(t.CreatedAt) < m.settings.MinTraversal(ctx) {
		log.WithFields(logrus.Fields{
			"user":    userID,
			"elapsed": now.Sub(t.CreatedAt).Seconds(),
		}).Warn("Bypass suspected: traversal faster than the dwell floor")
		m.retireQuietly(ctx, tokenID, now)
		return m.reject(ReasonTooFast, t), nil
	}
	if now.Sub(t.AdvancedAt) < m.settings.MinDwell(ctx) {
		log.WithFields(logrus.Fields{
			"user":  userID,
			"dwell": now.Sub(t.AdvancedAt).Seconds(),
		}).Warn("Bypass suspected: countdown dwell below the floor")
		m.retireQuietly(ctx, tokenID, now)
		return m.reject(ReasonTooFast, t), nil
	}

	status, applied, err := m.store.CompleteToken(ctx, tokenID, now)
	if err != nil {
		return Verdict{}, err
	}
	if !applied {
		switch status {
		case types.TokenCompleted:
			return m.reject(ReasonReused, t), nil
		case types.TokenExpired:
			return m.reject(ReasonExpired, t), nil
		default:
			return m.reject(ReasonBadState, t), nil
		}
	}
	tokensAcceptedTotal.Inc()
	t.Status = types.TokenCompleted
	t.CompletedAt = now
	return Verdict{Accepted: true, Token: t}, nil
}

// Peek reports the token's effective status at the current instant without
// mutating it. Returns db.ErrNotFound for unknown tokens.
func (m *Manager) Peek(ctx context.Context, tokenID string) (types.TokenStatus, error) {
	t, err := m.store.Token(ctx, tokenID)
	if err != nil {
		return "", err
	}
	return t.StatusAt(m.now()), nil
}

// Retire forces the token to EXPIRED unless already terminal.
func (m *Manager) Retire(ctx context.Context, tokenID string) error {
	return m.store.RetireToken(ctx, tokenID, m.now())
}

func (m *Manager) retireQuietly(ctx context.Context, tokenID string, now time.Time) {
	if err := m.store.RetireToken(ctx, tokenID, now); err != nil && !errors.Is(err, db.ErrNotFound) {
		log.WithError(err).WithField("token", tokenID).Debug("Could not retire token")
	}
}
