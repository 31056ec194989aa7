package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/filegate/filegate/types"
)

// MintToken inserts a fresh MINTED token, retiring the user's outstanding
// non-terminal token and repointing the current-token reference in the same
// atomic step. Fails with ErrAlreadyExists when the id is taken.
func (s *Store) MintToken(ctx context.Context, t *types.Token) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.MintToken")
	defer span.End()

	evictAfter := t.ExpiresAt.Sub(t.CreatedAt) + tokenGrace
	res, err := mintScript.Run(ctx, s.client,
		[]string{userTokenKey(t.UserID), tokenKey(t.ID)},
		t.ID, t.UserID, timeToMs(t.CreatedAt), timeToMs(t.ExpiresAt),
		evictAfter.Milliseconds(), tokenKeyPrefix,
	).Text()
	if err != nil {
		return mapError(err, "mint token")
	}
	if res == outcomeConflict {
		return errors.Wrap(ErrAlreadyExists, "mint token")
	}
	return nil
}

// Token loads one token record.
func (s *Store) Token(ctx context.Context, id string) (*types.Token, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.Token")
	defer span.End()

	fields, err := s.client.HGetAll(ctx, tokenKey(id)).Result()
	if err != nil {
		return nil, mapError(err, "get token")
	}
	if len(fields) == 0 {
		return nil, errors.Wrap(ErrNotFound, "get token")
	}
	return parseToken(id, fields), nil
}

// CurrentTokenID returns the id of the user's most recently minted token.
func (s *Store) CurrentTokenID(ctx context.Context, userID int64) (string, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.CurrentTokenID")
	defer span.End()

	id, err := s.client.Get(ctx, userTokenKey(userID)).Result()
	if err != nil {
		return "", mapError(err, "get current token")
	}
	return id, nil
}

// AdvanceToken runs the MINTED to IN_FLIGHT compare-and-set. The returned
// status is the one observed by the store; applied reports whether this
// call performed the transition. Advancing an IN_FLIGHT token is a no-op
// with applied false and no error.
func (s *Store) AdvanceToken(ctx context.Context, id string, now time.Time) (types.TokenStatus, bool, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.AdvanceToken")
	defer span.End()

	res, err := advanceScript.Run(ctx, s.client, []string{tokenKey(id)}, timeToMs(now)).Text()
	if err != nil {
		return "", false, mapError(err, "advance token")
	}
	return casOutcome(res, types.TokenInFlight, "advance token")
}

// CompleteToken runs the IN_FLIGHT to COMPLETED compare-and-set. Of two
// concurrent calls exactly one observes applied true.
func (s *Store) CompleteToken(ctx context.Context, id string, now time.Time) (types.TokenStatus, bool, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.CompleteToken")
	defer span.End()

	res, err := completeScript.Run(ctx, s.client, []string{tokenKey(id)}, timeToMs(now)).Text()
	if err != nil {
		return "", false, mapError(err, "complete token")
	}
	return casOutcome(res, types.TokenCompleted, "complete token")
}

// RetireToken forces the token to EXPIRED unless it already reached a
// terminal state. Idempotent.
func (s *Store) RetireToken(ctx context.Context, id string, now time.Time) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.RetireToken")
	defer span.End()

	res, err := retireScript.Run(ctx, s.client, []string{tokenKey(id)}, timeToMs(now)).Text()
	if err != nil {
		return mapError(err, "retire token")
	}
	if res == outcomeNotFound {
		return errors.Wrap(ErrNotFound, "retire token")
	}
	return nil
}

// casOutcome translates a transition script reply into (observed status,
// applied). The scripts reply 'ok' when the transition landed and the
// observed status otherwise.
func casOutcome(res string, target types.TokenStatus, op string) (types.TokenStatus, bool, error) {
	switch res {
	case outcomeOK:
		return target, true, nil
	case outcomeNotFound:
		return "", false, errors.Wrap(ErrNotFound, op)
	case string(types.TokenMinted), string(types.TokenInFlight), string(types.TokenCompleted), string(types.TokenExpired):
		return types.TokenStatus(res), false, nil
	default:
		return "", false, errors.Errorf("%s: unexpected script reply %q", op, res)
	}
}

func parseToken(id string, fields map[string]string) *types.Token {
	return &types.Token{
		ID:          id,
		UserID:      fieldInt64(fields, "user_id"),
		Status:      types.TokenStatus(fields["status"]),
		CreatedAt:   fieldTime(fields, "created_at_ms"),
		ExpiresAt:   fieldTime(fields, "expires_at_ms"),
		AdvancedAt:  fieldTime(fields, "advanced_at_ms"),
		CompletedAt: fieldTime(fields, "completed_at_ms"),
	}
}
