package redis

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opencensus.io/trace"

	"github.com/filegate/filegate/types"
)

// EnsureUser seeds a zeroed entitlement record on first contact and
// refreshes the identity snapshot on every later contact. Idempotent.
func (s *Store) EnsureUser(ctx context.Context, id int64, username, firstName string, now time.Time) (*types.User, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.EnsureUser")
	defer span.End()

	key := userKey(id)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, usersIndexKey, id)
	pipe.HSetNX(ctx, key, "created_at_ms", timeToMs(now))
	pipe.HSetNX(ctx, key, "verified", "0")
	pipe.HSetNX(ctx, key, "files_consumed", 0)
	pipe.HSet(ctx, key,
		"id", id,
		"username", username,
		"first_name", firstName,
		"updated_at_ms", timeToMs(now),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, mapError(err, "ensure user")
	}
	return s.User(ctx, id)
}

// User loads one entitlement record with its seen set.
func (s *Store) User(ctx context.Context, id int64) (*types.User, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.User")
	defer span.End()

	fields, err := s.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, mapError(err, "get user")
	}
	if len(fields) == 0 {
		return nil, errors.Wrap(ErrNotFound, "get user")
	}
	seen, err := s.client.SMembers(ctx, userSeenKey(id)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, mapError(err, "get user seen set")
	}
	return parseUser(id, fields, seen), nil
}

// ApplyVerification performs the verification reset: verified flag on,
// window stamped, quota zeroed, seen history discarded. One atomic step.
func (s *Store) ApplyVerification(ctx context.Context, id int64, verifiedAt, expiresAt time.Time, verifiedBy int64) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.ApplyVerification")
	defer span.End()

	res, err := verifyScript.Run(ctx, s.client,
		[]string{userKey(id), userSeenKey(id), usersExpiryIndexKey},
		id, timeToMs(verifiedAt), timeToMs(expiresAt), verifiedBy,
	).Text()
	if err != nil {
		return mapError(err, "apply verification")
	}
	if res == outcomeNotFound {
		return errors.Wrap(ErrNotFound, "apply verification")
	}
	return nil
}

// ClearVerification removes an active verification without touching the
// seen history; the next successful verification resets it anyway.
func (s *Store) ClearVerification(ctx context.Context, id int64, clearedBy int64, now time.Time) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.ClearVerification")
	defer span.End()

	res, err := unverifyScript.Run(ctx, s.client,
		[]string{userKey(id), usersExpiryIndexKey},
		id, timeToMs(now), clearedBy,
	).Text()
	if err != nil {
		return mapError(err, "clear verification")
	}
	if res == outcomeNotFound {
		return errors.Wrap(ErrNotFound, "clear verification")
	}
	return nil
}

// RecordDelivery applies the post-send counters atomically. newlySeen is
// false for re-access, in which case files_consumed is untouched.
func (s *Store) RecordDelivery(ctx context.Context, userID, postNo int64, now time.Time) (bool, int64, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.RecordDelivery")
	defer span.End()

	res, err := deliveryScript.Run(ctx, s.client,
		[]string{userKey(userID), userSeenKey(userID), fileKey(postNo), downloadsCounterKey},
		postNo, timeToMs(now),
	).Slice()
	if err != nil {
		if strings.Contains(err.Error(), "user not found") {
			return false, 0, errors.Wrap(ErrNotFound, "record delivery")
		}
		return false, 0, mapError(err, "record delivery")
	}
	if len(res) != 2 {
		return false, 0, errors.Errorf("record delivery: unexpected script reply of length %d", len(res))
	}
	added, ok := res[0].(int64)
	if !ok {
		return false, 0, errors.Errorf("record delivery: unexpected added reply %T", res[0])
	}
	consumedStr, ok := res[1].(string)
	if !ok {
		return false, 0, errors.Errorf("record delivery: unexpected consumed reply %T", res[1])
	}
	consumed, err := strconv.ParseInt(consumedStr, 10, 64)
	if err != nil {
		return false, 0, errors.Wrap(err, "record delivery: parse consumed")
	}
	return added == 1, consumed, nil
}

// UserIDs returns every known user id. Order is unspecified.
func (s *Store) UserIDs(ctx context.Context) ([]int64, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.UserIDs")
	defer span.End()

	members, err := s.client.SMembers(ctx, usersIndexKey).Result()
	if err != nil {
		return nil, mapError(err, "list users")
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			log.WithField("member", m).Warn("Skipping malformed user index entry")
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// UserCount returns the number of known users.
func (s *Store) UserCount(ctx context.Context) (int64, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.UserCount")
	defer span.End()

	n, err := s.client.SCard(ctx, usersIndexKey).Result()
	return n, mapError(err, "count users")
}

// VerifiedUserCount returns how many users hold an unexpired verification.
func (s *Store) VerifiedUserCount(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.VerifiedUserCount")
	defer span.End()

	n, err := s.client.ZCount(ctx, usersExpiryIndexKey,
		strconv.FormatInt(timeToMs(now), 10), "+inf").Result()
	return n, mapError(err, "count verified users")
}

// ExpiredEntitlements lists users whose verification window has lapsed.
// The records themselves are never evicted.
func (s *Store) ExpiredEntitlements(ctx context.Context, now time.Time) ([]int64, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.ExpiredEntitlements")
	defer span.End()

	members, err := s.client.ZRangeByScore(ctx, usersExpiryIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(timeToMs(now), 10),
	}).Result()
	if err != nil {
		return nil, mapError(err, "list expired entitlements")
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// MarkBlocked records that the gateway reported the user as having blocked
// the bot, for broadcast reporting.
func (s *Store) MarkBlocked(ctx context.Context, id int64, blocked bool, now time.Time) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.MarkBlocked")
	defer span.End()

	err := s.client.HSet(ctx, userKey(id), "blocked", boolField(blocked), "updated_at_ms", timeToMs(now)).Err()
	return mapError(err, "mark blocked")
}

func parseUser(id int64, fields map[string]string, seen []string) *types.User {
	u := &types.User{
		ID:            id,
		Username:      fields["username"],
		FirstName:     fields["first_name"],
		Verified:      fieldBool(fields, "verified"),
		VerifiedAt:    fieldTime(fields, "verified_at_ms"),
		ExpiresAt:     fieldTime(fields, "expires_at_ms"),
		VerifiedBy:    fieldInt64(fields, "verified_by"),
		FilesConsumed: fieldInt64(fields, "files_consumed"),
		LastSeen:      fieldTime(fields, "last_seen_ms"),
		Blocked:       fieldBool(fields, "blocked"),
		CreatedAt:     fieldTime(fields, "created_at_ms"),
		UpdatedAt:     fieldTime(fields, "updated_at_ms"),
	}
	for _, m := range seen {
		post, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		u.FilesSeen = append(u.FilesSeen, post)
	}
	sort.Slice(u.FilesSeen, func(i, j int) bool { return u.FilesSeen[i] < u.FilesSeen[j] })
	return u
}
