package redis

import (
	"context"
	"testing"
	"time"

	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
)

func TestEnsureUser_SeedsOnceRefreshesIdentity(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()

	u, err := s.EnsureUser(ctx, 42, "alice", "Alice", now)
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, false, u.Verified)
	assert.Equal(t, int64(0), u.FilesConsumed)
	assert.Equal(t, now, u.CreatedAt)

	later := now.Add(time.Hour)
	u, err = s.EnsureUser(ctx, 42, "alice_renamed", "Alice", later)
	require.NoError(t, err)
	assert.Equal(t, "alice_renamed", u.Username, "identity snapshot should refresh")
	assert.Equal(t, now, u.CreatedAt, "created_at must not move on re-contact")
	assert.Equal(t, later, u.UpdatedAt)
}

func TestUser_NotFound(t *testing.T) {
	s, _ := setupDB(t)
	_, err := s.User(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordDelivery_SeenSetIsIdempotent(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()
	_, err := s.EnsureUser(ctx, 42, "alice", "Alice", now)
	require.NoError(t, err)

	newly, consumed, err := s.RecordDelivery(ctx, 42, 7, now)
	require.NoError(t, err)
	assert.Equal(t, true, newly)
	assert.Equal(t, int64(1), consumed)

	newly, consumed, err = s.RecordDelivery(ctx, 42, 7, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, false, newly, "re-delivery of a seen post is not newly seen")
	assert.Equal(t, int64(1), consumed, "re-delivery must not consume quota")

	newly, consumed, err = s.RecordDelivery(ctx, 42, 9, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, true, newly)
	assert.Equal(t, int64(2), consumed)

	u, err := s.User(ctx, 42)
	require.NoError(t, err)
	assert.DeepEqual(t, []int64{7, 9}, u.FilesSeen)
	assert.Equal(t, now.Add(2*time.Minute), u.LastSeen)
}

func TestRecordDelivery_UnknownUser(t *testing.T) {
	s, _ := setupDB(t)
	_, _, err := s.RecordDelivery(context.Background(), 404, 7, testNow())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApplyVerification_ResetsQuotaWindow(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()
	_, err := s.EnsureUser(ctx, 42, "alice", "Alice", now)
	require.NoError(t, err)
	for _, post := range []int64{7, 8, 9} {
		_, _, err = s.RecordDelivery(ctx, 42, post, now)
		require.NoError(t, err)
	}

	expires := now.Add(24 * time.Hour)
	require.NoError(t, s.ApplyVerification(ctx, 42, now, expires, 42))

	u, err := s.User(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, true, u.Verified)
	assert.Equal(t, now, u.VerifiedAt)
	assert.Equal(t, expires, u.ExpiresAt)
	assert.Equal(t, int64(0), u.FilesConsumed, "quota must reset")
	assert.Equal(t, 0, len(u.FilesSeen), "seen history must reset")
}

func TestApplyVerification_UnknownUser(t *testing.T) {
	s, _ := setupDB(t)
	err := s.ApplyVerification(context.Background(), 404, testNow(), testNow().Add(time.Hour), 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClearVerification(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()
	_, err := s.EnsureUser(ctx, 42, "alice", "Alice", now)
	require.NoError(t, err)
	require.NoError(t, s.ApplyVerification(ctx, 42, now, now.Add(time.Hour), 42))

	require.NoError(t, s.ClearVerification(ctx, 42, 1, now.Add(time.Minute)))
	u, err := s.User(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, false, u.Verified)
	assert.Equal(t, int64(1), u.VerifiedBy)

	n, err := s.VerifiedUserCount(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestVerifiedUserCount_RespectsExpiry(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()
	for _, id := range []int64{1, 2} {
		_, err := s.EnsureUser(ctx, id, "u", "U", now)
		require.NoError(t, err)
	}
	require.NoError(t, s.ApplyVerification(ctx, 1, now, now.Add(time.Hour), 1))
	require.NoError(t, s.ApplyVerification(ctx, 2, now, now.Add(48*time.Hour), 2))

	n, err := s.VerifiedUserCount(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	expired, err := s.ExpiredEntitlements(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.DeepEqual(t, []int64{1}, expired)
}

func TestUserIDsAndCount(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()
	for _, id := range []int64{30, 10, 20} {
		_, err := s.EnsureUser(ctx, id, "u", "U", now)
		require.NoError(t, err)
	}
	ids, err := s.UserIDs(ctx)
	require.NoError(t, err)
	assert.DeepEqual(t, []int64{10, 20, 30}, ids)

	n, err := s.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestMarkBlocked(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()
	_, err := s.EnsureUser(ctx, 42, "alice", "Alice", now)
	require.NoError(t, err)

	require.NoError(t, s.MarkBlocked(ctx, 42, true, now))
	u, err := s.User(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, true, u.Blocked)

	require.NoError(t, s.MarkBlocked(ctx, 42, false, now))
	u, err = s.User(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, false, u.Blocked)
}
