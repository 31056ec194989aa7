package redis

import (
	"context"
	"testing"
	"time"

	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
	"github.com/filegate/filegate/types"
)

func saveTestFile(t *testing.T, s *Store, postNo int64, title string, now time.Time) *types.File {
	t.Helper()
	f := &types.File{
		PostNo:     postNo,
		Title:      title,
		Extra:      "extra note",
		Archive:    types.Coordinate{ChatID: -1001, MessageID: int(postNo) * 10},
		PublicPost: types.Coordinate{ChatID: -1002, MessageID: int(postNo) * 100},
		Password:   "pw",
		CreatedBy:  7,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.SaveFile(context.Background(), f))
	return f
}

func TestNextPostNo_Monotonic(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := s.NextPostNo(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// Deleting a file never frees its number.
	saveTestFile(t, s, 3, "third", testNow())
	require.NoError(t, s.DeleteFile(ctx, 3))
	n, err := s.NextPostNo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestSaveFile_RoundTrip(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()
	saveTestFile(t, s, 1, "Season Pack", now)

	f, err := s.File(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Season Pack", f.Title)
	assert.Equal(t, "extra note", f.Extra)
	assert.Equal(t, int64(-1001), f.Archive.ChatID)
	assert.Equal(t, 10, f.Archive.MessageID)
	assert.Equal(t, int64(-1002), f.PublicPost.ChatID)
	assert.Equal(t, "pw", f.Password)
	assert.Equal(t, int64(0), f.Downloads)
	assert.Equal(t, now, f.CreatedAt)
	assert.Equal(t, true, f.LastDownloadedAt.IsZero())
}

func TestSaveFile_DuplicatePostNo(t *testing.T) {
	s, _ := setupDB(t)
	now := testNow()
	saveTestFile(t, s, 1, "first", now)

	err := s.SaveFile(context.Background(), &types.File{PostNo: 1, Title: "again", CreatedAt: now, UpdatedAt: now})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestFiles_NewestFirstPaging(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()
	for i := int64(1); i <= 5; i++ {
		saveTestFile(t, s, i, "file", now)
	}

	page, err := s.Files(ctx, 0, 2)
	require.NoError(t, err)
	require.Equal(t, 2, len(page))
	assert.Equal(t, int64(5), page[0].PostNo)
	assert.Equal(t, int64(4), page[1].PostNo)

	page, err = s.Files(ctx, 4, 2)
	require.NoError(t, err)
	require.Equal(t, 1, len(page))
	assert.Equal(t, int64(1), page[0].PostNo)

	n, err := s.FileCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestUpdateFile_LeavesCountersAlone(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()
	saveTestFile(t, s, 1, "before", now)

	_, err := s.EnsureUser(ctx, 42, "alice", "Alice", now)
	require.NoError(t, err)
	_, _, err = s.RecordDelivery(ctx, 42, 1, now)
	require.NoError(t, err)

	f, err := s.File(ctx, 1)
	require.NoError(t, err)
	f.Title = "after"
	f.Password = "new-pw"
	f.UpdatedAt = now.Add(time.Hour)
	require.NoError(t, s.UpdateFile(ctx, f))

	got, err := s.File(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, "new-pw", got.Password)
	assert.Equal(t, int64(1), got.Downloads, "update must not touch the download counter")
}

func TestUpdateFile_NotFound(t *testing.T) {
	s, _ := setupDB(t)
	err := s.UpdateFile(context.Background(), &types.File{PostNo: 404, UpdatedAt: testNow()})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteFile_RemovesRecordAndIndex(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	saveTestFile(t, s, 1, "doomed", testNow())

	require.NoError(t, s.DeleteFile(ctx, 1))
	_, err := s.File(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)

	n, err := s.FileCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.ErrorIs(t, s.DeleteFile(ctx, 1), ErrNotFound)
}

func TestTotalDownloads_AccumulatesAcrossFiles(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()
	saveTestFile(t, s, 1, "one", now)
	saveTestFile(t, s, 2, "two", now)
	_, err := s.EnsureUser(ctx, 42, "alice", "Alice", now)
	require.NoError(t, err)

	n, err := s.TotalDownloads(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "empty counter reads as zero")

	_, _, err = s.RecordDelivery(ctx, 42, 1, now)
	require.NoError(t, err)
	_, _, err = s.RecordDelivery(ctx, 42, 2, now)
	require.NoError(t, err)
	// Re-delivery of a seen post still counts as a download.
	_, _, err = s.RecordDelivery(ctx, 42, 1, now.Add(time.Minute))
	require.NoError(t, err)

	n, err = s.TotalDownloads(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
