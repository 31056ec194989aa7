package redis

import (
	"context"
	"testing"
	"time"

	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
)

func TestPutSetting_UpsertsAndStamps(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()

	require.NoError(t, s.PutSetting(ctx, "file_password", "first", 7, now))
	st, err := s.Setting(ctx, "file_password")
	require.NoError(t, err)
	assert.Equal(t, "first", st.Value)
	assert.Equal(t, int64(7), st.UpdatedBy)
	assert.Equal(t, now, st.UpdatedAt)

	later := now.Add(time.Hour)
	require.NoError(t, s.PutSetting(ctx, "file_password", "second", 8, later))
	st, err = s.Setting(ctx, "file_password")
	require.NoError(t, err)
	assert.Equal(t, "second", st.Value)
	assert.Equal(t, int64(8), st.UpdatedBy)
	assert.Equal(t, later, st.UpdatedAt)
}

func TestSetting_NotFound(t *testing.T) {
	s, _ := setupDB(t)
	_, err := s.Setting(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSettings_SortedByKey(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()
	require.NoError(t, s.PutSetting(ctx, "file_password", "pw", 7, now))
	require.NoError(t, s.PutSetting(ctx, "auto_delete_seconds", "60", 7, now))
	require.NoError(t, s.PutSetting(ctx, "file_access_limit", "5", 7, now))

	list, err := s.Settings(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, len(list))
	assert.Equal(t, "auto_delete_seconds", list[0].Key)
	assert.Equal(t, "file_access_limit", list[1].Key)
	assert.Equal(t, "file_password", list[2].Key)
}
