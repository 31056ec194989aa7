package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
	"github.com/filegate/filegate/types"
)

func TestRecordAction_NewestFirst(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordAction(ctx, &types.Action{
			ID:      "act-" + strconv.Itoa(i),
			AdminID: 7,
			Kind:    types.ActionSettingChanged,
			Details: map[string]string{"n": strconv.Itoa(i)},
			At:      now.Add(time.Duration(i) * time.Minute),
		}))
	}

	actions, err := s.RecentActions(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 2, len(actions))
	assert.Equal(t, "act-2", actions[0].ID)
	assert.Equal(t, "act-1", actions[1].ID)
	assert.Equal(t, "2", actions[0].Details["n"])
	assert.Equal(t, now.Add(2*time.Minute), actions[0].At)
}

func TestRecentActions_DefaultsAndEmpty(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()

	actions, err := s.RecentActions(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, len(actions))

	require.NoError(t, s.RecordAction(ctx, &types.Action{
		ID: "act-1", AdminID: 7, Kind: types.ActionBroadcast, At: testNow(),
	}))
	actions, err = s.RecentActions(ctx, -5)
	require.NoError(t, err)
	require.Equal(t, 1, len(actions))
	assert.Equal(t, "act-1", actions[0].ID)
}

func TestRecordAction_CapsLogLength(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	now := testNow()

	for i := 0; i < actionLogCap+5; i++ {
		require.NoError(t, s.RecordAction(ctx, &types.Action{
			ID:      "act-" + strconv.Itoa(i),
			AdminID: 7,
			Kind:    types.ActionUserVerified,
			At:      now,
		}))
	}

	actions, err := s.RecentActions(ctx, actionLogCap*2)
	require.NoError(t, err)
	assert.Equal(t, actionLogCap, len(actions))
	assert.Equal(t, "act-"+strconv.Itoa(actionLogCap+4), actions[0].ID, "newest entry survives the trim")
}
