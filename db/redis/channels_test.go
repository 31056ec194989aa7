package redis

import (
	"context"
	"testing"

	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
	"github.com/filegate/filegate/types"
)

func saveTestChannel(t *testing.T, s *Store, handle string, order int, active bool) {
	t.Helper()
	require.NoError(t, s.SaveChannel(context.Background(), &types.Channel{
		Handle:  handle,
		Link:    "https://t.me/" + handle,
		Order:   order,
		Active:  active,
		AddedBy: 7,
		AddedAt: testNow(),
	}))
}

func TestSaveChannel_RoundTripAndConflict(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	saveTestChannel(t, s, "updates", 1, true)

	ch, err := s.Channel(ctx, "updates")
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/updates", ch.Link)
	assert.Equal(t, 1, ch.Order)
	assert.Equal(t, true, ch.Active)
	assert.Equal(t, int64(7), ch.AddedBy)

	err = s.SaveChannel(ctx, &types.Channel{Handle: "updates", Link: "other"})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestChannels_ActiveFilterAndOrder(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	saveTestChannel(t, s, "second", 2, true)
	saveTestChannel(t, s, "first", 1, true)
	saveTestChannel(t, s, "paused", 3, false)

	all, err := s.Channels(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 3, len(all))
	assert.Equal(t, "first", all[0].Handle)
	assert.Equal(t, "second", all[1].Handle)
	assert.Equal(t, "paused", all[2].Handle)

	active, err := s.Channels(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 2, len(active))
	assert.Equal(t, "first", active[0].Handle)
	assert.Equal(t, "second", active[1].Handle)
}

func TestUpdateChannel_FlipsActive(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	saveTestChannel(t, s, "updates", 1, true)

	ch, err := s.Channel(ctx, "updates")
	require.NoError(t, err)
	ch.Active = false
	require.NoError(t, s.UpdateChannel(ctx, ch))

	got, err := s.Channel(ctx, "updates")
	require.NoError(t, err)
	assert.Equal(t, false, got.Active)
}

func TestUpdateChannel_NotFound(t *testing.T) {
	s, _ := setupDB(t)
	err := s.UpdateChannel(context.Background(), &types.Channel{Handle: "ghost"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteChannel_RemovesEntryAndIndex(t *testing.T) {
	s, _ := setupDB(t)
	ctx := context.Background()
	saveTestChannel(t, s, "updates", 1, true)

	require.NoError(t, s.DeleteChannel(ctx, "updates"))
	_, err := s.Channel(ctx, "updates")
	require.ErrorIs(t, err, ErrNotFound)

	all, err := s.Channels(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, len(all))

	require.ErrorIs(t, s.DeleteChannel(ctx, "updates"), ErrNotFound)
}
