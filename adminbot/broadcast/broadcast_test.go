package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"

	"github.com/filegate/filegate/db"
	"github.com/filegate/filegate/gateway"
	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
	"github.com/filegate/filegate/types"
)

type fakeSender struct {
	sent   []int64
	errFor map[int64]error
}

func (f *fakeSender) CopyFrom(_ context.Context, _ int64, _ int, toChat int64) (gateway.Sent, error) {
	if err, ok := f.errFor[toChat]; ok {
		return gateway.Sent{}, err
	}
	f.sent = append(f.sent, toChat)
	return gateway.Sent{ChatID: toChat, MessageID: 1}, nil
}

func setupRunner(t *testing.T, send Sender) (db.Database, *Runner) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := db.NewDB(context.Background(), &db.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	now := time.Unix(7000, 0).UTC()
	r := NewRunner(store, send,
		WithNow(func() time.Time { return now }),
		WithSleep(func(time.Duration) {}))
	return store, r
}

func seedUsers(t *testing.T, store db.Database, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		_, err := store.EnsureUser(context.Background(), id, "", "", time.Unix(7000, 0).UTC())
		require.NoError(t, err)
	}
}

func TestRun_ClassifiesRecipients(t *testing.T) {
	send := &fakeSender{errFor: map[int64]error{
		2: errors.Wrap(gateway.ErrBlocked, "copy"),
		3: errors.New("network down"),
	}}
	store, r := setupRunner(t, send)
	seedUsers(t, store, 1, 2, 3, 4)

	sum, err := r.Run(context.Background(), 99, types.Coordinate{ChatID: -5, MessageID: 10})
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.Sent)
	assert.Equal(t, 1, sum.Blocked)
	assert.Equal(t, 1, sum.Failed)
	assert.NotEqual(t, "", sum.JobID)
}

func TestRun_MarksBlockedUsers(t *testing.T) {
	send := &fakeSender{errFor: map[int64]error{
		2: errors.Wrap(gateway.ErrBlocked, "copy"),
	}}
	store, r := setupRunner(t, send)
	seedUsers(t, store, 1, 2)

	_, err := r.Run(context.Background(), 99, types.Coordinate{ChatID: -5, MessageID: 10})
	require.NoError(t, err)

	u, err := store.User(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, true, u.Blocked)

	u, err = store.User(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, false, u.Blocked)
}

func TestRun_RecordsOperatorAction(t *testing.T) {
	send := &fakeSender{}
	store, r := setupRunner(t, send)
	seedUsers(t, store, 1, 2, 3)

	sum, err := r.Run(context.Background(), 99, types.Coordinate{ChatID: -5, MessageID: 10})
	require.NoError(t, err)

	actions, err := store.RecentActions(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 1, len(actions))
	assert.Equal(t, types.ActionBroadcast, actions[0].Kind)
	assert.Equal(t, int64(99), actions[0].AdminID)
	assert.Equal(t, sum.JobID, actions[0].ID)
	assert.Equal(t, "3", actions[0].Details["sent"])
}

func TestRun_EmptyRecipientList(t *testing.T) {
	send := &fakeSender{}
	_, r := setupRunner(t, send)

	sum, err := r.Run(context.Background(), 99, types.Coordinate{ChatID: -5, MessageID: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Total)
	assert.Equal(t, 0, len(send.sent))
}
