package membership

import (
	"context"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/filegate/filegate/gateway/mock"
	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
	"github.com/filegate/filegate/types"
)

func channels(handles ...string) []*types.Channel {
	chs := make([]*types.Channel, 0, len(handles))
	for i, h := range handles {
		chs = append(chs, &types.Channel{Handle: h, Order: i + 1, Active: true})
	}
	return chs
}

func TestMissing_EmptyChannelListPasses(t *testing.T) {
	c := NewChecker(&mock.Gateway{})
	missing := c.Missing(context.Background(), 42, nil)
	assert.Equal(t, 0, len(missing))
}

func TestMissing_PreservesDisplayOrder(t *testing.T) {
	gw := &mock.Gateway{}
	gw.SetStatus("beta", 42, "member")
	// alpha, gamma, delta missing (default "left").
	c := NewChecker(gw)

	missing := c.Missing(context.Background(), 42, channels("alpha", "beta", "gamma", "delta"))
	got := make([]string, 0, len(missing))
	for _, ch := range missing {
		got = append(got, ch.Handle)
	}
	assert.DeepEqual(t, []string{"alpha", "gamma", "delta"}, got)
}

func TestMissing_AllStatusesCounted(t *testing.T) {
	gw := &mock.Gateway{}
	gw.SetStatus("a", 7, "creator")
	gw.SetStatus("b", 7, "administrator")
	gw.SetStatus("c", 7, "member")
	gw.SetStatus("d", 7, "restricted")
	gw.SetStatus("e", 7, "kicked")
	c := NewChecker(gw)

	missing := c.Missing(context.Background(), 7, channels("a", "b", "c", "d", "e"))
	require.Equal(t, 1, len(missing))
	assert.Equal(t, "e", missing[0].Handle)
}

func TestMissing_GatewayErrorTreatedAsMissingAndLogged(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	gw := &mock.Gateway{MemberStatusErr: context.DeadlineExceeded}
	c := NewChecker(gw)

	missing := c.Missing(context.Background(), 42, channels("alpha"))
	require.Equal(t, 1, len(missing))
	assert.LogsContain(t, hook, "Membership query failed")
}

func TestStatus_CachesMemberResult(t *testing.T) {
	gw := &mock.Gateway{}
	gw.SetStatus("alpha", 42, "member")
	c := NewChecker(gw)
	chs := channels("alpha")

	assert.Equal(t, types.Member, c.Status(context.Background(), chs[0], 42))
	// Flip the scripted state; the cached answer should still serve.
	gw.SetStatus("alpha", 42, "left")
	assert.Equal(t, types.Member, c.Status(context.Background(), chs[0], 42))

	c.Forget(42, chs)
	assert.Equal(t, types.NotMember, c.Status(context.Background(), chs[0], 42))
}
