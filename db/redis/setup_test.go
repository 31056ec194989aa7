package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/filegate/filegate/testing/require"
)

func setupDB(t testing.TB) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewStore(context.Background(), &Config{Addr: mr.Addr()})
	require.NoError(t, err, "Failed to instantiate store")
	t.Cleanup(func() {
		require.NoError(t, s.Close(), "Failed to close store")
	})
	return s, mr
}

// testNow is an arbitrary fixed instant with millisecond precision, matching
// the resolution of stored timestamps.
func testNow() time.Time {
	return time.UnixMilli(1_700_000_000_000).UTC()
}
