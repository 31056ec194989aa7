package shortlink

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/filegate/filegate/config/params"
	"github.com/filegate/filegate/config/settings"
	"github.com/filegate/filegate/db"
	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
	"github.com/filegate/filegate/types"
)

func setup(t *testing.T, providerURL string) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := db.NewDB(context.Background(), &db.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	ctx := context.Background()
	now := time.Unix(1000, 0)
	if providerURL != "" {
		require.NoError(t, store.PutSetting(ctx, types.SettingShortlinkBaseURL, providerURL, 1, now))
		require.NoError(t, store.PutSetting(ctx, types.SettingShortlinkAPIKey, "k3y", 1, now))
	}
	return NewClient(settings.NewResolver(store))
}

func fastRetries(t *testing.T) {
	t.Helper()
	cfg := params.Get().Copy()
	cfg.RetrySchedule = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	reset := params.OverrideWithReset(cfg)
	t.Cleanup(reset)
}

func TestMint_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k3y", r.URL.Query().Get("api"))
		assert.Equal(t, "https://example.org/r?t=abc", r.URL.Query().Get("url"))
		fmt.Fprint(w, `{"status":"success","shortenedUrl":"https://sho.rt/xyz"}`)
	}))
	defer srv.Close()

	c := setup(t, srv.URL)
	short, err := c.Mint(context.Background(), "https://example.org/r?t=abc")
	require.NoError(t, err)
	assert.Equal(t, "https://sho.rt/xyz", short)
}

func TestMint_UnconfiguredPassesThrough(t *testing.T) {
	c := setup(t, "")
	short, err := c.Mint(context.Background(), "https://example.org/r?t=abc")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/r?t=abc", short)
}

func TestMint_RetriesThenFallsBack(t *testing.T) {
	fastRetries(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := setup(t, srv.URL)
	short, err := c.Mint(context.Background(), "https://example.org/dest")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/dest", short, "exhausted retries should fall back to the raw destination")
	assert.Equal(t, 4, calls, "one attempt plus three retries")
}

func TestMint_TransientThenSuccess(t *testing.T) {
	fastRetries(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"status":"success","shortenedUrl":"https://sho.rt/ok"}`)
	}))
	defer srv.Close()

	c := setup(t, srv.URL)
	short, err := c.Mint(context.Background(), "https://example.org/dest")
	require.NoError(t, err)
	assert.Equal(t, "https://sho.rt/ok", short)
}

func TestMint_ProviderRejection(t *testing.T) {
	fastRetries(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"error","message":"bad key"}`)
	}))
	defer srv.Close()

	c := setup(t, srv.URL)
	short, err := c.Mint(context.Background(), "https://example.org/dest")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/dest", short)
}
