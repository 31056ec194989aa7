package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/filegate/filegate/config/settings"
	"github.com/filegate/filegate/db"
	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
	"github.com/filegate/filegate/types"
	"github.com/filegate/filegate/verification"
)

type webFixture struct {
	store  db.Database
	tokens *verification.Manager
	svc    *Service
	now    time.Time
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := db.NewDB(context.Background(), &db.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	f := &webFixture{store: store, now: time.Unix(5000, 0).UTC()}
	f.tokens = verification.NewManager(store, settings.NewResolver(store),
		verification.WithNow(func() time.Time { return f.now }))
	f.svc = New(&Config{BotUsername: "filegate_bot"}, f.tokens)
	return f
}

func (f *webFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.svc.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *webFixture) mint(t *testing.T) (tokenID, param string) {
	t.Helper()
	tok, err := f.tokens.Mint(context.Background(), 42)
	require.NoError(t, err)
	return tok.ID, verification.EncodeTokenParam(tok.ID)
}

func TestLanding_AdvancesAndRedirects(t *testing.T) {
	f := newWebFixture(t)
	tokenID, param := f.mint(t)

	rec := f.get(t, "/r?t="+url.QueryEscape(param))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/v?t="+url.QueryEscape(param), rec.Header().Get("Location"))

	tok, err := f.store.Token(context.Background(), tokenID)
	require.NoError(t, err)
	assert.Equal(t, types.TokenInFlight, tok.Status)
}

func TestLanding_SecondLoadIsIdempotent(t *testing.T) {
	f := newWebFixture(t)
	_, param := f.mint(t)

	require.Equal(t, http.StatusFound, f.get(t, "/r?t="+url.QueryEscape(param)).Code)
	rec := f.get(t, "/r?t="+url.QueryEscape(param))
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestLanding_MissingToken(t *testing.T) {
	f := newWebFixture(t)
	rec := f.get(t, "/r")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.StringContains(t, "malformed", rec.Body.String())
}

func TestLanding_UnknownToken(t *testing.T) {
	f := newWebFixture(t)
	rec := f.get(t, "/r?t="+verification.EncodeTokenParam("deadbeefdeadbeefdeadbeefdeadbeef"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLanding_ExpiredToken(t *testing.T) {
	f := newWebFixture(t)
	_, param := f.mint(t)
	f.now = f.now.Add(11 * time.Minute)

	rec := f.get(t, "/r?t="+url.QueryEscape(param))
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.StringContains(t, "expired", rec.Body.String())
}

func TestLanding_CompletedToken(t *testing.T) {
	f := newWebFixture(t)
	tokenID, param := f.mint(t)
	ctx := context.Background()

	res, err := f.tokens.Advance(ctx, tokenID)
	require.NoError(t, err)
	require.Equal(t, verification.AdvanceOK, res)
	f.now = f.now.Add(10 * time.Second)
	verdict, err := f.tokens.Validate(ctx, tokenID, 42)
	require.NoError(t, err)
	require.Equal(t, true, verdict.Accepted)

	rec := f.get(t, "/r?t="+url.QueryEscape(param))
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.StringContains(t, "already used", rec.Body.String())
}

func TestCountdown_RendersReturnDeepLink(t *testing.T) {
	f := newWebFixture(t)
	tokenID, param := f.mint(t)
	res, err := f.tokens.Advance(context.Background(), tokenID)
	require.NoError(t, err)
	require.Equal(t, verification.AdvanceOK, res)

	rec := f.get(t, "/v?t="+url.QueryEscape(param))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.StringContains(t, "https://t.me/filegate_bot?start="+verification.EncodeVerify(tokenID), rec.Body.String())
}

func TestCountdown_RejectsMintedToken(t *testing.T) {
	// Jumping straight to /v without passing the landing leaves the token
	// MINTED; the page refuses rather than handing out a return link.
	f := newWebFixture(t)
	_, param := f.mint(t)

	rec := f.get(t, "/v?t="+url.QueryEscape(param))
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestCountdown_UnknownToken(t *testing.T) {
	f := newWebFixture(t)
	rec := f.get(t, "/v?t="+verification.EncodeTokenParam("deadbeefdeadbeefdeadbeefdeadbeef"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newWebFixture(t)
	rec := f.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
