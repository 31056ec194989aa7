package server

import (
	"net/http"
	"net/url"

	"go.opencensus.io/trace"

	"github.com/filegate/filegate/config/params"
	"github.com/filegate/filegate/types"
	"github.com/filegate/filegate/verification"
)

// landingHandler is the shortlink target. It moves the token from MINTED to
// IN_FLIGHT and bounces to the countdown page. A second load of the same
// link is idempotent: the token is already IN_FLIGHT and the redirect
// repeats.
func (s *Service) landingHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "verifyweb.landing")
	defer span.End()

	param := r.URL.Query().Get("t")
	tokenID, err := verification.DecodeTokenParam(param)
	if err != nil {
		landingsTotal.WithLabelValues("bad_request").Inc()
		s.renderError(w, http.StatusBadRequest, "Bad link",
			"This verification link is malformed. Request a fresh one from the bot.")
		return
	}

	res, err := s.tokens.Advance(ctx, tokenID)
	if err != nil {
		log.WithError(err).Error("Could not advance token")
		landingsTotal.WithLabelValues("error").Inc()
		s.renderError(w, http.StatusInternalServerError, "Something broke",
			"Please try the link again in a moment.")
		return
	}

	switch res {
	case verification.AdvanceOK, verification.AdvanceAlreadyInFlight:
		landingsTotal.WithLabelValues("advanced").Inc()
		http.Redirect(w, r, "/v?t="+url.QueryEscape(param), http.StatusFound)
	case verification.AdvanceNotFound:
		landingsTotal.WithLabelValues("not_found").Inc()
		s.renderError(w, http.StatusNotFound, "Unknown link",
			"This verification link isn't recognized. Request a fresh one from the bot.")
	case verification.AdvanceExpired:
		landingsTotal.WithLabelValues("expired").Inc()
		s.renderError(w, http.StatusGone, "Link expired",
			"This verification link has expired. Request a fresh one from the bot.")
	case verification.AdvanceUsed:
		landingsTotal.WithLabelValues("used").Inc()
		s.renderError(w, http.StatusGone, "Link already used",
			"This verification link was already used. Request a fresh one from the bot.")
	}
}

// countdownHandler renders the page that, after a client-visible delay,
// navigates back into the chat. The delay here is presentation only; the
// dwell floors enforced on the bot return path are the actual control.
func (s *Service) countdownHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "verifyweb.countdown")
	defer span.End()

	param := r.URL.Query().Get("t")
	tokenID, err := verification.DecodeTokenParam(param)
	if err != nil {
		s.renderError(w, http.StatusBadRequest, "Bad link",
			"This verification link is malformed. Request a fresh one from the bot.")
		return
	}

	status, err := s.tokens.Peek(ctx, tokenID)
	if err != nil {
		s.renderError(w, http.StatusNotFound, "Unknown link",
			"This verification link isn't recognized. Request a fresh one from the bot.")
		return
	}
	if status != types.TokenInFlight {
		s.renderError(w, http.StatusGone, "Link no longer valid",
			"This verification link is no longer valid. Request a fresh one from the bot.")
		return
	}

	countdownsTotal.Inc()
	returnURL := "https://t.me/" + s.cfg.BotUsername + "?start=" + verification.EncodeVerify(tokenID)
	s.renderCountdown(w, returnURL, params.Get().CountdownSeconds)
}

func (s *Service) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		log.WithError(err).Error("Could not write health body")
	}
}
