// Package server implements the verification web surface: the shortlink
// landing that advances tokens, the countdown page that bounces the user
// back into the chat, and a liveness endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/verification"
)

var log = logrus.WithField("prefix", "verifyweb")

// Config groups the process-start parameters of the web service.
type Config struct {
	Host string
	Port int
	// BotUsername builds the return deep link on the countdown page.
	BotUsername string
	// AllowedOrigins for CORS. Empty means same-origin only.
	AllowedOrigins []string
}

// Service serves the verification web flow. It holds no state of its own;
// every request round-trips through the token manager.
type Service struct {
	cfg        *Config
	tokens     *verification.Manager
	server     *http.Server
	failStatus error
}

// New builds the web service around the given token manager.
func New(cfg *Config, tokens *verification.Manager) *Service {
	s := &Service{cfg: cfg, tokens: tokens}

	r := mux.NewRouter()
	r.HandleFunc("/r", s.landingHandler).Methods(http.MethodGet)
	r.HandleFunc("/v", s.countdownHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(recoverMiddleware(r)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func recoverMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithField("panic", rec).Errorf("Request handler panicked: %s", debug.Stack())
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		h.ServeHTTP(w, r)
	})
}

func (s *Service) corsMiddleware(h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         600,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(h)
}

// Handler exposes the routed handler for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving in the background.
func (s *Service) Start() {
	log.WithField("address", s.server.Addr).Info("Starting verification web service")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Errorf("Could not listen on %s", s.server.Addr)
			s.failStatus = err
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Service) Stop() error {
	log.Info("Stopping verification web service")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status reports a failed listen, if any.
func (s *Service) Status() error {
	return s.failStatus
}
