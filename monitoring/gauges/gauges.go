// Package gauges periodically refreshes store-derived Prometheus gauges so
// operators can chart user and file totals without querying Redis.
package gauges

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/async"
	"github.com/filegate/filegate/db"
)

var log = logrus.WithField("prefix", "gauges")

var (
	usersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filegate_users",
		Help: "Known users.",
	})
	verifiedUsersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filegate_users_verified",
		Help: "Users holding an unexpired verification.",
	})
	filesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filegate_files",
		Help: "Published file records.",
	})
)

const refreshInterval = time.Minute

// Service refreshes the gauges on a fixed interval.
type Service struct {
	store  db.ReadOnlyDatabase
	ctx    context.Context
	cancel context.CancelFunc
}

// NewService builds the refresher around a read-only store handle.
func NewService(store db.ReadOnlyDatabase) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{store: store, ctx: ctx, cancel: cancel}
}

// Start begins the periodic refresh.
func (s *Service) Start() {
	s.refresh()
	async.RunEvery(s.ctx, refreshInterval, s.refresh)
}

// Stop halts the refresh loop.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status is always healthy; a failed refresh only leaves gauges stale.
func (s *Service) Status() error {
	return nil
}

func (s *Service) refresh() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if n, err := s.store.UserCount(ctx); err == nil {
		usersTotal.Set(float64(n))
	} else {
		log.WithError(err).Debug("Could not count users")
	}
	if n, err := s.store.VerifiedUserCount(ctx, time.Now()); err == nil {
		verifiedUsersTotal.Set(float64(n))
	} else {
		log.WithError(err).Debug("Could not count verified users")
	}
	if n, err := s.store.FileCount(ctx); err == nil {
		filesTotal.Set(float64(n))
	} else {
		log.WithError(err).Debug("Could not count files")
	}
}
