package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	landingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filegate_web_landings_total",
		Help: "Shortlink landing requests, by result.",
	}, []string{"result"})
	countdownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_web_countdowns_total",
		Help: "Countdown pages rendered.",
	})
)
