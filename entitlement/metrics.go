package entitlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_deliveries_total",
		Help: "Files delivered against quota.",
	})
	reaccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_reaccess_total",
		Help: "Re-deliveries of already-seen files, not counted against quota.",
	})
	gateStopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filegate_gate_stops_total",
		Help: "Download attempts stopped before delivery, by gate.",
	}, []string{"gate"})
	deliveryInconsistentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_delivery_inconsistent_total",
		Help: "Deliveries whose counter commit failed after the compensating retry.",
	})
	deletionsEnrolledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_deletions_enrolled_total",
		Help: "Scheduled self-destruct tasks enrolled.",
	})
	deletionsFiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_deletions_fired_total",
		Help: "Scheduled self-destruct tasks completed.",
	})
	deletionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_deletion_failures_total",
		Help: "Self-destruct tasks that could not delete the delivered message.",
	})
)
