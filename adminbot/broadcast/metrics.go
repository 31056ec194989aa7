package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recipientsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_broadcast_sent_total",
		Help: "Broadcast messages delivered.",
	})
	blockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_broadcast_blocked_total",
		Help: "Broadcast recipients that blocked the bot.",
	})
	failedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_broadcast_failed_total",
		Help: "Broadcast sends failed for other reasons.",
	})
)
