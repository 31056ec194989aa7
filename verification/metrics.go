package verification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tokensMintedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_tokens_minted_total",
		Help: "Verification tokens minted.",
	})
	tokensAdvancedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_tokens_advanced_total",
		Help: "Tokens moved to in-flight by the web landing.",
	})
	tokensAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_tokens_accepted_total",
		Help: "Validations accepted.",
	})
	tokensRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filegate_tokens_rejected_total",
		Help: "Validations rejected, by reason.",
	}, []string{"reason"})
	bypassSuspectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_bypass_suspected_total",
		Help: "Validations whose rejection indicates an interstitial bypass attempt.",
	})
)
