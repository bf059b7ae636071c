package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	webhookUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_updates_total",
			Help: "Incoming webhook updates by kind (message, membership, empty).",
		},
		[]string{"kind"},
	)

	commandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commands_received_total",
			Help: "Counts recognized commands from users.",
		},
		[]string{"command"},
	)

	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookups_total",
			Help: "Directory lookups by outcome (ok, account_error, rate_limited).",
		},
		[]string{"outcome"},
	)

	dispatchErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_errors_total",
			Help: "Dispatches that hit the fatal error path.",
		},
	)
)

var registerOnce sync.Once

// MustRegister registers the bot's collectors with the default registry.
// Safe to call more than once; only the first call registers.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			webhookUpdatesTotal,
			commandsReceivedTotal,
			lookupsTotal,
			dispatchErrorsTotal,
		)
	})
}

func IncWebhookUpdate(kind string) {
	webhookUpdatesTotal.WithLabelValues(kind).Inc()
}

func IncCommand(command string) {
	commandsReceivedTotal.WithLabelValues(command).Inc()
}

func IncLookup(outcome string) {
	lookupsTotal.WithLabelValues(outcome).Inc()
}

func IncDispatchError() {
	dispatchErrorsTotal.Inc()
}
