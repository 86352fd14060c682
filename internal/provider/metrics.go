package provider

import (
	"time"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects provider fetch and command outcomes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	fetchCounter  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	commands      *prometheus.CounterVec
}

// NewMetrics registers the provider collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	const namespace = "brewing_provider"

	fetchCounter := promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Controller fetches by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)

	fetchDuration := promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of controller fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	commands := promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands by provider, command and outcome",
		},
		[]string{"provider", "command", "outcome"},
	)

	return &Metrics{
		fetchCounter:  fetchCounter,
		fetchDuration: fetchDuration,
		commands:      commands,
	}
}

func (m *Metrics) observeFetch(variant Variant, operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "fallback"
	}
	m.fetchCounter.WithLabelValues(string(variant), operation, outcome).Inc()
	m.fetchDuration.WithLabelValues(string(variant), operation).Observe(d.Seconds())
}

func (m *Metrics) observeCommand(variant Variant, command models.Command, success bool) {
	if m == nil {
		return
	}
	name := string(command)
	if !command.Critical() && command != models.CommandSetTempOffset {
		name = "other"
	}
	outcome := "accepted"
	if !success {
		outcome = "rejected"
	}
	m.commands.WithLabelValues(string(variant), name, outcome).Inc()
}
