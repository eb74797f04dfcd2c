package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	serviceStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackup",
			Subsystem: "service",
			Name:      "starts_total",
			Help:      "Number of successful service launches.",
		}, []string{"name"},
	)
	serviceStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackup",
			Subsystem: "service",
			Name:      "stops_total",
			Help:      "Number of stop operations that signalled a process.",
		}, []string{"name"},
	)
	portKills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackup",
			Subsystem: "service",
			Name:      "port_kills_total",
			Help:      "Number of foreign processes killed to free a service port.",
		}, []string{"name"},
	)
	probeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackup",
			Subsystem: "service",
			Name:      "probe_results_total",
			Help:      "Health probe results by outcome (ok, failed).",
		}, []string{"name", "result"},
	)
	startOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackup",
			Subsystem: "service",
			Name:      "start_outcomes_total",
			Help:      "Start attempts by outcome kind (started, skipped, failed).",
		}, []string{"name", "kind"},
	)
	currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stackup",
			Subsystem: "service",
			Name:      "current_state",
			Help:      "Last known state per service (1 = active state, 0 = inactive).",
		}, []string{"name", "state"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{serviceStarts, serviceStops, portKills, probeResults, startOutcomes, currentState}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart(name string) {
	if regOK.Load() {
		serviceStarts.WithLabelValues(name).Inc()
	}
}

func IncStop(name string) {
	if regOK.Load() {
		serviceStops.WithLabelValues(name).Inc()
	}
}

func IncPortKill(name string) {
	if regOK.Load() {
		portKills.WithLabelValues(name).Inc()
	}
}

func IncProbe(name, result string) {
	if regOK.Load() {
		probeResults.WithLabelValues(name, result).Inc()
	}
}

func IncOutcome(name, kind string) {
	if regOK.Load() {
		startOutcomes.WithLabelValues(name, kind).Inc()
	}
}

func SetCurrentState(name, state string, active bool) {
	if regOK.Load() {
		var v float64
		if active {
			v = 1
		}
		currentState.WithLabelValues(name, state).Set(v)
	}
}
