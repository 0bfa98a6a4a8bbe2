// Package metrics exposes reconciliation counters for Prometheus scraping.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all reconciler metrics.
type Registry struct {
	// CyclesTotal counts cycles by final state: clean, errors, skipped.
	CyclesTotal *prometheus.CounterVec
	// DriftDetectedTotal counts cycles whose pre-probe found the canary absent.
	DriftDetectedTotal prometheus.Counter
	// RestoresTotal counts per-family restore attempts by result.
	RestoresTotal *prometheus.CounterVec
	// AlertsSentTotal counts reports handed to the notification channels.
	AlertsSentTotal prometheus.Counter
	// PostBounceFlushTotal counts the highest-severity failure mode.
	PostBounceFlushTotal prometheus.Counter
	// LastCycleTimestamp is the unix time the last cycle finished.
	LastCycleTimestamp prometheus.Gauge
}

// Get returns the global metrics registry, initializing it on first use.
func Get() *Registry {
	once.Do(func() {
		registry = &Registry{
			CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rampart",
				Name:      "cycles_total",
				Help:      "Reconciliation cycles by outcome",
			}, []string{"result"}),
			DriftDetectedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "rampart",
				Name:      "drift_detected_total",
				Help:      "Cycles that found the canary rule absent",
			}),
			RestoresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rampart",
				Name:      "restores_total",
				Help:      "Per-family ruleset restore attempts",
			}, []string{"family", "result"}),
			AlertsSentTotal: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "rampart",
				Name:      "alerts_sent_total",
				Help:      "Alert reports handed off for delivery",
			}),
			PostBounceFlushTotal: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "rampart",
				Name:      "post_bounce_flush_total",
				Help:      "Cycles where the auxiliary service undid the restore",
			}),
			LastCycleTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "rampart",
				Name:      "last_cycle_timestamp_seconds",
				Help:      "Unix time the last reconciliation cycle finished",
			}),
		}
	})
	return registry
}

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
