// Package metrics exposes Prometheus instrumentation for the ingestion and
// fan-out paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SamplesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cartracker_samples_received_total",
		Help: "Location samples submitted for ingestion",
	})
	SamplesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cartracker_samples_persisted_total",
		Help: "Location samples written to the store",
	})
	SamplesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cartracker_samples_rejected_total",
		Help: "Location samples rejected before persistence",
	})
	SnapshotFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cartracker_snapshot_update_failures_total",
		Help: "Failed last-location snapshot updates after a persisted sample",
	})
	AlertAttachFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cartracker_alert_attach_failures_total",
		Help: "Failed alert-attach writes after a persisted sample",
	})
	AlertsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cartracker_alerts_emitted_total",
		Help: "Alert events produced by the evaluator, by type",
	}, []string{"type"})
	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cartracker_realtime_clients",
		Help: "Currently connected realtime subscribers",
	})
	RealtimeDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cartracker_realtime_dropped_total",
		Help: "Realtime messages dropped because a subscriber was too slow",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
