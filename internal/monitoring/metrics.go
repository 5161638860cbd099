// Package monitoring exposes Prometheus metrics for the client core: overlay
// stack churn, URL sync activity, platform input handling, and broadcast
// fan-out.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the core.
type Metrics struct {
	// Overlay stack metrics
	OverlaysOpened prometheus.Counter
	OverlaysClosed prometheus.Counter
	OverlaysOpen   prometheus.Gauge

	// URL sync metrics
	SyncURLWrites    prometheus.Counter
	SyncURLReads     prometheus.Counter
	SyncConflicts    *prometheus.CounterVec // by strategy
	SyncDecodeErrors prometheus.Counter
	SyncPropsDropped prometheus.Counter

	// Platform input metrics
	BackResults   *prometheus.CounterVec // by result
	EscapeResults *prometheus.CounterVec // by result

	// Broadcast metrics
	BroadcastPeers    prometheus.Gauge
	BroadcastMessages prometheus.Counter
}

// New creates a metrics collector registered on its own registry. Using a
// dedicated registry keeps multiple adapters in tests from colliding on the
// default one.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		OverlaysOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "client_overlays_opened_total",
			Help: "Total overlays pushed onto the stack",
		}),
		OverlaysClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "client_overlays_closed_total",
			Help: "Total overlays removed from the stack",
		}),
		OverlaysOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "client_overlays_open",
			Help: "Overlays currently open",
		}),
		SyncURLWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "client_sync_url_writes_total",
			Help: "Debounced overlay-to-URL writes",
		}),
		SyncURLReads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "client_sync_url_reads_total",
			Help: "URL-to-overlay sync passes",
		}),
		SyncConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "client_sync_conflicts_total",
			Help: "URL/state overlay conflicts resolved",
		}, []string{"strategy"}),
		SyncDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "client_sync_decode_errors_total",
			Help: "Malformed overlay descriptors found in the URL",
		}),
		SyncPropsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "client_sync_props_dropped_total",
			Help: "Overlay props dropped from the URL for exceeding the length bound",
		}),
		BackResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "client_back_results_total",
			Help: "Back input results by outcome",
		}, []string{"result"}),
		EscapeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "client_escape_results_total",
			Help: "Escape input results by outcome",
		}, []string{"result"}),
		BroadcastPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "client_broadcast_peers",
			Help: "Windows connected to the sync hub",
		}),
		BroadcastMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "client_broadcast_messages_total",
			Help: "Messages fanned out by the sync hub",
		}),
	}

	reg.MustRegister(
		m.OverlaysOpened, m.OverlaysClosed, m.OverlaysOpen,
		m.SyncURLWrites, m.SyncURLReads, m.SyncConflicts,
		m.SyncDecodeErrors, m.SyncPropsDropped,
		m.BackResults, m.EscapeResults,
		m.BroadcastPeers, m.BroadcastMessages,
	)
	return m, reg
}
