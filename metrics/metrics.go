// Package metrics provides Prometheus instrumentation for a msgist
// instance, implementing transport.MetricsRecorder so the transport
// client can report without depending on Prometheus itself.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "msgist"

// Metrics holds every Prometheus collector a Library instance reports to.
// When built with enabled=false, every collector field is left nil and
// every method is a no-op, checked once per call via the enabled flag —
// so callers never need to nil-check Metrics themselves.
type Metrics struct {
	enabled bool

	ConnectionsOpen   *prometheus.GaugeVec
	ReconnectAttempts *prometheus.CounterVec
	SubscribedRooms   *prometheus.GaugeVec
	InboxPending      prometheus.Gauge

	PacketsSent     *prometheus.CounterVec
	PacketsReceived *prometheus.CounterVec
	DecodeErrors    *prometheus.CounterVec

	ResourceCacheHits       prometheus.Counter
	ResourceCacheDownloads  prometheus.Counter
	ResourceDownloadErrors  prometheus.Counter
	ResourceDownloadLatency prometheus.Histogram
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns the process-wide enabled Metrics instance, registered
// against prometheus.DefaultRegisterer on first use.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = newWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New creates a Metrics instance. When enabled is false, it returns a
// struct whose methods are no-ops and registers nothing with Prometheus.
func New(enabled bool) *Metrics {
	if !enabled {
		return &Metrics{enabled: false}
	}
	return newWithRegistry(prometheus.DefaultRegisterer)
}

func newWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		enabled: true,

		ConnectionsOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_open",
			Help:      "Whether a relay connection is currently open, by server_id",
		}, []string{"server_id"}),
		ReconnectAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Total reconnect attempts by server_id",
		}, []string{"server_id"}),
		SubscribedRooms: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribed_rooms",
			Help:      "Number of rooms currently subscribed, by server_id",
		}, []string{"server_id"}),
		InboxPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inbox_pending",
			Help:      "Number of request/response correlations awaiting a reply",
		}),

		PacketsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Total packets sent by server_id and envelope type",
		}, []string{"server_id", "envelope_type"}),
		PacketsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Total packets received by server_id and envelope type",
		}, []string{"server_id", "envelope_type"}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total packets dropped for failing to decode or validate, by server_id",
		}, []string{"server_id"}),

		ResourceCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_cache_hits_total",
			Help:      "Total resource lookups satisfied without a download",
		}),
		ResourceCacheDownloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_cache_downloads_total",
			Help:      "Total resource downloads performed",
		}),
		ResourceDownloadErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_download_errors_total",
			Help:      "Total resource downloads that failed",
		}),
		ResourceDownloadLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resource_download_latency_seconds",
			Help:      "Histogram of resource download latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 13},
		}),
	}
}

// The methods below satisfy transport.MetricsRecorder without importing
// the transport package, keeping metrics a leaf dependency.

func (m *Metrics) ConnectionOpened(serverID string) {
	if !m.enabled {
		return
	}
	m.ConnectionsOpen.WithLabelValues(serverID).Set(1)
}

func (m *Metrics) ConnectionClosed(serverID string) {
	if !m.enabled {
		return
	}
	m.ConnectionsOpen.WithLabelValues(serverID).Set(0)
}

func (m *Metrics) ReconnectAttempt(serverID string) {
	if !m.enabled {
		return
	}
	m.ReconnectAttempts.WithLabelValues(serverID).Inc()
}

func (m *Metrics) SubscriptionChanged(serverID string, count int) {
	if !m.enabled {
		return
	}
	m.SubscribedRooms.WithLabelValues(serverID).Set(float64(count))
}

func (m *Metrics) PacketSent(serverID, envelopeType string) {
	if !m.enabled {
		return
	}
	m.PacketsSent.WithLabelValues(serverID, envelopeType).Inc()
}

func (m *Metrics) PacketReceived(serverID, envelopeType string) {
	if !m.enabled {
		return
	}
	m.PacketsReceived.WithLabelValues(serverID, envelopeType).Inc()
}

func (m *Metrics) DecodeError(serverID string) {
	if !m.enabled {
		return
	}
	m.DecodeErrors.WithLabelValues(serverID).Inc()
}

// ResourceCacheHit records a resource lookup satisfied from cache.
func (m *Metrics) ResourceCacheHit() {
	if !m.enabled {
		return
	}
	m.ResourceCacheHits.Inc()
}

// ResourceDownload records a completed download attempt, successful or
// not, along with its latency.
func (m *Metrics) ResourceDownload(seconds float64, err error) {
	if !m.enabled {
		return
	}
	m.ResourceCacheDownloads.Inc()
	m.ResourceDownloadLatency.Observe(seconds)
	if err != nil {
		m.ResourceDownloadErrors.Inc()
	}
}
