package transport

import (
	"crypto/tls"
	"log/slog"
)

// DefaultPort is used for a configured address that names a bare host
// with no explicit port.
const DefaultPort = 6996

// Config configures a Client.
type Config struct {
	// Scheme is the single literal URI scheme accepted in
	// ServerAddresses, e.g. "msgist". Any other scheme fails fast with a
	// ConfigError rather than being silently dialed.
	Scheme string

	// ServerAddresses maps a server_id to its relay address, of the form
	// "<Scheme>://host[:port]".
	ServerAddresses map[string]string

	TLSConfig          *tls.Config
	InsecureSkipVerify bool

	Relay   Relay
	Logger  *slog.Logger
	Metrics MetricsRecorder
}

// MetricsRecorder is an optional observability seam the Client reports
// connection and packet events to. A nil Metrics field disables it; Apply
// installs the metrics package's Prometheus-backed implementation when
// the caller's configuration enables metrics.
type MetricsRecorder interface {
	ConnectionOpened(serverID string)
	ConnectionClosed(serverID string)
	ReconnectAttempt(serverID string)
	SubscriptionChanged(serverID string, count int)
	PacketSent(serverID, envelopeType string)
	PacketReceived(serverID, envelopeType string)
	DecodeError(serverID string)
}

type noopMetrics struct{}

func (noopMetrics) ConnectionOpened(string)             {}
func (noopMetrics) ConnectionClosed(string)             {}
func (noopMetrics) ReconnectAttempt(string)              {}
func (noopMetrics) SubscriptionChanged(string, int)      {}
func (noopMetrics) PacketSent(string, string)            {}
func (noopMetrics) PacketReceived(string, string)        {}
func (noopMetrics) DecodeError(string)                   {}
