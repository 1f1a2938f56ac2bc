package transport

import (
	"log/slog"
	"time"

	"github.com/relaybridge/msgist/logging"
)

// ReconnectDelay is the constant inter-attempt delay used by the
// reconnector, per the spec's deliberately simple (non-exponential)
// backoff policy.
const ReconnectDelay = 10 * time.Second

// ReconnectMaxAttempts bounds how many times a single server_id is
// retried before the reconnector gives up and logs.
const ReconnectMaxAttempts = 150

// reconnector runs a single serial worker fed through one channel so that
// at most one reconnect pipeline exists per process, preventing reconnect
// storms across many simultaneously-failing servers.
type reconnector struct {
	requests    chan string
	connect     func(serverID string) error
	logger      *slog.Logger
	metrics     MetricsRecorder
	done        chan struct{}
	delay       time.Duration
	maxAttempts int
}

func newReconnector(logger *slog.Logger, metrics MetricsRecorder, connect func(serverID string) error) *reconnector {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	r := &reconnector{
		requests:    make(chan string, 256),
		connect:     connect,
		logger:      logger,
		metrics:     metrics,
		done:        make(chan struct{}),
		delay:       ReconnectDelay,
		maxAttempts: ReconnectMaxAttempts,
	}
	go r.run()
	return r
}

// schedule enqueues serverID for reconnection. It blocks only while the
// request queue is full (or until stop); a server_id already queued is
// simply retried again once its turn comes.
func (r *reconnector) schedule(serverID string) {
	select {
	case r.requests <- serverID:
	case <-r.done:
	}
}

func (r *reconnector) run() {
	defer recoverWithLog(r.logger, "transport.reconnector")

	for {
		select {
		case serverID := <-r.requests:
			r.drive(serverID)
		case <-r.done:
			return
		}
	}
}

func (r *reconnector) drive(serverID string) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		select {
		case <-r.done:
			return
		default:
		}

		r.metrics.ReconnectAttempt(serverID)
		if err := r.connect(serverID); err == nil {
			return
		} else {
			r.logger.Warn("reconnect attempt failed",
				logging.KeyServerID, serverID,
				logging.KeyAttempt, attempt,
				logging.KeyError, err)
		}

		select {
		case <-time.After(r.delay):
		case <-r.done:
			return
		}
	}

	r.logger.Error("reconnect attempts exhausted, abandoning server",
		logging.KeyServerID, serverID,
		logging.KeyAttempt, r.maxAttempts)
}

func (r *reconnector) stop() {
	close(r.done)
}
