// Package metrics exposes Prometheus metrics of verification sessions.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/captchagate/captchagate/verification"
)

// Metrics records verification session outcomes.
// It satisfies verification.Recorder.
type Metrics struct {
	// Sessions whose captcha was delivered
	SessionsStarted prometheus.Counter

	// /verify calls refused before a captcha was generated, by reason
	SessionsRejected *prometheus.CounterVec

	// Terminal session states
	SessionsResolved *prometheus.CounterVec

	// Time from captcha delivery to resolution
	SessionDuration prometheus.Histogram
}

var _ verification.Recorder = (*Metrics)(nil)

// New creates a new Metrics instance with every metric registered to reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "captchagate_sessions_started_total",
			Help: "Total verification sessions whose captcha was delivered",
		}),

		SessionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "captchagate_sessions_rejected_total",
			Help: "Total /verify calls refused before a captcha was generated, by reason",
		}, []string{"reason"}), // reason: "not_configured", "wrong_channel", "in_progress", "other"

		SessionsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "captchagate_sessions_resolved_total",
			Help: "Total verification sessions by terminal state",
		}, []string{"state"}),

		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "captchagate_session_duration_seconds",
			Help:    "Duration from captcha delivery to session resolution",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		}),
	}
}

// SessionStarted records a delivered captcha.
func (m *Metrics) SessionStarted() {
	if m != nil {
		m.SessionsStarted.Inc()
	}
}

// SessionRejected records a refused /verify call.
func (m *Metrics) SessionRejected(err error) {
	if m != nil {
		m.SessionsRejected.WithLabelValues(rejectReason(err)).Inc()
	}
}

// SessionResolved records a terminal state and the session's lifetime.
func (m *Metrics) SessionResolved(state verification.State, elapsed time.Duration) {
	if m != nil {
		m.SessionsResolved.WithLabelValues(state.String()).Inc()
		m.SessionDuration.Observe(elapsed.Seconds())
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, verification.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, verification.ErrWrongChannel):
		return "wrong_channel"
	case errors.Is(err, verification.ErrSessionInProgress):
		return "in_progress"
	default:
		return "other"
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
