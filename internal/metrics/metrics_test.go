package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/captchagate/captchagate/verification"
)

func TestMetrics_SessionStarted(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionStarted()
	m.SessionStarted()

	if got := testutil.ToFloat64(m.SessionsStarted); got != 2 {
		t.Errorf("Expected 2 started sessions, got %v", got)
	}
}

func TestMetrics_SessionRejected(t *testing.T) {
	tests := []struct {
		err    error
		reason string
	}{
		{err: verification.ErrNotConfigured, reason: "not_configured"},
		{err: verification.ErrWrongChannel, reason: "wrong_channel"},
		{err: verification.ErrSessionInProgress, reason: "in_progress"},
		{err: errors.New("render failed"), reason: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			m := New(prometheus.NewRegistry())

			m.SessionRejected(tt.err)

			if got := testutil.ToFloat64(m.SessionsRejected.WithLabelValues(tt.reason)); got != 1 {
				t.Errorf("Expected 1 rejection for %s, got %v", tt.reason, got)
			}
		})
	}
}

func TestMetrics_SessionResolved(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionResolved(verification.StateSucceeded, 3*time.Second)
	m.SessionResolved(verification.StateFailedTimeout, time.Minute)
	m.SessionResolved(verification.StateSucceeded, 5*time.Second)

	if got := testutil.ToFloat64(m.SessionsResolved.WithLabelValues("succeeded")); got != 2 {
		t.Errorf("Expected 2 succeeded sessions, got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsResolved.WithLabelValues("failed_timeout")); got != 1 {
		t.Errorf("Expected 1 timed out session, got %v", got)
	}
	if got := testutil.CollectAndCount(m.SessionDuration); got != 1 {
		t.Errorf("Expected 1 duration series, got %d", got)
	}
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	m.SessionStarted()
	m.SessionRejected(verification.ErrWrongChannel)
	m.SessionResolved(verification.StateCanceled, time.Second)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SessionStarted()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}
	if !strings.Contains(string(body), "captchagate_sessions_started_total 1") {
		t.Errorf("Expected started counter in output, got %s", body)
	}
}
