package monitor

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"signserver/internal/logger"
)

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()

	log, err := logger.NewLogger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	return New(log)
}

func TestRecordAnalysis(t *testing.T) {
	m := newTestMonitor(t)

	m.RecordAnalysis(3, 120*time.Millisecond)
	m.RecordAnalysis(0, 45*time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.analysesTotal))
	require.Equal(t, 3.0, testutil.ToFloat64(m.detectionsTotal))
	require.Equal(t, 45.0, testutil.ToFloat64(m.analysisDuration))
}

func TestRecordError(t *testing.T) {
	m := newTestMonitor(t)

	m.RecordError()
	m.RecordError()

	require.Equal(t, 2.0, testutil.ToFloat64(m.errorsTotal))
	require.Equal(t, 0.0, testutil.ToFloat64(m.analysesTotal))
}

func TestHandler_ServesMetrics(t *testing.T) {
	m := newTestMonitor(t)
	m.RecordAnalysis(5, 80*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	require.True(t, strings.Contains(body, "analyses_total 1"), "missing analyses counter:\n%s", body)
	require.True(t, strings.Contains(body, "detections_total 5"), "missing detections counter:\n%s", body)
	require.True(t, strings.Contains(body, "analysis_duration_ms 80"), "missing duration gauge:\n%s", body)
}
