package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vietddude/marketetl/internal/core/domain"
)

type staticSource struct {
	summary *domain.RunSummary
}

func (s staticSource) LastSummary() *domain.RunSummary { return s.summary }

func summaryOf(finished time.Time, results ...domain.StageResult) *domain.RunSummary {
	s := domain.NewRunSummary("run-1", finished.Add(-time.Minute))
	for _, r := range results {
		s.Record(r)
	}
	s.FinishedAt = finished
	return s
}

func TestMonitor_CheckHealth(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ok := domain.Succeeded("currency", 1, time.Second)
	bad := domain.Failed("news", errors.New("feed down"), time.Second)

	tests := []struct {
		name    string
		summary *domain.RunSummary
		want    SystemStatus
	}{
		{"no run yet", nil, StatusDegraded},
		{"all succeeded", summaryOf(now, ok), StatusHealthy},
		{"partial failure", summaryOf(now, ok, bad), StatusDegraded},
		{"all failed", summaryOf(now, bad), StatusCritical},
		{"stale", summaryOf(now.Add(-5*time.Hour), ok), StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(staticSource{tt.summary}, 3*time.Hour)
			m.now = func() time.Time { return now }
			require.Equal(t, tt.want, m.CheckHealth().SystemStatus)
		})
	}
}

func TestServer_Endpoints(t *testing.T) {
	now := time.Now()
	bad := domain.Failed("news", errors.New("feed down"), time.Second)
	m := NewMonitor(staticSource{summaryOf(now, bad)}, 0)
	srv := httptest.NewServer(NewServer(m, 0).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "critical", body["status"])

	detailed, err := http.Get(srv.URL + "/health/detailed")
	require.NoError(t, err)
	defer detailed.Body.Close()

	var report HealthReport
	require.NoError(t, json.NewDecoder(detailed.Body).Decode(&report))
	require.Len(t, report.Stages, 1)
	require.Equal(t, "feed down", report.Stages[0].Reason)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	require.Equal(t, http.StatusOK, metrics.StatusCode)
}
