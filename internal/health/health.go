// Package health reports pipeline health from the most recent run.
package health

import (
	"time"

	"github.com/vietddude/marketetl/internal/core/domain"
)

// SystemStatus represents the overall health state of the pipeline or a stage.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// SummarySource exposes the last completed run.
type SummarySource interface {
	LastSummary() *domain.RunSummary
}

// StageHealth contains the outcome of a single stage in the last run.
type StageHealth struct {
	Stage      string       `json:"stage"`
	Status     SystemStatus `json:"status"`
	Rows       int          `json:"rows"`
	DurationMS int64        `json:"duration_ms"`
	Reason     string       `json:"reason,omitempty"`
}

// HealthReport contains the full health report.
type HealthReport struct {
	SystemStatus SystemStatus  `json:"system_status"`
	RunID        string        `json:"run_id,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Succeeded    int           `json:"succeeded"`
	Total        int           `json:"total"`
	Stages       []StageHealth `json:"stages"`
	Message      string        `json:"message,omitempty"`
}

// Monitor turns run summaries into health reports.
type Monitor struct {
	source SummarySource
	maxAge time.Duration
	now    func() time.Time
}

// NewMonitor creates a monitor. A run older than maxAge is critical; zero
// disables the staleness check.
func NewMonitor(source SummarySource, maxAge time.Duration) *Monitor {
	return &Monitor{source: source, maxAge: maxAge, now: time.Now}
}

// CheckHealth builds a report from the last completed run.
func (m *Monitor) CheckHealth() HealthReport {
	summary := m.source.LastSummary()
	if summary == nil {
		return HealthReport{
			SystemStatus: StatusDegraded,
			Stages:       []StageHealth{},
			Message:      "no run completed yet",
		}
	}

	finished := summary.FinishedAt
	report := HealthReport{
		RunID:      summary.RunID,
		FinishedAt: &finished,
		Succeeded:  summary.SuccessCount(),
		Total:      summary.Len(),
		Stages:     make([]StageHealth, 0, summary.Len()),
	}
	for _, r := range summary.Results() {
		sh := StageHealth{
			Stage:      r.Stage(),
			Status:     StatusHealthy,
			Rows:       r.Rows(),
			DurationMS: r.Duration().Milliseconds(),
		}
		if !r.OK() {
			sh.Status = StatusCritical
			sh.Reason = r.Reason()
		}
		report.Stages = append(report.Stages, sh)
	}

	switch {
	case report.Total > 0 && report.Succeeded == 0:
		report.SystemStatus = StatusCritical
		report.Message = "every stage failed"
	case report.Succeeded < report.Total:
		report.SystemStatus = StatusDegraded
	default:
		report.SystemStatus = StatusHealthy
	}

	if m.maxAge > 0 && !finished.IsZero() && m.now().Sub(finished) > m.maxAge {
		report.SystemStatus = StatusCritical
		report.Message = "last run is stale"
	}
	return report
}
