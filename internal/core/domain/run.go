package domain

import (
	"fmt"
	"time"
)

type StageStatus string

const (
	StageSuccess StageStatus = "SUCCESS"
	StageFailed  StageStatus = "FAILED"
)

// StageResult is the outcome of one stage run. Fields are unexported so a
// recorded result cannot be changed afterwards.
type StageResult struct {
	stage    string
	status   StageStatus
	reason   string
	rows     int
	duration time.Duration
}

// Succeeded builds a successful result.
func Succeeded(stage string, rows int, duration time.Duration) StageResult {
	return StageResult{stage: stage, status: StageSuccess, rows: rows, duration: duration}
}

// Failed builds a failed result carrying err's message.
func Failed(stage string, err error, duration time.Duration) StageResult {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return StageResult{stage: stage, status: StageFailed, reason: reason, duration: duration}
}

func (r StageResult) Stage() string           { return r.stage }
func (r StageResult) Status() StageStatus     { return r.status }
func (r StageResult) Reason() string          { return r.reason }
func (r StageResult) Rows() int               { return r.rows }
func (r StageResult) Duration() time.Duration { return r.duration }
func (r StageResult) OK() bool                { return r.status == StageSuccess }

func (r StageResult) String() string {
	if r.OK() {
		return string(StageSuccess)
	}
	return fmt.Sprintf("%s: %s", StageFailed, r.reason)
}

// RunSummary is the ordered outcome of one orchestrator invocation.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	// Skipped is set when the run never started, e.g. another run held the lock.
	Skipped bool

	order   []string
	results map[string]StageResult
}

// NewRunSummary starts an empty summary.
func NewRunSummary(runID string, startedAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		StartedAt: startedAt,
		results:   make(map[string]StageResult),
	}
}

// Record stores r under its stage name. A stage already recorded keeps its
// first result and Record reports false.
func (s *RunSummary) Record(r StageResult) bool {
	if _, ok := s.results[r.stage]; ok {
		return false
	}
	s.order = append(s.order, r.stage)
	s.results[r.stage] = r
	return true
}

// Get returns the result recorded for stage.
func (s *RunSummary) Get(stage string) (StageResult, bool) {
	r, ok := s.results[stage]
	return r, ok
}

// Results returns results in the order they were recorded.
func (s *RunSummary) Results() []StageResult {
	out := make([]StageResult, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.results[name])
	}
	return out
}

// Len returns the number of recorded stages.
func (s *RunSummary) Len() int {
	return len(s.order)
}

// SuccessCount returns how many recorded stages succeeded.
func (s *RunSummary) SuccessCount() int {
	n := 0
	for _, r := range s.results {
		if r.OK() {
			n++
		}
	}
	return n
}

// AllSucceeded reports whether every recorded stage succeeded.
func (s *RunSummary) AllSucceeded() bool {
	return s.SuccessCount() == s.Len()
}
