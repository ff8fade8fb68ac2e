package domain

import (
	"errors"
	"testing"
	"time"
)

func TestRunSummary_RecordKeepsOrderAndFirstResult(t *testing.T) {
	s := NewRunSummary("run-1", time.Now())

	s.Record(Succeeded("currency", 1, time.Second))
	s.Record(Failed("news", errors.New("feed down"), time.Second))
	if s.Record(Succeeded("currency", 99, time.Second)) {
		t.Fatal("expected second record of currency to be rejected")
	}

	results := s.Results()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Stage() != "currency" || results[1].Stage() != "news" {
		t.Errorf("unexpected order: %s, %s", results[0].Stage(), results[1].Stage())
	}
	if r, _ := s.Get("currency"); r.Rows() != 1 {
		t.Errorf("expected first currency result to be kept, got rows=%d", r.Rows())
	}
	if s.SuccessCount() != 1 || s.AllSucceeded() {
		t.Errorf("unexpected counts: success=%d all=%v", s.SuccessCount(), s.AllSucceeded())
	}
}

func TestStageResult_String(t *testing.T) {
	tests := []struct {
		name   string
		result StageResult
		want   string
	}{
		{"success", Succeeded("crypto", 10, 0), "SUCCESS"},
		{"failure", Failed("crypto", ErrNoDataExtracted, 0), "FAILED: no data extracted"},
		{"nil error", Failed("crypto", nil, 0), "FAILED: unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllProvidersExhaustedError_Unwrap(t *testing.T) {
	transport := &TransportError{Method: "GET", URL: "http://x", StatusCode: 503, Attempts: 6}
	err := &AllProvidersExhaustedError{
		Domain: "crypto",
		Asset:  "bitcoin",
		Failures: []ProviderFailure{
			{Provider: "coingecko", Err: transport},
			{Provider: "binance", Err: ErrProviderInvalidResponse},
		},
	}

	var te *TransportError
	if !errors.As(err, &te) || te.StatusCode != 503 {
		t.Errorf("expected to unwrap TransportError, got %v", te)
	}
	if !errors.Is(err, ErrProviderInvalidResponse) {
		t.Error("expected errors.Is to find ErrProviderInvalidResponse")
	}
}
