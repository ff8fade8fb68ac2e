package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSuccessAddsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := New(slog.New(slog.NewTextHandler(&buf, nil))).With("stage", "crypto")

	log.Success("Data saved", "rows", 3)

	out := buf.String()
	for _, want := range []string{"status=success", "stage=crypto", "rows=3", "Data saved"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestCaptureSharesEntriesAcrossWith(t *testing.T) {
	c := NewCapture()
	child := c.With("stage", "news")

	child.Warn("No recent news to save")
	c.Info("done")

	entries := c.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Attrs["stage"] != "news" {
		t.Errorf("expected stage attr on child entry, got %v", entries[0].Attrs)
	}
	if c.Count("WARN", "recent news") != 1 {
		t.Error("expected one matching warning")
	}
}
