package logging

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is one captured log call.
type Entry struct {
	Level   string
	Message string
	Attrs   map[string]any
}

type captureSink struct {
	mu      sync.Mutex
	entries []Entry
}

// Capture is an in-memory Logger for tests.
type Capture struct {
	sink  *captureSink
	attrs []any
}

// NewCapture returns an empty Capture.
func NewCapture() *Capture {
	return &Capture{sink: &captureSink{}}
}

func (c *Capture) Debug(msg string, args ...any)   { c.add("DEBUG", msg, args) }
func (c *Capture) Info(msg string, args ...any)    { c.add("INFO", msg, args) }
func (c *Capture) Warn(msg string, args ...any)    { c.add("WARN", msg, args) }
func (c *Capture) Error(msg string, args ...any)   { c.add("ERROR", msg, args) }
func (c *Capture) Success(msg string, args ...any) { c.add("SUCCESS", msg, args) }

func (c *Capture) With(args ...any) Logger {
	attrs := append(append([]any{}, c.attrs...), args...)
	return &Capture{sink: c.sink, attrs: attrs}
}

func (c *Capture) add(level, msg string, args []any) {
	all := append(append([]any{}, c.attrs...), args...)
	attrs := make(map[string]any, len(all)/2)
	for i := 0; i+1 < len(all); i += 2 {
		attrs[fmt.Sprint(all[i])] = all[i+1]
	}

	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	c.sink.entries = append(c.sink.entries, Entry{Level: level, Message: msg, Attrs: attrs})
}

// Entries returns a copy of everything logged so far.
func (c *Capture) Entries() []Entry {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	return append([]Entry(nil), c.sink.entries...)
}

// Count returns how many entries at level contain substr.
func (c *Capture) Count(level, substr string) int {
	n := 0
	for _, e := range c.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}
