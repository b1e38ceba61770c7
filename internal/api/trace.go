package api

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Tracer records backend exchanges for debugging.
// Implementations must be safe for concurrent use.
type Tracer interface {
	Trace(ex Exchange)
}

// Exchange describes one completed backend request.
type Exchange struct {
	Method   string
	URL      string
	Status   int
	Duration time.Duration
	Err      error
	At       time.Time
}

// NopTracer discards all exchanges. This is the default when no trace file
// is configured.
type NopTracer struct{}

// Trace is a no-op.
func (NopTracer) Trace(Exchange) {}

// traceEntry is the JSON structure written by FileTracer.
type traceEntry struct {
	Timestamp  string `json:"ts"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	Status     int    `json:"status,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// FileTracer writes one JSON object per exchange to an io.Writer (JSONL).
type FileTracer struct {
	w  io.Writer
	mu sync.Mutex
}

// NewFileTracer creates a FileTracer that writes to w.
func NewFileTracer(w io.Writer) *FileTracer {
	return &FileTracer{w: w}
}

// Trace writes a JSON line for the exchange. Serialisation errors are
// dropped so tracing never disrupts a request.
func (t *FileTracer) Trace(ex Exchange) {
	at := ex.At
	if at.IsZero() {
		at = time.Now()
	}
	entry := traceEntry{
		Timestamp:  at.UTC().Format(time.RFC3339Nano),
		Method:     ex.Method,
		URL:        ex.URL,
		Status:     ex.Status,
		DurationMS: ex.Duration.Milliseconds(),
	}
	if ex.Err != nil {
		entry.Error = ex.Err.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s\n", data)
}
