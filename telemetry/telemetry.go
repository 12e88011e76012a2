// Package telemetry defines the span-like records the engine emits at
// run and step boundaries, for consumption by an external collector.
//
// One trace ID spans an entire run; every step attempt gets its own
// span parented under the run span. The engine generates identifiers
// when the caller supplies none.
package telemetry

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Status of a finished span.
type Status string

const (
	// StatusOK means the spanned operation succeeded.
	StatusOK Status = "ok"
	// StatusError means the spanned operation failed.
	StatusError Status = "error"
)

// Span is an emitted boundary record. It is a value type: once handed
// to a Sink it is never mutated.
type Span struct {
	TraceID      string            `json:"trace_id"`
	SpanID       string            `json:"span_id"`
	ParentSpanID string            `json:"parent_span_id,omitempty"`
	Operation    string            `json:"operation_name"`
	StartTime    time.Time         `json:"start_time"`
	Duration     time.Duration     `json:"duration_ms"`
	Status       Status            `json:"status"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// NewSpanID returns a fresh 16-hex-character span identifier.
func NewSpanID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}
