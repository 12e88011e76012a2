package telemetry

import (
	"log/slog"
	"sync"
)

// Sink receives finished spans. Implementations must be safe for
// concurrent use: sibling steps in one batch finish concurrently.
type Sink interface {
	Record(span Span)
}

// ──────────────────────────────────────────────────
// MemorySink
// ──────────────────────────────────────────────────

// MemorySink buffers spans in memory, in arrival order. Intended for
// tests and in-process inspection.
type MemorySink struct {
	mu    sync.Mutex
	spans []Span
}

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends the span to the buffer.
func (m *MemorySink) Record(span Span) {
	m.mu.Lock()
	m.spans = append(m.spans, span)
	m.mu.Unlock()
}

// Spans returns a snapshot of the recorded spans.
func (m *MemorySink) Spans() []Span {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Span, len(m.spans))
	copy(out, m.spans)
	return out
}

// Reset discards all recorded spans.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	m.spans = nil
	m.mu.Unlock()
}

// ──────────────────────────────────────────────────
// SlogSink
// ──────────────────────────────────────────────────

// SlogSink logs each span as a structured record.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink that logs spans through the given logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

// Record logs the span at info level.
func (s *SlogSink) Record(span Span) {
	s.logger.Info("span ended",
		slog.String("trace_id", span.TraceID),
		slog.String("span_id", span.SpanID),
		slog.String("parent_span_id", span.ParentSpanID),
		slog.String("operation", span.Operation),
		slog.Duration("duration", span.Duration),
		slog.String("status", string(span.Status)),
	)
}

// ──────────────────────────────────────────────────
// MultiSink
// ──────────────────────────────────────────────────

// MultiSink fans a span out to several sinks in order.
type MultiSink []Sink

// Record forwards the span to every sink.
func (m MultiSink) Record(span Span) {
	for _, s := range m {
		s.Record(span)
	}
}

// NopSink discards all spans.
type NopSink struct{}

// Record does nothing.
func (NopSink) Record(Span) {}
