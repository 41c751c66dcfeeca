package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// executionIDKey is the log attribute that scopes captured records.
// The engine attaches it to every execution-scoped log line.
const executionIDKey = "execution_id"

// LogEntry is a single captured log record with structured data.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes"`
}

// Collector provides thread-safe storage for captured logs, grouped by
// execution ID.
type Collector struct {
	mu   sync.RWMutex
	logs map[string][]LogEntry
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		logs: make(map[string][]LogEntry),
	}
}

// Append stores a log entry under the given execution ID.
func (c *Collector) Append(executionID string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs[executionID] = append(c.logs[executionID], entry)
}

// Logs returns a copy of the entries captured for one execution.
func (c *Collector) Logs(executionID string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, ok := c.logs[executionID]
	if !ok {
		return nil
	}
	out := make([]LogEntry, len(logs))
	copy(out, logs)
	return out
}

// All returns a copy of every captured entry, grouped by execution ID.
func (c *Collector) All() map[string][]LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]LogEntry, len(c.logs))
	for id, logs := range c.logs {
		cp := make([]LogEntry, len(logs))
		copy(cp, logs)
		out[id] = cp
	}
	return out
}

// Clear removes all captured entries.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = make(map[string][]LogEntry)
}

// CapturingHandler wraps an slog.Handler, capturing records that carry
// an execution_id attribute while passing everything through. Wrap the
// base handler once; records are grouped by whatever execution ID they
// carry, so one wrapped logger serves any number of executions.
type CapturingHandler struct {
	underlying slog.Handler
	collector  *Collector
	attrs      []slog.Attr // accumulated via WithAttrs
	groups     []string    // accumulated via WithGroup
}

// NewCapturingHandler creates a CapturingHandler that records to
// collector and forwards to underlying.
func NewCapturingHandler(underlying slog.Handler, collector *Collector) *CapturingHandler {
	return &CapturingHandler{
		underlying: underlying,
		collector:  collector,
	}
}

// Enabled always returns true so every level reaches Handle and can be
// captured. The underlying handler still applies its own level filter
// for output.
func (h *CapturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

// Handle captures the record when it is scoped to an execution, then
// passes it to the underlying handler.
func (h *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := LogEntry{
		Time:       r.Time,
		Level:      r.Level.String(),
		Message:    r.Message,
		Attributes: make(map[string]any, r.NumAttrs()+len(h.attrs)),
	}

	executionID := ""
	for _, attr := range h.attrs {
		if attr.Key == executionIDKey {
			executionID = attr.Value.Resolve().String()
		}
		entry.Attributes[attr.Key] = attrValue(attr.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == executionIDKey {
			executionID = a.Value.Resolve().String()
		}
		entry.Attributes[a.Key] = attrValue(a.Value)
		return true
	})

	if executionID != "" {
		h.collector.Append(executionID, entry)
	}

	if !h.underlying.Enabled(ctx, r.Level) {
		return nil
	}
	return h.underlying.Handle(ctx, r)
}

// WithAttrs returns a new CapturingHandler so capture survives .With()
// chains, which is how the engine attaches execution_id.
func (h *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(merged, h.attrs)
	copy(merged[len(h.attrs):], attrs)

	return &CapturingHandler{
		underlying: h.underlying.WithAttrs(attrs),
		collector:  h.collector,
		attrs:      merged,
		groups:     h.groups,
	}
}

// WithGroup returns a new CapturingHandler so capture survives
// .WithGroup() chains.
func (h *CapturingHandler) WithGroup(name string) slog.Handler {
	groups := make([]string, len(h.groups)+1)
	copy(groups, h.groups)
	groups[len(h.groups)] = name

	return &CapturingHandler{
		underlying: h.underlying.WithGroup(name),
		collector:  h.collector,
		attrs:      h.attrs,
		groups:     groups,
	}
}

// attrValue converts a slog.Value to a plain value suitable for the
// Attributes map. Errors become strings, groups become nested maps.
func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time()
	case slog.KindGroup:
		attrs := v.Group()
		group := make(map[string]any, len(attrs))
		for _, attr := range attrs {
			group[attr.Key] = attrValue(attr.Value)
		}
		return group
	default:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	}
}
