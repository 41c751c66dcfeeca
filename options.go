package reactor

import (
	"log/slog"
	"time"
)

const (
	// DefaultMaxConcurrency bounds concurrent step dispatch when
	// WithMaxConcurrency is not given.
	DefaultMaxConcurrency = 4
)

// Option configures a Builder and the Reactor it produces.
type Option func(*Builder)

// WithMaxConcurrency bounds how many steps may run concurrently.
// Values below one are treated as one.
func WithMaxConcurrency(n int) Option {
	return func(b *Builder) {
		b.maxConcurrency = n
	}
}

// WithTimeout bounds each whole execution. When it expires the
// execution is forced to failed with ErrExecutionTimeout and rollback
// runs, exactly as for any abort.
func WithTimeout(d time.Duration) Option {
	return func(b *Builder) {
		b.timeout = d
	}
}

// WithLogger sets the logger the reactor and its executions use.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger.With("component", "reactor")
	}
}

// WithClock replaces the time source used for start times, durations
// and log timestamps. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) {
		b.clock = clock
	}
}

// WithIDGenerator replaces the source of execution, trace and span
// identifiers. Defaults to random UUIDs.
func WithIDGenerator(gen IDGenerator) Option {
	return func(b *Builder) {
		b.ids = gen
	}
}

// WithObserver installs a lifecycle Observer, typically a metrics
// exporter. Defaults to a no-op.
func WithObserver(obs Observer) Option {
	return func(b *Builder) {
		b.observer = obs
	}
}
