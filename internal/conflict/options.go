package conflict

import (
	"time"

	"github.com/liveboard/liveboard/internal/domain/dedupe"
	"github.com/liveboard/liveboard/pkg/logger"
)

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithHighlightTTL sets how long a remote-change highlight lingers.
func WithHighlightTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		if ttl > 0 {
			c.highlightTTL = ttl
		}
	}
}

// WithDeduper replaces the message-id deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(c *Coordinator) {
		if d != nil {
			c.deduper = d
		}
	}
}

// WithConflictHandler registers a callback invoked when a cell enters
// the conflicted state. The callback runs on the listener goroutine
// and must not block.
func WithConflictHandler(fn func(Conflict)) Option {
	return func(c *Coordinator) {
		c.onConflict = fn
	}
}

// WithLogger sets a custom logger for the coordinator.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source. Tests use it to expire
// highlights deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}
