package engine

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	logger     *zap.Logger
	metrics    *Metrics
	locker     Locker
	outbox     Outbox
	maxRetries int
	now        func() time.Time
}

// Option configures an Updater, Notifier or Enrollment.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLocker replaces the default in-process KeyedMutex.
func WithLocker(l Locker) Option {
	return func(o *options) {
		if l != nil {
			o.locker = l
		}
	}
}

// WithOutbox makes the Notifier park failed announcements for retry.
func WithOutbox(ob Outbox) Option {
	return func(o *options) { o.outbox = ob }
}

// WithMaxRetries bounds how often a conflicting progress write is retried.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:     zap.NewNop(),
		maxRetries: 3,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locker == nil {
		o.locker = NewKeyedMutex()
	}
	return o
}
