package livesync

import (
	"log/slog"
	"time"

	"github.com/mmcdole/awsync/internal/domain"
)

const defaultFetchTimeout = 30 * time.Second

type options struct {
	policy       Policy
	store        domain.SnapshotStore
	logger       *slog.Logger
	fetchTimeout time.Duration
}

// Option configures a sync unit
type Option func(*options)

// WithPolicy sets the event policy. Account units ignore it.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithStore seeds snapshots from store and writes fetched values through to it
func WithStore(store domain.SnapshotStore) Option {
	return func(o *options) { o.store = store }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithFetchTimeout bounds each fetch. Zero or negative disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetchTimeout = d }
}

func buildOptions(opts []Option) options {
	o := options{
		policy:       PolicyFine,
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
