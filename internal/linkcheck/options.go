package linkcheck

import "log/slog"

// DefaultConcurrency is the number of HEAD requests a Verifier keeps in flight.
const DefaultConcurrency = 16

// Option configures a Prober or Verifier.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	concurrency int
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithConcurrency sets the Verifier concurrency limit.
// Values below 1 keep the default.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
