package taskq

import "github.com/rs/zerolog"

// Options holds configuration options for the [Queue].
type Options struct {
	Logger          zerolog.Logger
	Metrics         MetricsHook
	InitialCapacity int
}

// Option is a function that configures [Options].
type Option func(*Options)

// WithLogger sets the logger used for queue events. Add and remove events
// are logged at debug level, rejections at warn level.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetricsHook sets the metrics hook for the [Queue].
func WithMetricsHook(hook MetricsHook) Option {
	return func(o *Options) {
		o.Metrics = hook
	}
}

// WithInitialCapacity preallocates room for n tasks.
func WithInitialCapacity(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.InitialCapacity = n
		}
	}
}
