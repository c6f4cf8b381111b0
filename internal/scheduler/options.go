package scheduler

import (
	"io"
	"log/slog"
)

type options struct {
	logger    *slog.Logger
	stepLimit int
}

// Option configures a Loop or a Virtual scheduler.
type Option func(*options)

// WithLogger sets the logger used for loop start/stop and task panics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStepLimit makes Virtual.Run fail with ErrStepLimit after n tasks.
// Zero means no limit. Loop ignores it.
func WithStepLimit(n int) Option {
	return func(o *options) { o.stepLimit = n }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
