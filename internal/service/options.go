package service

import "time"

type options struct {
	now func() time.Time
}

// Option configures a workflow service
type Option func(*options)

// WithClock overrides the time source. Tests use it to move past deadlines.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
