package peaks

import (
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Default option values.
const (
	DefaultProminenceThreshold = 500
	DefaultDominanceThreshold  = 100
	DefaultBorderWidth         = 2
)

// An Option sets an option on a peak search.
type Option func(*options)

type options struct {
	prominenceThreshold float64
	dominanceThreshold  float64
	orographicThreshold float64
	minHeight           float64
	borderWidth         int
	exact               bool
	concurrency         int
	saddleTimeout       time.Duration
	logger              zerolog.Logger
}

func newOptions(opts ...Option) (*options, error) {
	o := &options{
		prominenceThreshold: DefaultProminenceThreshold,
		dominanceThreshold:  DefaultDominanceThreshold,
		borderWidth:         DefaultBorderWidth,
		exact:               true,
		concurrency:         runtime.GOMAXPROCS(0),
		logger:              zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	switch {
	case o.prominenceThreshold < 0:
		return nil, fmt.Errorf("%w: negative prominence threshold %g", ErrInvalidInput, o.prominenceThreshold)
	case o.dominanceThreshold < 0:
		return nil, fmt.Errorf("%w: negative dominance threshold %g", ErrInvalidInput, o.dominanceThreshold)
	case o.orographicThreshold < 0:
		return nil, fmt.Errorf("%w: negative orographic dominance threshold %g", ErrInvalidInput, o.orographicThreshold)
	case o.minHeight < 0:
		return nil, fmt.Errorf("%w: negative minimum height %g", ErrInvalidInput, o.minHeight)
	case o.borderWidth < 0:
		return nil, fmt.Errorf("%w: negative border width %d", ErrInvalidInput, o.borderWidth)
	case o.concurrency < 1:
		return nil, fmt.Errorf("%w: concurrency %d", ErrInvalidInput, o.concurrency)
	case o.saddleTimeout < 0:
		return nil, fmt.Errorf("%w: negative saddle timeout %s", ErrInvalidInput, o.saddleTimeout)
	}
	return o, nil
}

// WithProminenceThreshold sets the minimum prominence, in elevation units.
func WithProminenceThreshold(prominence float64) Option {
	return func(o *options) {
		o.prominenceThreshold = prominence
	}
}

// WithDominanceThreshold sets the minimum dominance, in pixels.
func WithDominanceThreshold(dominance float64) Option {
	return func(o *options) {
		o.dominanceThreshold = dominance
	}
}

// WithOrographicDominanceThreshold sets the minimum ratio of prominence to
// height, as a percentage.
func WithOrographicDominanceThreshold(percent float64) Option {
	return func(o *options) {
		o.orographicThreshold = percent
	}
}

// WithMinHeight sets the minimum height of a peak.
func WithMinHeight(minHeight float64) Option {
	return func(o *options) {
		o.minHeight = minHeight
	}
}

// WithBorderWidth sets the width of the frame around the grid in which peaks
// are never reported.
func WithBorderWidth(borderWidth int) Option {
	return func(o *options) {
		o.borderWidth = borderWidth
	}
}

// WithExactRefinement sets whether candidates that pass the straight line
// bound are refined with an exact saddle search. Disabling it is faster but
// prominences may be overestimated; such peaks are marked Approximate.
func WithExactRefinement(exact bool) Option {
	return func(o *options) {
		o.exact = exact
	}
}

// WithConcurrency sets the number of candidates evaluated concurrently.
func WithConcurrency(concurrency int) Option {
	return func(o *options) {
		o.concurrency = concurrency
	}
}

// WithSaddleTimeout limits the duration of each exact saddle search. A
// candidate whose search times out is skipped and reported as an anomaly.
// Zero means no limit.
func WithSaddleTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.saddleTimeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
