package ivfgo

import (
	"math/rand"
	"time"

	"github.com/hupe1980/ivfgo/resource"
)

// defaultMaxIterations bounds the clustering loop; Elkan's variant
// converges long before this on realistic data.
const defaultMaxIterations = 500

type options struct {
	logger        *Logger
	rng           *rand.Rand
	controller    *resource.Controller
	maxIterations int
}

func defaultOptions() *options {
	return &options{
		logger:        NoopLogger(),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		maxIterations: defaultMaxIterations,
	}
}

// Option configures a Cluster call.
type Option func(*options)

// WithLogger configures the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithRand configures the random source used for seeding and for padding
// or reseeding centers with random vectors. Pass a seeded source for
// deterministic clustering.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		if r != nil {
			o.rng = r
		}
	}
}

// WithController attaches a resource controller enforcing the scratch
// memory budget, the concurrent build cap and optional pacing.
// Without a controller no limits are enforced.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithMaxIterations overrides the iteration bound of the clustering loop.
// Values <= 0 keep the default.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}
