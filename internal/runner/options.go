package runner

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/torosent/chunkfire/internal/metrics"
	"github.com/torosent/chunkfire/internal/session"
)

// Session abstracts executing one upload session.
// *session.Runner satisfies it.
type Session interface {
	Run(ctx context.Context) (*session.Result, error)
}

// SessionFunc adapts a plain function to Session.
type SessionFunc func(ctx context.Context) (*session.Result, error)

// Run calls f(ctx).
func (f SessionFunc) Run(ctx context.Context) (*session.Result, error) { return f(ctx) }

// Factory builds the session for slot index. id is the ULID assigned to it.
type Factory func(index int, id string) Session

// Options configure the Runner.
type Options struct {
	Concurrency    int                             // sessions to run (at least 1)
	Workers        int                             // sessions in flight at once (0 means Concurrency)
	LaunchRate     float64                         // session starts per second (0 means unlimited)
	Factory        Factory                         // session builder (required)
	Collector      *metrics.Collector              // optional; created from Concurrency when nil
	Logger         zerolog.Logger                  // orchestrator log, not passed to sessions
	LimiterFactory func(rps float64) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Workers <= 0 || o.Workers > o.Concurrency {
		o.Workers = o.Concurrency
	}
	if o.LaunchRate < 0 || math.IsNaN(o.LaunchRate) {
		o.LaunchRate = 0
	}
	if o.Collector == nil {
		o.Collector = metrics.NewCollector(o.Concurrency)
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps float64) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// A burst of one keeps launches evenly spaced.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
