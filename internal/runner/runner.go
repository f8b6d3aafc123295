package runner

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/chunkfire/internal/metrics"
	"github.com/torosent/chunkfire/internal/pool"
)

// ErrNoFactory is returned in every record when Options.Factory is nil.
var ErrNoFactory = errors.New("runner: no session factory configured")

// Record is the outcome of one session slot. Err is nil on success.
type Record struct {
	Index    int
	ID       ulid.ULID
	Duration time.Duration
	Bytes    int64
	Chunks   int64
	Received int64
	Status   string
	Err      error
}

func (r Record) sample() metrics.Sample {
	return metrics.Sample{Duration: r.Duration, Bytes: r.Bytes, Chunks: r.Chunks, Err: r.Err}
}

// Result captures execution summary.
type Result struct {
	Records  []Record
	Summary  metrics.Summary
	Duration time.Duration // wall clock of the whole run
}

// Runner launches benchmark sessions through a bounded pool.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Run starts every session, waits for all of them and aggregates. Session failures
// become records and never stop their siblings. Cancelling ctx stops further
// launches; sessions that never started are recorded with the context error.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	n := r.opt.Concurrency
	log := r.opt.Logger
	collector := r.opt.Collector
	collector.Start()

	log.Info().
		Int("sessions", n).
		Int("workers", r.opt.Workers).
		Float64("launch_rate", r.opt.LaunchRate).
		Msg("benchmark started")

	records := make([]Record, n)
	futures := make([]*pool.Future[Record], n)
	limiter := r.opt.LimiterFactory(r.opt.LaunchRate)
	p := pool.New(ctx, r.opt.Workers)

	for i := 0; i < n; i++ {
		if err := limiter.Wait(ctx); err != nil {
			// Remaining slots stay nil and are filled in below.
			break
		}
		i := i
		futures[i] = pool.Submit(p, func(ctx context.Context) (Record, error) {
			rec := r.runOne(ctx, i)
			collector.Record(rec.sample())
			return rec, nil
		})
	}
	log.Debug().
		Int64("submitted", p.Submitted()).
		Int64("in_flight", p.Running()).
		Msg("session launches finished")
	p.Wait()

	for i, f := range futures {
		if f == nil {
			records[i] = r.skipped(i, ctx.Err())
			continue
		}
		rec, err := f.Result()
		if err != nil {
			// The task never ran or panicked before recording.
			rec = r.skipped(i, err)
		}
		records[i] = rec
	}

	summary := collector.Summary()
	elapsed := time.Since(start)
	log.Info().
		Int("successes", summary.Successes).
		Int("requested", summary.Requested).
		Float64("throughput_mbps", summary.ThroughputMbps).
		Dur("elapsed", elapsed).
		Msg("benchmark finished")

	return Result{Records: records, Summary: summary, Duration: elapsed}
}

func (r *Runner) runOne(ctx context.Context, index int) Record {
	id := ulid.Make()
	rec := Record{Index: index, ID: id}
	if r.opt.Factory == nil {
		rec.Err = ErrNoFactory
		return rec
	}

	res, err := r.opt.Factory(index, id.String()).Run(ctx)
	if err != nil {
		rec.Err = err
		r.opt.Logger.Warn().Int("session", index).Str("id", id.String()).Err(err).Msg("session failed")
		return rec
	}
	rec.Duration = res.Stats.Duration
	rec.Bytes = res.Stats.Bytes
	rec.Chunks = res.Stats.Chunks
	rec.Received = res.Stats.BytesReceived
	if res.Response != nil {
		rec.Status = res.Response.StatusLine()
	}
	r.opt.Logger.Debug().
		Int("session", index).
		Str("id", id.String()).
		Dur("duration", rec.Duration).
		Int64("bytes", rec.Bytes).
		Msg("session finished")
	return rec
}

func (r *Runner) skipped(index int, err error) Record {
	if err == nil {
		err = context.Canceled
	}
	rec := Record{Index: index, Err: err}
	r.opt.Collector.Record(rec.sample())
	return rec
}
