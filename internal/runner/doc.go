// Package runner provides the benchmark engine for chunkfire.
//
// A benchmark runs a fixed number of independent upload sessions concurrently and
// aggregates their outcomes. The runner supports:
//   - A bounded number of sessions in flight (workers)
//   - Launch pacing (sessions started per second)
//   - Per-session result slots joined before aggregation
//
// # Basic Usage
//
// Create a runner with options and a session factory:
//
//	opts := runner.Options{
//		Concurrency: 10,
//		Factory: func(index int, id string) runner.Session {
//			return session.New(session.Options{ID: id, Logger: zerolog.Nop()})
//		},
//	}
//	result := runner.New(opts).Run(ctx)
//	fmt.Println(result.Summary.ThroughputMbps)
//
// # Failures
//
// A session that returns an error contributes a [Record] with Err set. It is counted
// against the success ratio and grouped by failure kind in the summary, but it never
// cancels the sessions running beside it.
package runner
