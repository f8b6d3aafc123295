// Package metrics aggregates benchmark session outcomes.
//
// Each finished session becomes a [Sample]. Failed sessions only count against the
// success ratio and are grouped by failure kind; successful ones feed the byte totals,
// duration statistics and throughput:
//
//	collector := metrics.NewCollector(10)
//	collector.Record(metrics.Sample{Duration: d, Bytes: n})
//	summary := collector.Summary()
//
// Sessions run in parallel, so the wall span of a run is the longest successful
// session and throughput is computed over it:
//
//	Mbps = bytes × 8 ÷ (span seconds × 1,048,576)
//
// Duration percentiles come from an HDR histogram with microsecond resolution.
//
// # Thread Safety
//
// Collector.Record may be called from any number of session goroutines. [Summarize]
// is a pure function over a slice of samples.
package metrics
