// Package metrics provides the process-wide performance counters of the
// lookup server.
//
// A single Stats value is shared by every connection handler and tracks:
//   - Total queries answered
//   - Running mean of search time in milliseconds
//   - Handlers currently active and the high-water mark of concurrent handlers
//
// Each update holds the mutex only for the update itself, never for the whole
// request. Stats are not served to clients; a Reporter logs periodic snapshots
// for diagnostics.
//
// Example usage:
//
//	stats := metrics.NewStats()
//	reporter := metrics.NewReporter(stats, 30*time.Second, logger)
//	reporter.Start(ctx)
//
//	stats.Begin()
//	defer stats.End()
//	found, elapsed := search.Run(alg, query, lines)
//	stats.Record(elapsed)
package metrics
