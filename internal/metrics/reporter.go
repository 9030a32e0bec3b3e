package metrics

import (
	"context"
	"log/slog"
	"time"
)

// Reporter logs Stats snapshots on a fixed interval and once more when it
// stops. An interval of zero only logs the final snapshot.
type Reporter struct {
	stats    *Stats
	interval time.Duration
	logger   *slog.Logger
	done     chan struct{}
}

func NewReporter(stats *Stats, interval time.Duration, logger *slog.Logger) *Reporter {
	return &Reporter{
		stats:    stats,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (r *Reporter) Start(ctx context.Context) {
	go r.run(ctx)
}

// Done is closed after the final snapshot has been logged.
func (r *Reporter) Done() <-chan struct{} {
	return r.done
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			r.log("Performance stats")
		case <-ctx.Done():
			r.log("Final performance stats")
			return
		}
	}
}

func (r *Reporter) log(msg string) {
	snap := r.stats.Snapshot()
	r.logger.Info(msg,
		slog.Int64("total_queries", snap.TotalQueries),
		slog.Float64("avg_response_ms", snap.AvgResponseMs),
		slog.Int("max_concurrent", snap.MaxConcurrent),
		slog.Int("active", snap.Active),
		slog.Duration("uptime", snap.Uptime))
}
