package workers

import (
	"context"
	"log/slog"
	"time"

	"chatline/observability"
)

// ReporterWorker periodically logs a snapshot of the pipeline metrics,
// so operators can follow throughput without hitting the stats endpoint.
type ReporterWorker struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	interval time.Duration
}

func NewReporterWorker(log *slog.Logger, monitor *observability.Monitor, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, monitor: monitor, interval: interval}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	started := time.Now()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// One last snapshot on the way out
			w.logStats(started)
			return nil
		case <-ticker.C:
			w.logStats(started)
		}
	}
}

// logStats emits the latest metrics snapshot at INFO level.
func (w *ReporterWorker) logStats(started time.Time) {
	stats := w.monitor.Snapshot()
	w.log.Info("pipeline snapshot",
		"uptime", time.Since(started).Round(time.Second).String(),
		"ingested", stats.MessagesIngested,
		"delivered", stats.MessagesDelivered,
		"dropped", stats.DeliveryDropped,
		"media", stats.MediaStored,
		"connected", stats.ConnectedUsers,
		"alloc_mb", stats.AllocMemMb,
	)
}
