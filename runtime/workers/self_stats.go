package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"chatline/domain"
	"chatline/domain/event"
)

// SelfStatsWorker samples the server's own process (CPU, RSS, OS status)
// on a fixed interval and publishes the result as telemetry.
type SelfStatsWorker struct {
	log            *slog.Logger
	telemetryChan  chan event.Event
	metricInterval time.Duration
}

func NewSelfStatsWorker(log *slog.Logger,
	telemetryChan chan event.Event,
	metricInterval time.Duration) *SelfStatsWorker {
	return &SelfStatsWorker{
		log:            log,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
	}
}

func (w *SelfStatsWorker) Run(ctx context.Context) error {
	pid := int32(os.Getpid())
	p, err := process.NewProcess(pid)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping self stats sampling")
			return nil
		case <-ticker.C:
			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			sample := event.Event{
				Type:      event.ProcessStatsType,
				CreatedAt: time.Now().UTC(),
				Payload: event.ProcessStats{
					PID:        pid,
					Status:     string(domain.ToStatus(status)),
					Cpu:        cpu,
					Ram:        rss,
					Goroutines: runtime.NumGoroutine(),
				},
			}

			select {
			case <-ctx.Done():
				return nil
			case w.telemetryChan <- sample:
			default:
				w.log.Debug("Observability telemetry event lost")
			}
		}
	}
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
