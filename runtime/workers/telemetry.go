package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-hub/contract"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker logs process health (CPU, RSS, status) together with
// the engine counters every metricInterval.
type TelemetryWorker struct {
	log            *slog.Logger
	stats          contract.IStatsSource
	metricInterval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, stats contract.IStatsSource,
	metricInterval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{
		log:            log,
		stats:          stats,
		metricInterval: metricInterval,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			counters := w.stats.Stats()
			w.log.Info("telemetry",
				"pid", os.Getpid(),
				"pid_status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"sessions", counters.Sessions,
				"channels", counters.Channels,
			)
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
