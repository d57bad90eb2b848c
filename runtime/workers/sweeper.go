package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/murat48/zktexasholdem-sub001/contract"
	"github.com/murat48/zktexasholdem-sub001/observability"
)

// Sweeper evicts expired rooms on a fixed interval. The registry already
// sweeps lazily on its create and lookup paths; that offers no bounded
// staleness when traffic stops, which this worker provides for deployments
// that need it.
type Sweeper struct {
	log      *slog.Logger
	registry contract.IRegistry
	monitor  *observability.Monitor
	interval time.Duration
}

func NewSweeper(log *slog.Logger, registry contract.IRegistry, monitor *observability.Monitor, interval time.Duration) *Sweeper {
	return &Sweeper{log: log, registry: registry, monitor: monitor, interval: interval}
}

func (w *Sweeper) Run(ctx context.Context) error {
	w.log.Info("Starting eviction sweeper", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if evicted := w.registry.Sweep(); evicted > 0 {
				w.monitor.RoomsEvicted.Add(uint64(evicted))
				w.log.Info("Sweep evicted rooms", "count", evicted)
			}
		}
	}
}
