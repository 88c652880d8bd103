package workers

import (
	"chat-relay/contract"
	"context"
	"log/slog"
	"time"
)

// RetentionWorker enforces the history TTL. The log would otherwise grow
// without bound: the retention policy is explicit here instead of being an
// accident of deployment size.
type RetentionWorker struct {
	log      *slog.Logger
	history  contract.History
	ttl      time.Duration
	interval time.Duration
}

func NewRetentionWorker(log *slog.Logger, history contract.History,
	ttl, interval time.Duration) *RetentionWorker {
	return &RetentionWorker{log: log, history: history, ttl: ttl, interval: interval}
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping retention worker")
			return nil
		case <-ticker.C:
			removed, err := w.history.PruneOlderThan(time.Now().UTC().Add(-w.ttl))
			if err != nil {
				return err
			}
			if removed > 0 {
				w.log.Info("Pruned expired messages", "count", removed)
			}
		}
	}
}
