// Package repositories provides the history log backends: an in-process
// one for single-node deployments and a BadgerDB one when queued messages
// must survive restarts.
package repositories

import (
	"chat-relay/domain"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MemoryHistory keeps the message log in process memory, in append order.
// Retention is optional: a size cap drops the oldest entries on append,
// and PruneOlderThan supports TTL sweeps from the retention worker.
type MemoryHistory struct {
	mu       sync.RWMutex
	log      *slog.Logger
	limit    *int
	messages []domain.Message
}

func NewMemoryHistory(log *slog.Logger, limit *int) *MemoryHistory {
	return &MemoryHistory{log: log, limit: limit}
}

func (h *MemoryHistory) Append(m domain.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, m)
	if h.limit != nil && len(h.messages) > *h.limit {
		drop := len(h.messages) - *h.limit
		h.messages = append([]domain.Message(nil), h.messages[drop:]...)
		h.log.Debug(fmt.Sprintf("History cap of %d reached, dropped %d oldest", *h.limit, drop))
	}
	return nil
}

func (h *MemoryHistory) ForUser(user string) ([]domain.Message, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []domain.Message
	for _, m := range h.messages {
		if m.Involves(user) {
			out = append(out, m)
		}
	}
	return out, nil
}

// PruneOlderThan removes every message stamped before cutoff. Entries are
// filtered by timestamp rather than position: clients may supply their own
// times, so age does not strictly follow append order.
func (h *MemoryHistory) PruneOlderThan(cutoff time.Time) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := make([]domain.Message, 0, len(h.messages))
	for _, m := range h.messages {
		if !m.At.Before(cutoff) {
			kept = append(kept, m)
		}
	}
	removed := len(h.messages) - len(kept)
	h.messages = kept
	return removed, nil
}
