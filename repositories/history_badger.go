package repositories

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const historyPrefix = "hist:"

// BadgerHistory persists the message log in BadgerDB so queued messages
// survive process restarts. The key is formatted as
// "hist:{acceptance_nanos_padded}:{uuid}" to:
//  1. Ensure chronological iteration using 19-digit zero padding
//     (lexicographical order equals append order).
//  2. Prevent data loss by using the message UUID as a collision
//     disambiguator if two messages arrive at the same nanosecond.
//
// Acceptance time is stamped here, not taken from the message: client
// clocks do not decide replay order.
type BadgerHistory struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerHistory(db *badger.DB, log *slog.Logger) *BadgerHistory {
	return &BadgerHistory{db: db, log: log}
}

type storedMessage struct {
	ID   uuid.UUID   `json:"id"`
	Body string      `json:"body"`
	From string      `json:"from"`
	To   string      `json:"to"`
	Kind domain.Kind `json:"kind"`
	At   time.Time   `json:"at"`
}

func (h *BadgerHistory) Append(m domain.Message) error {
	key := fmt.Sprintf("%s%019d:%s", historyPrefix, time.Now().UnixNano(), m.ID)
	bytes, err := json.Marshal(fromMessage(m))
	if err != nil {
		return fmt.Errorf("encoding history entry: %w", err)
	}
	return h.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// ForUser scans the whole log in key order and keeps the entries involving
// user. The shared log is not sharded per pair, so this is a full prefix
// scan; the retention policy is what keeps it bounded.
func (h *BadgerHistory) ForUser(user string) ([]domain.Message, error) {
	var raw [][]byte
	err := h.db.View(func(txn *badger.Txn) error {
		prefix := []byte(historyPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var messages []domain.Message
	for _, b := range raw {
		var stored storedMessage
		if err = json.Unmarshal(b, &stored); err != nil {
			return nil, fmt.Errorf("decoding history entry: %w", err)
		}
		m := toMessage(stored)
		if m.Involves(user) {
			messages = append(messages, m)
		}
	}
	return messages, nil
}

// PruneOlderThan drops every entry accepted before cutoff. The acceptance
// time is parsed back out of the key, so no value decoding is needed.
// Value-log space is reclaimed opportunistically after a sweep that
// removed something.
func (h *BadgerHistory) PruneOlderThan(cutoff time.Time) (int, error) {
	var expired [][]byte
	err := h.db.View(func(txn *badger.Txn) error {
		prefix := []byte(historyPrefix)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			nanos, err := acceptanceNanos(string(key))
			if err != nil {
				h.log.Warn("Skipping unparsable history key", "key", string(key), "error", err)
				continue
			}
			if nanos < cutoff.UnixNano() {
				expired = append(expired, key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	err = h.db.Update(func(txn *badger.Txn) error {
		for _, key := range expired {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := h.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
		h.log.Warn("Value log GC failed", "error", err)
	}
	return len(expired), nil
}

func acceptanceNanos(key string) (int64, error) {
	parts := strings.Split(strings.TrimPrefix(key, historyPrefix), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed history key %q", key)
	}
	return strconv.ParseInt(parts[0], 10, 64)
}

func fromMessage(m domain.Message) storedMessage {
	return storedMessage{
		ID:   m.ID,
		Body: m.Body,
		From: m.From,
		To:   m.To,
		Kind: m.Kind,
		At:   m.At,
	}
}

func toMessage(stored storedMessage) domain.Message {
	return domain.Message{
		ID:   stored.ID,
		Body: stored.Body,
		From: stored.From,
		To:   stored.To,
		Kind: stored.Kind,
		At:   stored.At,
	}
}
