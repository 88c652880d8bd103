package repositories

import (
	"chat-relay/domain"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func message(from, to, body string, at time.Time) domain.Message {
	return domain.Message{
		ID:   uuid.New(),
		Body: body,
		From: from,
		To:   to,
		Kind: domain.KindContent,
		At:   at,
	}
}

func TestMemoryHistory_Append_Preserves_Order(t *testing.T) {
	req := require.New(t)
	history := NewMemoryHistory(slog.Default(), nil)
	now := time.Now().UTC()

	// Given three appended messages
	var appended []domain.Message
	for i := 0; i < 3; i++ {
		m := message("alice", "bob", fmt.Sprintf("message %d", i), now.Add(time.Duration(i)*time.Second))
		req.NoError(history.Append(m))
		appended = append(appended, m)
	}

	// When scanning for either end of the pair
	forBob, err := history.ForUser("bob")
	req.NoError(err)
	forAlice, err := history.ForUser("alice")
	req.NoError(err)

	// Then both see the full log in append order
	req.Equal(appended, forBob)
	req.Equal(appended, forAlice)
}

func TestMemoryHistory_ForUser_Filters_Unrelated_Pairs(t *testing.T) {
	req := require.New(t)
	history := NewMemoryHistory(slog.Default(), nil)
	now := time.Now().UTC()

	related := message("alice", "bob", "hello", now)
	req.NoError(history.Append(related))
	req.NoError(history.Append(message("carol", "dave", "private", now)))

	forBob, err := history.ForUser("bob")
	req.NoError(err)
	req.Equal([]domain.Message{related}, forBob)
}

func TestMemoryHistory_Size_Cap_Drops_Oldest(t *testing.T) {
	req := require.New(t)
	history := NewMemoryHistory(slog.Default(), lo.ToPtr(2))
	now := time.Now().UTC()

	// Given more appends than the cap allows
	first := message("alice", "bob", "first", now)
	second := message("alice", "bob", "second", now.Add(time.Second))
	third := message("alice", "bob", "third", now.Add(2*time.Second))
	req.NoError(history.Append(first))
	req.NoError(history.Append(second))
	req.NoError(history.Append(third))

	// Then only the newest two survive
	forBob, err := history.ForUser("bob")
	req.NoError(err)
	req.Equal([]domain.Message{second, third}, forBob)
}

func TestMemoryHistory_PruneOlderThan(t *testing.T) {
	req := require.New(t)
	history := NewMemoryHistory(slog.Default(), nil)
	now := time.Now().UTC()

	old := message("alice", "bob", "stale", now.Add(-2*time.Hour))
	recent := message("alice", "bob", "fresh", now)
	req.NoError(history.Append(old))
	req.NoError(history.Append(recent))

	// When pruning everything older than an hour
	removed, err := history.PruneOlderThan(now.Add(-time.Hour))
	req.NoError(err)
	req.Equal(1, removed)

	// Then only the fresh message remains, and a second prune is a no-op
	forBob, err := history.ForUser("bob")
	req.NoError(err)
	req.Equal([]domain.Message{recent}, forBob)

	removed, err = history.PruneOlderThan(now.Add(-time.Hour))
	req.NoError(err)
	req.Zero(removed)
}
