package workers

import (
	"chat-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRetentionWorker_Prunes_Periodically(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	historyMock := mocks.NewMockHistory(ctrl)

	done := make(chan struct{})
	ttl := time.Hour
	pruned := 0
	historyMock.EXPECT().
		PruneOlderThan(gomock.Any()).
		DoAndReturn(func(cutoff time.Time) (int, error) {
			// The cutoff trails now by the configured TTL
			req.WithinDuration(time.Now().UTC().Add(-ttl), cutoff, time.Minute)
			pruned++
			if pruned == 2 {
				close(done)
			}
			return 1, nil
		}).
		MinTimes(2)

	worker := NewRetentionWorker(slog.Default(), historyMock, ttl, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Retention worker did not prune in time")
	}
}

func TestRetentionWorker_Stops_On_Cancellation(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	historyMock := mocks.NewMockHistory(ctrl)
	historyMock.EXPECT().PruneOlderThan(gomock.Any()).Return(0, nil).AnyTimes()

	worker := NewRetentionWorker(slog.Default(), historyMock, time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		// A canceled worker terminates cleanly so the supervisor
		// does not restart it.
		req.NoError(err)
	case <-time.After(500 * time.Millisecond):
		req.Fail("Retention worker did not stop on cancellation")
	}
}
