package sink_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatline/domain"
	"chatline/domain/event"
	"chatline/mocks"
	"chatline/sink"
)

func storedMessage(body string) event.MessageStored {
	return event.MessageStored{Message: domain.Message{
		ID:         uuid.New(),
		SenderID:   "alice",
		ReceiverID: "bob",
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}}
}

func TestIndexSink_Consume(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Silencing logs for clean test output
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("Indexes every stored message", func(t *testing.T) {
		mockIndex := mocks.NewMockIMessageIndex(ctrl)
		s := sink.NewIndexSink(mockIndex, logger, 10*time.Second)

		mockIndex.EXPECT().Index(gomock.Any()).Return(nil).Times(3)
		mockIndex.EXPECT().Flush().Return(nil).AnyTimes()

		for i := 0; i < 3; i++ {
			req.NoError(s.Consume(ctx, storedMessage(fmt.Sprintf("hello %d", i))))
		}

		// Close disarms the deadline timer and commits the tail
		req.NoError(s.Close())
	})

	t.Run("Flush triggered by deadline (asynchronous)", func(t *testing.T) {
		deadline := 50 * time.Millisecond
		mockIndex := mocks.NewMockIMessageIndex(ctrl)
		s := sink.NewIndexSink(mockIndex, logger, deadline)

		// We send only 1 document, so the size-based commit inside the
		// index won't trigger. The Flush must come from the timer.
		mockIndex.EXPECT().Index(gomock.Any()).Return(nil).Times(1)
		mockIndex.EXPECT().Flush().Return(nil).Times(1)

		req.NoError(s.Consume(ctx, storedMessage("quiet conversation")))

		// Wait slightly more than the deadline to allow the timer to run
		time.Sleep(deadline + 30*time.Millisecond)
	})

	t.Run("Ignores other event kinds", func(t *testing.T) {
		mockIndex := mocks.NewMockIMessageIndex(ctrl)
		s := sink.NewIndexSink(mockIndex, logger, 10*time.Second)

		// No Index, no Flush, no timer
		err := s.Consume(ctx, event.PresenceChanged{
			UserID: "alice",
			Joined: true,
			At:     time.Now().UTC(),
		})
		req.NoError(err)
	})

	t.Run("Propagates index failure to the fanout", func(t *testing.T) {
		mockIndex := mocks.NewMockIMessageIndex(ctrl)
		s := sink.NewIndexSink(mockIndex, logger, 10*time.Second)

		boom := fmt.Errorf("segment write failed")
		mockIndex.EXPECT().Index(gomock.Any()).Return(boom).Times(1)

		err := s.Consume(ctx, storedMessage("doomed"))
		req.ErrorIs(err, boom)
	})
}
