package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chatline/domain/event"
	"chatline/repositories"
)

// IndexSink feeds every stored message into the full-text index.
// The index commits by itself once its batch fills; the sink adds a
// time-based deadline so a quiet conversation still becomes searchable
// without waiting for the batch to fill.
type IndexSink struct {
	mu            sync.Mutex
	timer         *time.Timer
	index         repositories.IMessageIndex
	log           *slog.Logger
	flushInterval time.Duration
}

func NewIndexSink(index repositories.IMessageIndex, log *slog.Logger, flushInterval time.Duration) *IndexSink {
	return &IndexSink{
		index:         index,
		log:           log,
		flushInterval: flushInterval,
	}
}

// Consume implements the EventSink interface.
// Indexing failures are returned to the fanout, which logs and moves on:
// a message that cannot be indexed is still stored and delivered.
func (s *IndexSink) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.MessageStored)
	if !ok {
		return nil
	}

	if err := s.index.Index(evt.Message); err != nil {
		return err
	}

	// Timer management: arm the deadline on the first document of a new
	// batch. We only start it if no other timer is currently running.
	s.mu.Lock()
	if s.timer == nil {
		s.timer = time.AfterFunc(s.flushInterval, func() {
			s.mu.Lock()
			s.timer = nil
			s.mu.Unlock()

			if err := s.index.Flush(); err != nil {
				s.log.Error("Batching: Timeout flush failed", "error", err)
			}
		})
	}
	s.mu.Unlock()

	return nil
}

// Close stops the deadline timer and commits whatever is still pending.
func (s *IndexSink) Close() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	return s.index.Flush()
}
