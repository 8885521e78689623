package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"chatline/contract"
	"chatline/domain/event"
	"chatline/errors"
	"chatline/observability"
)

// Envelope is the wire frame pushed over a live connection.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EventFanout is the single consumer of the domain event channel. One
// goroutine owning the channel is what guarantees per-receiver delivery
// order: events for a given user are pushed in the order they were
// dispatched, with no reordering.
//
// Delivery is best-effort: a failed or absent connection is not an error,
// the message is already durable and the receiver will catch up on their
// next history fetch.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	sinks       []contract.EventSink
	events      chan event.DomainEvent
	telemetry   chan event.Event
	sinkTimeout time.Duration
	monitor     *observability.Monitor
}

var _ contract.Worker = (*EventFanout)(nil)

func NewEventFanout(log *slog.Logger, sinks []contract.EventSink,
	registry contract.IRegistry, events chan event.DomainEvent,
	telemetry chan event.Event, sinkTimeout time.Duration,
	monitor *observability.Monitor) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		sinks:       sinks,
		events:      events,
		telemetry:   telemetry,
		sinkTimeout: sinkTimeout,
		monitor:     monitor,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.fanout(ctx, evt)
			w.echo(evt)
		}
	}
}

// echo forwards a copy of the handled event to the telemetry channel,
// plus one hit per censored word so moderation activity can be tallied.
func (w *EventFanout) echo(evt event.DomainEvent) {
	now := time.Now().UTC()
	w.emitTelemetry(event.Event{Type: event.DomainEchoType, CreatedAt: now, Payload: evt})

	if stored, ok := evt.(event.MessageStored); ok {
		for _, word := range stored.CensoredWords {
			w.emitTelemetry(event.Event{Type: event.CensorshipHit, CreatedAt: now, Payload: event.Censored{Word: word}})
		}
	}
}

func (w *EventFanout) emitTelemetry(e event.Event) {
	select {
	case w.telemetry <- e:
	default:
		w.log.Debug("Observability telemetry event lost")
	}
}

func (w *EventFanout) fanout(ctx context.Context, evt event.DomainEvent) {
	switch e := evt.(type) {
	case event.MessageStored:
		w.deliver(e)
	case event.PresenceChanged:
		w.broadcast(Envelope{Type: "online_users", Data: e.Online})
	}

	for _, sink := range w.sinks {
		w.consume(ctx, sink, evt)
	}
}

// deliver pushes a stored message to the receiver's live connection, if any.
func (w *EventFanout) deliver(e event.MessageStored) {
	handle, online := w.registry.Lookup(e.Message.ReceiverID)
	if !online {
		// Expected state for an offline receiver, not an error
		return
	}

	payload, err := json.Marshal(Envelope{Type: "message", Data: e.Message})
	if err != nil {
		w.log.Error("Message envelope marshal failed", "error", err)
		return
	}

	if err := handle.Push(payload); err != nil {
		w.log.Warn(errors.ErrDeliveryFailed.Error(),
			"receiver", e.Message.ReceiverID, "error", err)
		w.monitor.IncrDeliveryDropped()
		return
	}
	w.monitor.IncrDelivered()
}

// broadcast pushes the same frame to every live connection.
func (w *EventFanout) broadcast(envelope Envelope) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		w.log.Error("Broadcast envelope marshal failed", "error", err)
		return
	}

	for _, userID := range w.registry.Online() {
		handle, ok := w.registry.Lookup(userID)
		if !ok {
			continue
		}
		if err := handle.Push(payload); err != nil {
			w.log.Debug("Broadcast push failed", "user", userID, "error", err)
		}
	}
}

// consume hands the event to one sink, bounded by the sink timeout so a
// slow consumer cannot stall delivery for everyone behind it.
func (w *EventFanout) consume(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	if err := sink.Consume(sinkCtx, evt); err != nil {
		w.log.Warn("Sink rejected event", "error", err)
	}
}
