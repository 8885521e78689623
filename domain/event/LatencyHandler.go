package event

import (
	"log/slog"
	"time"
)

type LatencyHandler struct {
	log              *slog.Logger
	latencyThreshold time.Duration
}

func NewLatencyHandler(log *slog.Logger, latencyThreshold time.Duration) *LatencyHandler {
	return &LatencyHandler{log: log, latencyThreshold: latencyThreshold}
}

// Handle measures the store-to-fanout lead time of every echoed message event.
func (h *LatencyHandler) Handle(e Event) {
	if payload, ok := e.Payload.(MessageStored); ok {
		leadTime := time.Since(payload.Message.CreatedAt)

		h.log.Debug("telemetry: delivery latency",
			"sender", payload.Message.SenderID,
			"receiver", payload.Message.ReceiverID,
			"lead_time_ms", leadTime.Milliseconds(),
			"lead_time_ns", leadTime.Nanoseconds(),
		)

		if leadTime > h.latencyThreshold {
			h.log.Warn("high latency detected", "lead_time", leadTime)
		}
	}
}
