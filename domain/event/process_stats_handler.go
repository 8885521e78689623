package event

import (
	"fmt"
	"log/slog"

	"chatline/errors"
)

// ProcessRecorder receives self-process samples for the stats endpoint.
type ProcessRecorder interface {
	RecordProcess(status string, cpu float64, ram uint64, goroutines int)
}

type ProcessStatsHandler struct {
	log      *slog.Logger
	recorder ProcessRecorder
}

func NewProcessStatsHandler(log *slog.Logger, recorder ProcessRecorder) *ProcessStatsHandler {
	return &ProcessStatsHandler{log: log, recorder: recorder}
}

func (h ProcessStatsHandler) Handle(event Event) {
	switch event.Type {
	case ProcessStatsType:
		payload, ok := event.Payload.(ProcessStats)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.log.Debug(fmt.Sprintf("PID %d | STATUS %s | CPU %.2f%% | RAM %d bytes | GOROUTINES %d",
			payload.PID, payload.Status, payload.Cpu, payload.Ram, payload.Goroutines))
		if h.recorder != nil {
			h.recorder.RecordProcess(payload.Status, payload.Cpu, payload.Ram, payload.Goroutines)
		}
	}
}
