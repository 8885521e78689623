package web

import (
	"log/slog"
	"net/http"

	"chatline/observability"
)

// SystemHandler serves liveness and runtime statistics.
type SystemHandler struct {
	log     *slog.Logger
	monitor *observability.Monitor
}

func NewSystemHandler(log *slog.Logger, monitor *observability.Monitor) *SystemHandler {
	return &SystemHandler{log: log, monitor: monitor}
}

// Health is a bare liveness probe.
// GET /api/health
func (h *SystemHandler) Health(w http.ResponseWriter, _ *http.Request) {
	respondData(h.log, w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats exposes the pipeline counters and process gauges.
// GET /api/stats
func (h *SystemHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	respondData(h.log, w, http.StatusOK, h.monitor.Snapshot())
}
