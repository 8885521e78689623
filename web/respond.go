// Package web exposes the HTTP and WebSocket surface of the chat backend.
// Handlers stay thin: decode, call a service, encode the envelope.
package web

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"chatline/errors"
)

// respondData writes the success envelope {"success":true,"data":...}.
func respondData(log *slog.Logger, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	}); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

// respondError translates a domain error into the HTTP envelope {"error":...}.
func respondError(log *slog.Logger, w http.ResponseWriter, err error) {
	status := errors.MapToHTTPStatus(err)

	msg := err.Error()
	if stderrors.Is(err, errors.ErrEmptyMessage) {
		// Exact wording is part of the API contract with the web client.
		msg = "Message or media must be provided"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(map[string]string{"error": msg}); encErr != nil {
		log.Error("Failed to encode error response", "error", encErr)
	}
}
