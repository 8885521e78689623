package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chatline/auth"
	"chatline/contract"
	"chatline/errors"
)

// WSHandler upgrades authenticated requests to live connections and hands
// them to the runtime.
type WSHandler struct {
	log            *slog.Logger
	orchestrator   contract.IOrchestrator
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

func NewWSHandler(log *slog.Logger, orchestrator contract.IOrchestrator, allowedOrigins []string) *WSHandler {
	h := &WSHandler{
		log:            log,
		orchestrator:   orchestrator,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
	return h
}

// checkOrigin admits non-browser clients (no Origin header) and browsers
// from the configured origins. "*" opens the door wide, development only.
func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	h.log.Warn("Websocket upgrade rejected", "origin", origin)
	return false
}

// Serve upgrades the request and registers the connection. The session
// cookie carries the auth because browsers cannot set headers here.
// GET /ws
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(h.log, w, errors.ErrInvalidCredentials)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the peer
		h.log.Warn("Websocket upgrade failed", "user", userID, "error", err)
		return
	}

	client := NewClient(h.log, conn)
	h.orchestrator.Connect(userID, client)

	go client.writePump()
	go client.readPump(func() {
		h.orchestrator.Disconnect(userID, client)
	})

	h.log.Info("Websocket connected", "user", userID)
}
