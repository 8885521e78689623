package web

import (
	"log/slog"
	"net/http"

	"chatline/auth"
	"chatline/errors"
	"chatline/services"
)

// UserHandler serves the contact listing.
type UserHandler struct {
	log     *slog.Logger
	service services.IUserService
}

func NewUserHandler(log *slog.Logger, service services.IUserService) *UserHandler {
	return &UserHandler{log: log, service: service}
}

// List returns every account except the requester's own.
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(h.log, w, errors.ErrInvalidCredentials)
		return
	}

	users, err := h.service.ListOthers(requesterID)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondData(h.log, w, http.StatusOK, users)
}
