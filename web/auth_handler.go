package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"chatline/auth"
	"chatline/errors"
	"chatline/services"
)

// AuthHandler serves account registration and session lifecycle.
type AuthHandler struct {
	log          *slog.Logger
	service      services.IAuthService
	cookieTTL    time.Duration
	secureCookie bool
}

func NewAuthHandler(log *slog.Logger, service services.IAuthService, cookieTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		log:          log,
		service:      service,
		cookieTTL:    cookieTTL,
		secureCookie: secureCookie,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and opens its first session.
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.log, w, errors.ErrMalformedRequest)
		return
	}

	token, err := h.service.Register(req.Email, req.Password)
	if err != nil {
		respondError(h.log, w, err)
		return
	}

	h.setSessionCookie(w, token.String())
	respondData(h.log, w, http.StatusCreated, map[string]string{"token": token.String()})
}

// Login opens a session for an existing account.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.log, w, errors.ErrMalformedRequest)
		return
	}

	token, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		respondError(h.log, w, err)
		return
	}

	h.setSessionCookie(w, token.String())
	respondData(h.log, w, http.StatusOK, map[string]string{"token": token.String()})
}

// Logout clears the session cookie. The JWT itself stays valid until expiry;
// revocation would need a denylist, which this backend does not keep.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	respondData(h.log, w, http.StatusOK, "logged out")
}

// Me returns the authenticated account.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(h.log, w, errors.ErrInvalidCredentials)
		return
	}

	user, err := h.service.Me(userID)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondData(h.log, w, http.StatusOK, user)
}

// setSessionCookie stores the JWT where the browser will replay it, including
// on the websocket upgrade request where custom headers are unavailable.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
