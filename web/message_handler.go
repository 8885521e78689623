package web

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"chatline/auth"
	"chatline/domain"
	"chatline/errors"
	"chatline/projection"
	"chatline/services"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100

	// multipartMemory caps what ParseMultipartForm keeps in RAM; anything
	// bigger spills to a temp file that we remove after the request.
	multipartMemory = 1 << 20
)

// MessageHandler serves the direct-message surface: send, history, search
// and the conversation sidebar.
type MessageHandler struct {
	log            *slog.Logger
	service        services.IMessageService
	conversations  *projection.Conversations
	maxUploadBytes int64
}

func NewMessageHandler(log *slog.Logger, service services.IMessageService, conversations *projection.Conversations, maxUploadBytes int64) *MessageHandler {
	return &MessageHandler{
		log:            log,
		service:        service,
		conversations:  conversations,
		maxUploadBytes: maxUploadBytes,
	}
}

type sendRequest struct {
	Message string `json:"message"`
}

// Send ingests one message for the receiver in the path. The body is either
// multipart ("message" text field plus an optional single "media" file) or
// bare JSON {"message":"..."}.
// POST /api/messages/send/{userID}
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	senderID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(h.log, w, errors.ErrInvalidCredentials)
		return
	}

	// Bound the whole request before touching the body; the per-file limit
	// is enforced again inside media intake.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	cmd := services.SendMessageCommand{
		SenderID:   senderID,
		ReceiverID: chi.URLParam(r, "userID"),
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			respondError(h.log, w, asRequestError(err))
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				h.log.Debug("Multipart temp cleanup failed", "error", err)
			}
		}()

		cmd.Body = r.FormValue("message")

		file, header, err := r.FormFile("media")
		switch {
		case err == nil:
			defer func() { _ = file.Close() }()
			cmd.Attachment = &domain.Attachment{
				DeclaredType:     header.Header.Get("Content-Type"),
				DeclaredFilename: header.Filename,
				Payload:          file,
			}
		case stderrors.Is(err, http.ErrMissingFile):
			// Text-only multipart is fine
		default:
			respondError(h.log, w, asRequestError(err))
			return
		}
	} else {
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(h.log, w, asRequestError(err))
			return
		}
		cmd.Body = req.Message
	}

	stored, err := h.service.Send(r.Context(), cmd)
	if err != nil {
		respondError(h.log, w, err)
		return
	}

	respondData(h.log, w, http.StatusOK, stored)
}

// History pages the requester's thread with the user in the path, newest
// first. An absent cursor starts from the most recent message.
// GET /api/messages/{userID}?cursor=
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(h.log, w, errors.ErrInvalidCredentials)
		return
	}
	counterpartID := chi.URLParam(r, "userID")

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, nextCursor, err := h.service.GetConversation(requesterID, counterpartID, cursor)
	if err != nil {
		respondError(h.log, w, err)
		return
	}

	// Paging the thread counts as reading it
	h.conversations.MarkRead(requesterID, counterpartID)

	respondData(h.log, w, http.StatusOK, map[string]any{
		"messages":   messages,
		"nextCursor": nextCursor,
	})
}

// Search runs a full-text query over the requester's own conversations.
// An empty query is a valid request with zero hits.
// GET /api/messages/search?q=&limit=
func (h *MessageHandler) Search(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(h.log, w, errors.ErrInvalidCredentials)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondData(h.log, w, http.StatusOK, map[string]any{
			"messages": []domain.Message{},
			"total":    0,
		})
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxSearchLimit {
			respondError(h.log, w, errors.ErrMalformedRequest)
			return
		}
		limit = parsed
	}

	messages, total, err := h.service.Search(r.Context(), requesterID, query, limit)
	if err != nil {
		respondError(h.log, w, err)
		return
	}

	respondData(h.log, w, http.StatusOK, map[string]any{
		"messages": messages,
		"total":    total,
	})
}

// Conversations returns the requester's sidebar previews, most recent first.
// GET /api/conversations
func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(h.log, w, errors.ErrInvalidCredentials)
		return
	}
	respondData(h.log, w, http.StatusOK, h.conversations.For(requesterID))
}

// asRequestError distinguishes an oversized body from a malformed one.
func asRequestError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return errors.ErrPayloadTooLarge
	}
	return errors.ErrMalformedRequest
}
