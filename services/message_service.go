//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"

	"chatline/contract"
	"chatline/domain"
	"chatline/domain/event"
	"chatline/errors"
	"chatline/media"
	"chatline/moderation"
	"chatline/observability"
	"chatline/repositories"
)

// SendMessageCommand carries one outbound message through the ingest path.
// Attachment is optional; a command with neither Body nor Attachment is invalid.
type SendMessageCommand struct {
	SenderID   string
	ReceiverID string
	Body       string
	Attachment *domain.Attachment
}

type IMessageService interface {
	Send(ctx context.Context, cmd SendMessageCommand) (domain.Message, error)
	GetConversation(requesterID, counterpartID string, cursor *string) ([]domain.Message, *string, error)
	Search(ctx context.Context, requesterID, query string, limit int) ([]domain.Message, uint64, error)
}

type MessageService struct {
	log          *slog.Logger
	repository   repositories.IMessageRepository
	index        repositories.IMessageIndex
	intake       media.IMediaIntake
	moderator    moderation.Moderator
	dispatcher   contract.Dispatcher
	monitor      *observability.Monitor
	storeTimeout time.Duration
}

func NewMessageService(
	log *slog.Logger,
	repository repositories.IMessageRepository,
	index repositories.IMessageIndex,
	intake media.IMediaIntake,
	moderator moderation.Moderator,
	dispatcher contract.Dispatcher,
	monitor *observability.Monitor,
	storeTimeout time.Duration,
) IMessageService {
	return &MessageService{
		log:          log,
		repository:   repository,
		index:        index,
		intake:       intake,
		moderator:    moderator,
		dispatcher:   dispatcher,
		monitor:      monitor,
		storeTimeout: storeTimeout,
	}
}

func (s *MessageService) Send(ctx context.Context, cmd SendMessageCommand) (domain.Message, error) {
	// 1. Reject messages carrying neither text nor media before any I/O.
	if cmd.Body == "" && cmd.Attachment == nil {
		return domain.Message{}, errors.ErrEmptyMessage
	}

	msg := domain.Message{
		SenderID:   cmd.SenderID,
		ReceiverID: cmd.ReceiverID,
	}

	// 2. Store the attachment first so the message never references a
	// media path that does not exist on the content volume.
	if cmd.Attachment != nil {
		ref, mime, size, err := s.intake.Accept(ctx,
			cmd.Attachment.DeclaredType,
			cmd.Attachment.Payload,
			cmd.Attachment.DeclaredFilename)
		if err != nil {
			return domain.Message{}, err
		}

		msg.MediaRef = ref.String()
		msg.MediaType = string(mime)
		s.monitor.IncrMediaStored()
		s.log.Debug("Attachment stored", "ref", ref, "mime", mime, "size", size)
	}

	// 3. Censor and tag the language before the body hits the store.
	// The matched words never reach the store; they only ride the event
	// so telemetry can count them.
	var censoredWords []string
	if cmd.Body != "" {
		sanitized, foundWords := s.moderator.Censor(cmd.Body)
		msg.Body = sanitized
		censoredWords = foundWords

		info := whatlanggo.Detect(cmd.Body)
		msg.Lang = info.Lang.Iso6391()

		if len(foundWords) > 0 {
			s.monitor.IncrCensoredMessages()
		}
	}

	// 4. Persist within the store timeout. The store owns ID and CreatedAt.
	stored, err := s.storeBounded(msg)
	if err != nil {
		s.log.Error("Message persistence failed", "error", err)
		s.removeOrphan(msg)
		return domain.Message{}, errors.ErrPersistenceFailed
	}
	s.monitor.IncrIngested()

	// 5. Notify the pipeline. Fire-and-forget: delivery never blocks or
	// fails the sender's request.
	s.dispatcher.Dispatch(event.MessageStored{
		Message:       stored,
		CensoredWords: censoredWords,
	})

	return stored, nil
}

// GetConversation pages the requester's history with one counterpart,
// newest first.
func (s *MessageService) GetConversation(requesterID, counterpartID string, cursor *string) ([]domain.Message, *string, error) {
	return s.repository.GetConversation(requesterID, counterpartID, cursor)
}

// Search runs a full-text query fenced to the requester's own conversations.
func (s *MessageService) Search(ctx context.Context, requesterID, query string, limit int) ([]domain.Message, uint64, error) {
	return s.index.Search(ctx, requesterID, query, limit)
}

// storeBounded runs the store write under the store timeout. On timeout the
// write is abandoned, not rolled back: it may still commit afterwards, which
// is the at-least-once trade the pipeline accepts. Caller cancellation is
// deliberately not propagated here for the same reason.
func (s *MessageService) storeBounded(msg domain.Message) (domain.Message, error) {
	type result struct {
		stored domain.Message
		err    error
	}

	done := make(chan result, 1)
	go func() {
		stored, err := s.repository.Create(msg)
		done <- result{stored: stored, err: err}
	}()

	select {
	case res := <-done:
		return res.stored, res.err
	case <-time.After(s.storeTimeout):
		return domain.Message{}, fmt.Errorf("store write exceeded %s", s.storeTimeout)
	}
}

// removeOrphan best-effort deletes an attachment whose message never made it
// to the store. Removal failure is logged, never surfaced to the sender.
func (s *MessageService) removeOrphan(msg domain.Message) {
	if msg.MediaRef == "" {
		return
	}
	if err := s.intake.Remove(domain.StorageRef(msg.MediaRef)); err != nil {
		s.log.Warn("Orphaned attachment left on the content volume",
			"ref", msg.MediaRef, "error", err)
	}
}
