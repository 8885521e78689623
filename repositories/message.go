//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chatline/domain"
	"chatline/errors"
)

type IMessageRepository interface {
	Create(message domain.Message) (domain.Message, error)
	GetConversation(requesterID, counterpartID string, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DiskMessage is the JSON document persisted in BadgerDB.
type DiskMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Body      string `json:"body,omitempty"`
	MediaRef  string `json:"mediaRef,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Lang      string `json:"lang,omitempty"`
	At        int64  `json:"at"`
}

// Create assigns identity and timestamp, then persists the message.
// The key is formatted as "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) Create(message domain.Message) (domain.Message, error) {
	message.ID = uuid.New()
	message.CreatedAt = time.Now().UTC()

	key := fmt.Sprintf("msg:%s:%019d:%s",
		domain.ConversationKey(message.SenderID, message.ReceiverID),
		message.CreatedAt.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(lo.ToPtr(fromDomainMessage(message)))
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistenceFailed, err)
	}
	return message, nil
}

// GetConversation retrieves one page of the thread between two users, newest
// first, using a reverse prefix scan. Thanks to the padded timestamp in the
// key, messages are naturally sorted by time. Collection stops once the
// configured limitMessages is reached; the returned cursor resumes the scan
// and is nil when the conversation is exhausted.
func (m MessageRepository) GetConversation(requesterID, counterpartID string, cursor *string) ([]domain.Message, *string, error) {
	var byteMessages [][]byte
	var lastKey string
	exhausted := true

	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", domain.ConversationKey(requesterID, counterpartID))
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				exhausted = false
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				byteMessages = append(byteMessages, value)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrPersistenceFailed, err)
	}

	var messages []domain.Message
	for _, b := range byteMessages {
		var disk DiskMessage
		if err = json.Unmarshal(b, &disk); err != nil {
			return nil, nil, err
		}
		message, err := toDomainMessage(disk)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}

	if exhausted || len(messages) == 0 {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func fromDomainMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:        message.ID.String(),
		Sender:    message.SenderID,
		Receiver:  message.ReceiverID,
		Body:      message.Body,
		MediaRef:  message.MediaRef,
		MediaType: message.MediaType,
		Lang:      message.Lang,
		At:        message.CreatedAt.UnixNano(),
	}
}

func toDomainMessage(disk DiskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:         parsedID,
		SenderID:   disk.Sender,
		ReceiverID: disk.Receiver,
		Body:       disk.Body,
		MediaRef:   disk.MediaRef,
		MediaType:  disk.MediaType,
		Lang:       disk.Lang,
		CreatedAt:  time.Unix(0, disk.At).UTC(),
	}, nil
}
