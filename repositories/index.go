//go:generate go run go.uber.org/mock/mockgen -source=index.go -destination=../mocks/mock_message_index.go -package=mocks
package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/index"
	"github.com/google/uuid"

	"chatline/domain"
)

type IMessageIndex interface {
	Index(message domain.Message) error
	Flush() error
	Search(ctx context.Context, requesterID, query string, limit int) ([]domain.Message, uint64, error)
}

// MessageIndex maintains the Bluge full-text index over message bodies.
// Writes are batched: Index buffers documents and commits every batchSize,
// Flush commits whatever is pending. Search only sees committed documents.
type MessageIndex struct {
	mu        sync.Mutex
	writer    *bluge.Writer
	batch     *index.Batch
	pending   int
	batchSize int
	log       *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger, batchSize int) *MessageIndex {
	if batchSize < 1 {
		batchSize = 1
	}
	return &MessageIndex{
		writer:    writer,
		batch:     bluge.NewBatch(),
		batchSize: batchSize,
		log:       log,
	}
}

// Index queues one message document. The body is the searchable text; sender,
// receiver and lang are keyword terms so search can be fenced to a requester's
// own conversations.
func (m *MessageIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("body", message.Body).StoreValue()).
		AddField(bluge.NewKeywordField("sender", message.SenderID).StoreValue()).
		AddField(bluge.NewKeywordField("receiver", message.ReceiverID).StoreValue()).
		AddField(bluge.NewKeywordField("lang", message.Lang)).
		AddField(bluge.NewKeywordField("media", message.MediaRef).StoreValue()).
		AddField(bluge.NewKeywordField("created", message.CreatedAt.UTC().Format(time.RFC3339Nano)).StoreValue()).
		AddField(bluge.NewDateTimeField("at", message.CreatedAt))

	m.mu.Lock()
	defer m.mu.Unlock()

	m.batch.Update(doc.ID(), doc)
	m.pending++
	if m.pending >= m.batchSize {
		return m.flushLocked()
	}
	return nil
}

// Flush commits all pending documents to the index.
func (m *MessageIndex) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked()
}

func (m *MessageIndex) flushLocked() error {
	if m.pending == 0 {
		return nil
	}
	if err := m.writer.Batch(m.batch); err != nil {
		return fmt.Errorf("index batch failed: %w", err)
	}
	m.batch.Reset()
	m.pending = 0
	return nil
}

// Search runs a match query over message bodies, restricted to conversations
// the requester takes part in: the requester must appear as sender or receiver
// of every hit. Results come back best-match first.
func (m *MessageIndex) Search(ctx context.Context, requesterID, query string, limit int) ([]domain.Message, uint64, error) {
	reader, err := m.writer.Reader()
	if err != nil {
		return nil, 0, fmt.Errorf("index reader unavailable: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			m.log.Warn("index reader close failed", "error", closeErr)
		}
	}()

	participant := bluge.NewBooleanQuery().
		AddShould(bluge.NewTermQuery(requesterID).SetField("sender")).
		AddShould(bluge.NewTermQuery(requesterID).SetField("receiver"))
	participant.SetMinShould(1)

	fullQuery := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("body")).
		AddMust(participant)

	request := bluge.NewTopNSearch(limit, fullQuery).WithStandardAggregations()

	dmi, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, fmt.Errorf("index search failed: %w", err)
	}

	var hits []domain.Message
	next, err := dmi.Next()
	for err == nil && next != nil {
		var hit domain.Message
		visitErr := next.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					hit.ID = id
				}
			case "body":
				hit.Body = string(value)
			case "sender":
				hit.SenderID = string(value)
			case "receiver":
				hit.ReceiverID = string(value)
			case "media":
				hit.MediaRef = string(value)
			case "created":
				if at, parseErr := time.Parse(time.RFC3339Nano, string(value)); parseErr == nil {
					hit.CreatedAt = at
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, 0, visitErr
		}
		hits = append(hits, hit)
		next, err = dmi.Next()
	}
	if err != nil {
		return nil, 0, err
	}

	return hits, dmi.Aggregations().Count(), nil
}
