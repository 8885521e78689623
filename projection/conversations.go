// Package projection builds local read models from observed events.
// Handles aggregation into per-user views.
// Does not emit events or interact with transport directly.
package projection

import (
	"context"
	"sort"
	"sync"

	"chatline/domain"
	"chatline/domain/event"
)

// Conversations folds stored messages into per-user sidebar previews:
// for each user, the latest message per counterpart plus an unread count.
// It lives in memory and restarts empty, like the connection registry;
// history survives in the store and can always be paged back.
type Conversations struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*domain.Conversation
}

func NewConversations() *Conversations {
	return &Conversations{
		byUser: make(map[string]map[string]*domain.Conversation),
	}
}

// Consume implements the EventSink interface.
func (c *Conversations) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.MessageStored)
	if !ok {
		return nil
	}
	msg := evt.Message

	c.mu.Lock()
	defer c.mu.Unlock()

	// Sender view: thread bumped, and replying means the thread is read.
	sent := c.thread(msg.SenderID, msg.ReceiverID)
	bump(sent, msg)
	sent.Unread = 0

	// Receiver view: thread bumped with one more message waiting.
	received := c.thread(msg.ReceiverID, msg.SenderID)
	bump(received, msg)
	received.Unread++

	return nil
}

func (c *Conversations) thread(owner, counterpart string) *domain.Conversation {
	threads, ok := c.byUser[owner]
	if !ok {
		threads = make(map[string]*domain.Conversation)
		c.byUser[owner] = threads
	}

	conv, ok := threads[counterpart]
	if !ok {
		conv = &domain.Conversation{CounterpartID: counterpart}
		threads[counterpart] = conv
	}
	return conv
}

func bump(conv *domain.Conversation, msg domain.Message) {
	conv.LastBody = msg.Body
	conv.LastMediaRef = msg.MediaRef
	conv.LastSenderID = msg.SenderID
	conv.LastAt = msg.CreatedAt
}

// For retrieves the user's conversation previews, most recent first.
func (c *Conversations) For(userID string) []domain.Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	threads := c.byUser[userID]
	out := make([]domain.Conversation, 0, len(threads))
	for _, conv := range threads {
		out = append(out, *conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAt.After(out[j].LastAt) })
	return out
}

// MarkRead clears the unread counter for one thread, typically because the
// owner just paged its history.
func (c *Conversations) MarkRead(owner, counterpart string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if threads, ok := c.byUser[owner]; ok {
		if conv, ok := threads[counterpart]; ok {
			conv.Unread = 0
		}
	}
}
