package event

import (
	"time"

	"chatline/domain"
)

// DomainEvent is anything the runtime fans out after the fact.
// Events are emitted only once their cause is durable (or purely ephemeral,
// like presence), so consumers never observe something that can be rolled back.
type DomainEvent interface {
	OccurredAt() time.Time
}

// MessageStored is emitted after a message has been committed to the store.
// Fan-out pushes it to the receiver's live connection when one exists.
// CensoredWords lists what moderation replaced in the body; it rides the
// event for telemetry only and never reaches the receiver.
type MessageStored struct {
	Message       domain.Message
	CensoredWords []string
}

func (e MessageStored) OccurredAt() time.Time {
	return e.Message.CreatedAt
}

// PresenceChanged is emitted when a user connects or disconnects.
// Online carries the full set of connected user IDs at emission time.
type PresenceChanged struct {
	UserID string
	Joined bool
	Online []string
	At     time.Time
}

func (e PresenceChanged) OccurredAt() time.Time {
	return e.At
}
