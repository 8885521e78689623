// Package domain contains core concepts of the chat system.
// This file defines Message entities and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable direct message between two users.
// ID and CreatedAt are assigned by the repository on creation; a message is
// never mutated or deleted afterwards.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Body       string    `json:"body,omitempty"`
	MediaRef   string    `json:"mediaRef,omitempty"`
	MediaType  string    `json:"mediaType,omitempty"`
	Lang       string    `json:"lang,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IsEmpty reports whether the message carries neither text nor media.
// Such a message violates the domain invariant and must never be persisted.
func (m Message) IsEmpty() bool {
	return m.Body == "" && m.MediaRef == ""
}

// ConversationKey identifies the conversation between two users regardless of
// direction. The pair is sorted so that (a,b) and (b,a) map to the same key,
// and joined with '_' to keep ':' free for key namespacing.
func ConversationKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + "_" + userB
}
