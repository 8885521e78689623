package domain

import "time"

// Conversation is the sidebar preview of one direct-message thread:
// the counterpart plus the latest message exchanged with them.
type Conversation struct {
	CounterpartID string    `json:"counterpartId"`
	LastBody      string    `json:"lastBody,omitempty"`
	LastMediaRef  string    `json:"lastMediaRef,omitempty"`
	LastSenderID  string    `json:"lastSenderId"`
	LastAt        time.Time `json:"lastAt"`
	Unread        int       `json:"unread"`
}
