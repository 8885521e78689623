// Package domain contains core concepts of the chat system.
// This file defines the public User shape exposed by the API.
package domain

import "time"

// User is the safe projection of an account: no credentials, no roles.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
