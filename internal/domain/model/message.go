package model

import "time"

// ConversationMessage is a single message in a pair conversation. The engine
// only ever writes system messages (e.g. on interest acceptance); user
// messages belong to the chat subsystem.
type ConversationMessage struct {
	ID            int64     `json:"id"`
	FromProfileID int64     `json:"from_profile_id"`
	ToProfileID   int64     `json:"to_profile_id"`
	IsSystem      bool      `json:"is_system"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}
