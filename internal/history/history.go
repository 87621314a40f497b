// Package history keeps the conversation of each chat session.
package history

import (
	"context"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one stored conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is an append-only conversation log.
type Store interface {
	// Append adds msg to the end of the session's conversation.
	Append(ctx context.Context, sessionID string, msg Message) error
	// Recent returns the last limit messages of the session, oldest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]Message, error)
}
