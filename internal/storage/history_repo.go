package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docuchat-ai/internal/history"
)

// HistoryRepo stores conversation messages. It implements history.Store.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Append inserts msg at the end of the session's conversation.
func (r *HistoryRepo) Append(ctx context.Context, sessionID string, msg history.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO conversation_messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		sessionID, msg.Role, msg.Content, msg.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// Recent returns the last limit messages of the session, oldest first.
func (r *HistoryRepo) Recent(ctx context.Context, sessionID string, limit int) ([]history.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT role, content, created_at FROM conversation_messages WHERE session_id = ? ORDER BY id DESC LIMIT ?",
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var newestFirst []history.Message
	for rows.Next() {
		var m history.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	msgs := make([]history.Message, len(newestFirst))
	for i, m := range newestFirst {
		msgs[len(newestFirst)-1-i] = m
	}
	return msgs, nil
}
