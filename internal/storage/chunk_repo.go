package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"docuchat-ai/internal/search"
)

// ChunkRepo stores chunk text and answers exact lookups. It implements
// search.ChunkLookup; vector queries go to a vector index.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertChunk inserts a single chunk. chunk.ID must be set (UUID).
func (r *ChunkRepo) InsertChunk(ctx context.Context, chunk search.Chunk) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chunks (id, document_id, session_id, page_number, content) VALUES (?, ?, ?, ?, ?)",
		chunk.ID, chunk.DocumentID, chunk.SessionID, chunk.PageNumber, chunk.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// ChunksByPages returns every chunk in the session on one of pages, ordered
// by page. Pages with no chunks contribute nothing.
func (r *ChunkRepo) ChunksByPages(ctx context.Context, sessionID string, pages []int) ([]search.Chunk, error) {
	if len(pages) == 0 {
		return []search.Chunk{}, nil
	}

	args := make([]any, 0, len(pages)+1)
	args = append(args, sessionID)
	for _, p := range pages {
		args = append(args, p)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(pages)), ", ")

	return r.query(ctx,
		"SELECT id, document_id, session_id, page_number, content FROM chunks "+
			"WHERE session_id = ? AND page_number IN ("+placeholders+") ORDER BY page_number, rowid",
		args...,
	)
}

// ChunksContaining returns up to limit chunks in scope whose content
// contains term, ignoring case.
func (r *ChunkRepo) ChunksContaining(ctx context.Context, scope search.Scope, term string, limit int) ([]search.Chunk, error) {
	q := "SELECT id, document_id, session_id, page_number, content FROM chunks " +
		`WHERE session_id = ? AND unicode_lower(content) LIKE ? ESCAPE '\'`
	args := []any{scope.SessionID, "%" + escapeLike(strings.ToLower(term)) + "%"}
	if scope.DocumentID != "" {
		q += " AND document_id = ?"
		args = append(args, scope.DocumentID)
	}
	q += " ORDER BY rowid LIMIT ?"
	args = append(args, limit)

	return r.query(ctx, q, args...)
}

func (r *ChunkRepo) query(ctx context.Context, q string, args ...any) ([]search.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	chunks := []search.Chunk{}
	for rows.Next() {
		var c search.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.SessionID, &c.PageNumber, &c.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
