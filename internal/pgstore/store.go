package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"docuchat-ai/internal/metrics"
	"docuchat-ai/internal/search"
	"docuchat-ai/internal/vectorstore"
)

// Store implements search.ChunkStore, search.DocumentStore and
// vectorstore.ChunkIndex on one PostgreSQL database.
type Store struct {
	db *bun.DB
}

// New creates a Store on db.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertDocument writes doc, replacing a document with the same id.
func (s *Store) InsertDocument(ctx context.Context, doc search.Document) error {
	row, err := newDocumentRow(doc)
	if err != nil {
		return err
	}
	_, err = s.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("source_file = EXCLUDED.source_file").
		Set("document_type = EXCLUDED.document_type").
		Set("structured_layout = EXCLUDED.structured_layout").
		Set("blob_url = EXCLUDED.blob_url").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// DeleteDocument deletes a document and, through the foreign key, its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.deleteDocumentQuery(id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *Store) deleteDocumentQuery(id string) *bun.DeleteQuery {
	return s.db.NewDelete().Model((*documentRow)(nil)).Where("id = ?", id)
}

// UpsertChunks writes chunk rows together with their embeddings.
func (s *Store) UpsertChunks(ctx context.Context, chunks []vectorstore.Embedded) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]chunkRow, 0, len(chunks))
	for _, e := range chunks {
		rows = append(rows, chunkRow{
			ID:         e.Chunk.ID,
			DocumentID: e.Chunk.DocumentID,
			SessionID:  e.Chunk.SessionID,
			PageNumber: e.Chunk.PageNumber,
			Content:    e.Chunk.Content,
			Embedding:  pgvector.NewVector(e.Vector),
		})
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("page_number = EXCLUDED.page_number").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}
	return nil
}

func (s *Store) nearestQuery(rows *[]chunkRow, scope search.Scope, vec []float32, limit int) *bun.SelectQuery {
	q := s.db.NewSelect().
		Model(rows).
		ExcludeColumn("embedding").
		Where("c.session_id = ?", scope.SessionID)
	if scope.DocumentID != "" {
		q = q.Where("c.document_id = ?", scope.DocumentID)
	}
	return q.OrderExpr("c.embedding <-> ?", pgvector.NewVector(vec)).Limit(limit)
}

// NearestChunks returns up to limit chunks in scope by L2 distance.
func (s *Store) NearestChunks(ctx context.Context, scope search.Scope, vec []float32, limit int) ([]search.Chunk, error) {
	if limit <= 0 {
		return []search.Chunk{}, nil
	}
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("store", time.Since(start)) }()

	var rows []chunkRow
	if err := s.nearestQuery(&rows, scope, vec, limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query nearest chunks: %w", err)
	}
	return toChunks(rows), nil
}

func (s *Store) pagesQuery(rows *[]chunkRow, sessionID string, pages []int) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(rows).
		ExcludeColumn("embedding").
		Where("c.session_id = ?", sessionID).
		Where("c.page_number IN (?)", bun.In(pages)).
		Order("c.page_number ASC", "c.id ASC")
}

// ChunksByPages returns every chunk in the session on one of pages, ordered by page.
func (s *Store) ChunksByPages(ctx context.Context, sessionID string, pages []int) ([]search.Chunk, error) {
	if len(pages) == 0 {
		return []search.Chunk{}, nil
	}
	var rows []chunkRow
	if err := s.pagesQuery(&rows, sessionID, pages).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query chunks by page: %w", err)
	}
	return toChunks(rows), nil
}

func (s *Store) containingQuery(rows *[]chunkRow, scope search.Scope, term string, limit int) *bun.SelectQuery {
	q := s.db.NewSelect().
		Model(rows).
		ExcludeColumn("embedding").
		Where("c.session_id = ?", scope.SessionID).
		Where(`c.content ILIKE ? ESCAPE '\'`, "%"+escapeLike(term)+"%")
	if scope.DocumentID != "" {
		q = q.Where("c.document_id = ?", scope.DocumentID)
	}
	return q.Order("c.id ASC").Limit(limit)
}

// ChunksContaining returns up to limit chunks in scope whose content contains term, ignoring case.
func (s *Store) ChunksContaining(ctx context.Context, scope search.Scope, term string, limit int) ([]search.Chunk, error) {
	if limit <= 0 {
		return []search.Chunk{}, nil
	}
	var rows []chunkRow
	if err := s.containingQuery(&rows, scope, term, limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query chunks by keyword: %w", err)
	}
	return toChunks(rows), nil
}

// GetDocument returns search.ErrNotFound when id does not exist.
func (s *Store) GetDocument(ctx context.Context, id string) (search.Document, error) {
	var row documentRow
	err := s.db.NewSelect().Model(&row).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return search.Document{}, search.ErrNotFound
	}
	if err != nil {
		return search.Document{}, fmt.Errorf("failed to query document: %w", err)
	}
	return row.toDocument(ctx), nil
}

func (s *Store) recentQuery(rows *[]documentRow, sessionID string, n int) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(rows).
		Where("d.session_id = ?", sessionID).
		Order("d.created_at DESC", "d.id DESC").
		Limit(n)
}

// LatestDocument returns the newest document in the session, or search.ErrNotFound.
func (s *Store) LatestDocument(ctx context.Context, sessionID string) (search.Document, error) {
	docs, err := s.RecentDocuments(ctx, sessionID, 1)
	if err != nil {
		return search.Document{}, err
	}
	if len(docs) == 0 {
		return search.Document{}, search.ErrNotFound
	}
	return docs[0], nil
}

// RecentDocuments returns up to n documents of the session, newest first.
func (s *Store) RecentDocuments(ctx context.Context, sessionID string, n int) ([]search.Document, error) {
	var rows []documentRow
	if err := s.recentQuery(&rows, sessionID, n).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query recent documents: %w", err)
	}
	docs := make([]search.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.toDocument(ctx))
	}
	return docs, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
