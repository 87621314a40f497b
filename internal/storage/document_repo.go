package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/search"
)

const documentColumns = "id, session_id, source_file, document_type, structured_layout, blob_url, created_at"

// DocumentRepo stores document blueprints. It implements search.DocumentStore.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// InsertDocument inserts doc. doc.ID must be set; a zero CreatedAt is set to now.
func (r *DocumentRepo) InsertDocument(ctx context.Context, doc search.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	var layout any
	if len(doc.Layout) > 0 {
		raw, err := json.Marshal(doc.Layout)
		if err != nil {
			return fmt.Errorf("failed to marshal layout: %w", err)
		}
		layout = string(raw)
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO documents ("+documentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		doc.ID, doc.SessionID, doc.SourceFile, doc.DocumentType, layout, doc.BlobURL, doc.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// DeleteDocument deletes a document; its chunks go with it through the
// foreign key. Deleting a missing document is not an error.
func (r *DocumentRepo) DeleteDocument(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// GetDocument gets a document by ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetDocument(ctx context.Context, id string) (search.Document, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return search.Document{}, ErrNotFound
	}
	if err != nil {
		return search.Document{}, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

// LatestDocument returns the newest document of the session, or ErrNotFound.
func (r *DocumentRepo) LatestDocument(ctx context.Context, sessionID string) (search.Document, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		sessionID,
	)
	doc, err := scanDocument(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return search.Document{}, ErrNotFound
	}
	if err != nil {
		return search.Document{}, fmt.Errorf("failed to query latest document: %w", err)
	}
	return doc, nil
}

// RecentDocuments returns up to n documents of the session, newest first.
func (r *DocumentRepo) RecentDocuments(ctx context.Context, sessionID string, n int) ([]search.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := []search.Document{}
	for rows.Next() {
		doc, err := scanDocument(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one row. A malformed layout is logged and left empty.
func scanDocument(ctx context.Context, s scanner) (search.Document, error) {
	var (
		doc    search.Document
		layout sql.NullString
	)
	if err := s.Scan(&doc.ID, &doc.SessionID, &doc.SourceFile, &doc.DocumentType, &layout, &doc.BlobURL, &doc.CreatedAt); err != nil {
		return search.Document{}, err
	}
	if layout.Valid {
		bp, err := search.DecodeBlueprint([]byte(layout.String))
		if err != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "ignoring malformed document layout",
				"document_id", doc.ID, "error", err)
		}
		doc.Layout = bp
	}
	return doc, nil
}
