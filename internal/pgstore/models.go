package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/search"
)

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID               string    `bun:"id,pk"`
	SessionID        string    `bun:"session_id,notnull"`
	SourceFile       string    `bun:"source_file,notnull"`
	DocumentType     string    `bun:"document_type"`
	StructuredLayout string    `bun:"structured_layout,type:jsonb,nullzero"`
	BlobURL          string    `bun:"blob_url"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type chunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`

	ID         string          `bun:"id,pk"`
	DocumentID string          `bun:"document_id,notnull"`
	SessionID  string          `bun:"session_id,notnull"`
	PageNumber int             `bun:"page_number,notnull"`
	Content    string          `bun:"content,notnull"`
	Embedding  pgvector.Vector `bun:"embedding,type:vector,notnull"`
}

func newDocumentRow(doc search.Document) (documentRow, error) {
	row := documentRow{
		ID:           doc.ID,
		SessionID:    doc.SessionID,
		SourceFile:   doc.SourceFile,
		DocumentType: doc.DocumentType,
		BlobURL:      doc.BlobURL,
		CreatedAt:    doc.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if len(doc.Layout) > 0 {
		raw, err := json.Marshal(doc.Layout)
		if err != nil {
			return documentRow{}, fmt.Errorf("failed to marshal layout: %w", err)
		}
		row.StructuredLayout = string(raw)
	}
	return row, nil
}

// toDocument converts a row. A malformed layout is logged and left empty.
func (r documentRow) toDocument(ctx context.Context) search.Document {
	doc := search.Document{
		ID:           r.ID,
		SessionID:    r.SessionID,
		SourceFile:   r.SourceFile,
		DocumentType: r.DocumentType,
		BlobURL:      r.BlobURL,
		CreatedAt:    r.CreatedAt,
	}
	bp, err := search.DecodeBlueprint([]byte(r.StructuredLayout))
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "ignoring malformed document layout",
			"document_id", r.ID, "error", err)
	}
	doc.Layout = bp
	return doc
}

func (r chunkRow) toChunk() search.Chunk {
	return search.Chunk{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		SessionID:  r.SessionID,
		PageNumber: r.PageNumber,
		Content:    r.Content,
	}
}

func toChunks(rows []chunkRow) []search.Chunk {
	chunks := make([]search.Chunk, 0, len(rows))
	for _, r := range rows {
		chunks = append(chunks, r.toChunk())
	}
	return chunks
}
