package indexer

import (
	"context"
	"time"

	"docuchat-ai/internal/search"
	"docuchat-ai/internal/vectorstore"
)

// Input is one pre-built blueprint file. A multi-page document carries
// Pages; an image or plain-text artifact carries Content and usually a BlobURL.
type Input struct {
	SessionID    string           `json:"session_id"`
	SourceFile   string           `json:"source_file"`
	DocumentType string           `json:"document_type,omitempty"`
	BlobURL      string           `json:"blob_url,omitempty"`
	Pages        search.Blueprint `json:"pages,omitempty"`
	Content      string           `json:"content,omitempty"`
}

// DocumentWriter persists blueprint records. DeleteDocument also removes
// the document's chunk rows.
type DocumentWriter interface {
	InsertDocument(ctx context.Context, doc search.Document) error
	DeleteDocument(ctx context.Context, id string) error
}

// ChunkWriter persists embedded chunks.
type ChunkWriter interface {
	UpsertChunks(ctx context.Context, chunks []vectorstore.Embedded) error
}

// ChunkRowWriter stores chunk text without its vector.
type ChunkRowWriter interface {
	InsertChunk(ctx context.Context, chunk search.Chunk) error
}

// Stats summarizes a LoadAll run.
type Stats struct {
	DocsProcessed int           `json:"docs_processed"`
	DocsFailed    int           `json:"docs_failed"`
	ChunksWritten int           `json:"chunks_written"`
	Duration      time.Duration `json:"duration"`
}
