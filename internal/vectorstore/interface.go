package vectorstore

import (
	"context"

	"docuchat-ai/internal/search"
)

// Embedded is a chunk together with its embedding.
type Embedded struct {
	Chunk  search.Chunk
	Vector []float32
}

// ChunkIndex is a vector index that can be written to as well as queried.
type ChunkIndex interface {
	search.VectorIndex

	// UpsertChunks inserts or replaces the given chunks.
	UpsertChunks(ctx context.Context, chunks []Embedded) error
}

// Payload keys shared by the index backends.
const (
	keyChunkID    = "chunk_id"
	keySessionID  = "session_id"
	keyDocumentID = "document_id"
	keyPage       = "page_number"
	keyContent    = "content"
)
