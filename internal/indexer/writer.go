package indexer

import (
	"context"
	"fmt"

	"docuchat-ai/internal/vectorstore"
)

// SplitWriter writes chunk text to a relational store and vectors to a
// separate index, the layout used by the SQLite backend.
type SplitWriter struct {
	Rows  ChunkRowWriter
	Index ChunkWriter
}

// UpsertChunks writes rows first so a vector hit always resolves to stored text.
func (w SplitWriter) UpsertChunks(ctx context.Context, chunks []vectorstore.Embedded) error {
	for _, c := range chunks {
		if err := w.Rows.InsertChunk(ctx, c.Chunk); err != nil {
			return fmt.Errorf("failed to insert chunk row: %w", err)
		}
	}
	if err := w.Index.UpsertChunks(ctx, chunks); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	return nil
}
