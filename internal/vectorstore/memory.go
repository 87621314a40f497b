package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/search"
)

// MemoryStore is an in-process ChunkIndex backed by chromem-go. It suits
// development and tests; nothing survives a restart.
type MemoryStore struct {
	collection *chromem.Collection
}

// errNoEmbedder is returned if chromem is ever asked to embed text itself;
// chunks always arrive with their vectors.
var errNoEmbedder = errors.New("memory store requires precomputed embeddings")

// NewMemoryStore creates an empty in-memory index.
func NewMemoryStore() (*MemoryStore, error) {
	db := chromem.NewDB()
	c, err := db.GetOrCreateCollection(DefaultCollection, nil, func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbedder
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return &MemoryStore{collection: c}, nil
}

// UpsertChunks adds chunks to the collection, replacing any with the same id.
func (m *MemoryStore) UpsertChunks(ctx context.Context, chunks []Embedded) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, e := range chunks {
		docs = append(docs, chromem.Document{
			ID:      e.Chunk.ID,
			Content: e.Chunk.Content,
			Metadata: map[string]string{
				keySessionID:  e.Chunk.SessionID,
				keyDocumentID: e.Chunk.DocumentID,
				keyPage:       strconv.Itoa(e.Chunk.PageNumber),
			},
			Embedding: e.Vector,
		})
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "indexed chunks in memory", "count", len(docs))
	return nil
}

// NearestChunks returns up to limit chunks in scope ordered by cosine similarity.
func (m *MemoryStore) NearestChunks(ctx context.Context, scope search.Scope, vec []float32, limit int) ([]search.Chunk, error) {
	// chromem rejects a result count above the collection size.
	n := min(limit, m.collection.Count())
	if n <= 0 {
		return []search.Chunk{}, nil
	}

	where := map[string]string{keySessionID: scope.SessionID}
	if scope.DocumentID != "" {
		where[keyDocumentID] = scope.DocumentID
	}

	results, err := m.collection.QueryEmbedding(ctx, vec, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	chunks := make([]search.Chunk, 0, len(results))
	for _, r := range results {
		page, _ := strconv.Atoi(r.Metadata[keyPage])
		chunks = append(chunks, search.Chunk{
			ID:         r.ID,
			SessionID:  r.Metadata[keySessionID],
			DocumentID: r.Metadata[keyDocumentID],
			PageNumber: page,
			Content:    r.Content,
		})
	}
	return chunks, nil
}
