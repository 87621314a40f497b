package search

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks docuchat-ai/internal/search ChunkStore
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks docuchat-ai/internal/search DocumentStore

import "context"

// Scope restricts a chunk query to a session and, optionally, one document.
type Scope struct {
	SessionID  string
	DocumentID string
}

// VectorIndex answers nearest-neighbour queries over chunk embeddings.
type VectorIndex interface {
	// NearestChunks returns up to limit chunks in scope, closest first.
	NearestChunks(ctx context.Context, scope Scope, vec []float32, limit int) ([]Chunk, error)
}

// ChunkLookup answers exact chunk queries.
type ChunkLookup interface {
	// ChunksByPages returns every chunk in the session whose page is in pages.
	ChunksByPages(ctx context.Context, sessionID string, pages []int) ([]Chunk, error)
	// ChunksContaining returns up to limit chunks in scope whose content
	// contains term, ignoring case.
	ChunksContaining(ctx context.Context, scope Scope, term string, limit int) ([]Chunk, error)
}

// ChunkStore is everything the search service asks of chunk storage.
type ChunkStore interface {
	VectorIndex
	ChunkLookup
}

// SplitStore serves vector queries from one backend and exact lookups from another.
type SplitStore struct {
	VectorIndex
	ChunkLookup
}

// DocumentStore reads document metadata.
type DocumentStore interface {
	// GetDocument returns ErrNotFound when id does not exist.
	GetDocument(ctx context.Context, id string) (Document, error)
	// LatestDocument returns the most recently created document in the
	// session, or ErrNotFound.
	LatestDocument(ctx context.Context, sessionID string) (Document, error)
	// RecentDocuments returns up to n documents, newest first.
	RecentDocuments(ctx context.Context, sessionID string, n int) ([]Document, error)
}
