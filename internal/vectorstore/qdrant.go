package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/search"
)

// DefaultCollection is the collection chunks are stored in when none is configured.
const DefaultCollection = "chunks"

// QdrantStore implements ChunkIndex using Qdrant.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr, collection string) (*QdrantStore, error) {
	host, port, err := parseQdrantAddress(urlStr)
	if err != nil {
		return nil, err
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: collection,
	}, nil
}

// parseQdrantAddress returns the gRPC host and port for a Qdrant HTTP URL.
func parseQdrantAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}
	return host, port, nil
}

// pointID maps a chunk id onto a Qdrant point id. Qdrant only accepts UUIDs
// and integers, so other ids get a stable name-based UUID.
func pointID(chunkID string) string {
	if _, err := uuid.Parse(chunkID); err == nil {
		return chunkID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// UpsertChunks writes chunks and their vectors as points.
func (s *QdrantStore) UpsertChunks(ctx context.Context, chunks []Embedded) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, e := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(e.Chunk.ID)),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(chunkPayload(e.Chunk)),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "count", len(chunks), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", s.collection, "count", len(chunks))
	return nil
}

func chunkPayload(c search.Chunk) map[string]any {
	return map[string]any{
		keyChunkID:    c.ID,
		keySessionID:  c.SessionID,
		keyDocumentID: c.DocumentID,
		keyPage:       int64(c.PageNumber),
		keyContent:    c.Content,
	}
}

// scopeFilter restricts a query to the session and, when set, the document.
func scopeFilter(scope search.Scope) *qdrant.Filter {
	must := []*qdrant.Condition{qdrant.NewMatch(keySessionID, scope.SessionID)}
	if scope.DocumentID != "" {
		must = append(must, qdrant.NewMatch(keyDocumentID, scope.DocumentID))
	}
	return &qdrant.Filter{Must: must}
}

// NearestChunks returns up to limit chunks in scope ordered by similarity.
func (s *QdrantStore) NearestChunks(ctx context.Context, scope search.Scope, vec []float32, limit int) ([]search.Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if limit <= 0 {
		return []search.Chunk{}, nil
	}

	n := uint64(limit)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vec...),
		Filter:         scopeFilter(scope),
		Limit:          &n,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	chunks := make([]search.Chunk, 0, len(scoredPoints))
	for _, p := range scoredPoints {
		chunks = append(chunks, chunkFromPayload(p.GetId(), p.GetPayload()))
	}

	logger.DebugContext(ctx, "vector search completed", "collection", s.collection, "limit", limit, "results", len(chunks))
	return chunks, nil
}

// chunkFromPayload rebuilds a chunk from a scored point. The point's UUID is
// used when the payload predates the chunk_id field.
func chunkFromPayload(id *qdrant.PointId, payload map[string]*qdrant.Value) search.Chunk {
	c := search.Chunk{
		ID:         payload[keyChunkID].GetStringValue(),
		SessionID:  payload[keySessionID].GetStringValue(),
		DocumentID: payload[keyDocumentID].GetStringValue(),
		PageNumber: int(payload[keyPage].GetIntegerValue()),
		Content:    payload[keyContent].GetStringValue(),
	}
	if c.ID == "" {
		c.ID = id.GetUuid()
	}
	return c
}

// CollectionExists checks if the collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Ping reports whether Qdrant answers.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("failed to reach qdrant: %w", err)
	}
	return nil
}

// EnsureCollection ensures the collection exists with the specified vector size.
// If the collection exists, validates that the vector size matches.
// If it doesn't exist, creates it along with keyword indexes on the scope fields.
func (s *QdrantStore) EnsureCollection(ctx context.Context, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		for _, field := range []string{keySessionID, keyDocumentID} {
			_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: s.collection,
				FieldName:      field,
				FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			})
			if err != nil {
				return fmt.Errorf("failed to index %s: %w", field, err)
			}
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	actualSize := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if actualSize == 0 {
		return fmt.Errorf("could not determine collection vector size")
	}
	if int(actualSize) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, actualSize)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", vectorSize)
	return nil
}
