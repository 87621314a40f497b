package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/llm"
	"docuchat-ai/internal/search"
	"docuchat-ai/internal/vectorstore"
)

// embedConcurrency bounds parallel embedding calls for providers without a batch API.
const embedConcurrency = 4

// batchEmbedder is implemented by providers that embed many texts in one call.
type batchEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline loads blueprint files into the document and chunk stores.
type Pipeline struct {
	docs     DocumentWriter
	chunks   ChunkWriter
	embedder llm.Embedder
	now      func() time.Time
}

// NewPipeline creates a new loading pipeline.
func NewPipeline(docs DocumentWriter, chunks ChunkWriter, embedder llm.Embedder) *Pipeline {
	return &Pipeline{
		docs:     docs,
		chunks:   chunks,
		embedder: embedder,
		now:      time.Now,
	}
}

// Load stores in as a new document and writes one embedded chunk per page,
// or a single page-1 chunk for a pageless artifact. It returns the stored
// document and the number of chunks written.
func (p *Pipeline) Load(ctx context.Context, in Input) (search.Document, int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validate(in); err != nil {
		return search.Document{}, 0, err
	}

	doc := search.Document{
		ID:           uuid.NewString(),
		SessionID:    in.SessionID,
		SourceFile:   in.SourceFile,
		DocumentType: in.DocumentType,
		Layout:       in.Pages,
		BlobURL:      in.BlobURL,
		CreatedAt:    p.now().UTC(),
	}

	chunks := buildChunks(doc, in)
	if len(chunks) == 0 {
		return search.Document{}, 0, fmt.Errorf("%s: no page has content", in.SourceFile)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := p.embed(ctx, texts)
	if err != nil {
		return search.Document{}, 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	embedded := make([]vectorstore.Embedded, len(chunks))
	for i, c := range chunks {
		embedded[i] = vectorstore.Embedded{Chunk: c, Vector: vectors[i]}
	}

	// The document goes first: chunk rows reference it.
	if err := p.docs.InsertDocument(ctx, doc); err != nil {
		return search.Document{}, 0, fmt.Errorf("failed to insert document: %w", err)
	}
	if err := p.chunks.UpsertChunks(ctx, embedded); err != nil {
		// A document without chunks would still win LatestDocument.
		if delErr := p.docs.DeleteDocument(context.WithoutCancel(ctx), doc.ID); delErr != nil {
			logger.ErrorContext(ctx, "failed to remove partially loaded document",
				"document_id", doc.ID, "source_file", doc.SourceFile, "error", delErr)
			err = errors.Join(err, delErr)
		}
		return search.Document{}, 0, fmt.Errorf("failed to write chunks: %w", err)
	}

	logger.InfoContext(ctx, "loaded document",
		"document_id", doc.ID, "source_file", doc.SourceFile, "session_id", doc.SessionID, "chunks", len(chunks))
	return doc, len(chunks), nil
}

// LoadFile decodes a blueprint JSON file and loads it.
func (p *Pipeline) LoadFile(ctx context.Context, path string) (search.Document, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return search.Document{}, 0, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return search.Document{}, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return p.Load(ctx, in)
}

// LoadAll loads every file in paths. Errors for individual files are logged
// but don't stop the run.
func (p *Pipeline) LoadAll(ctx context.Context, paths []string) (Stats, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := p.now()

	var stats Stats
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stats.DocsProcessed++
		_, n, err := p.LoadFile(ctx, path)
		if err != nil {
			stats.DocsFailed++
			logger.ErrorContext(ctx, "failed to load file", "path", path, "error", err)
			continue
		}
		stats.ChunksWritten += n
	}
	stats.Duration = p.now().Sub(start)

	logger.InfoContext(ctx, "loading completed",
		"docs", stats.DocsProcessed, "failed", stats.DocsFailed, "chunks", stats.ChunksWritten)

	if stats.DocsFailed > 0 {
		return stats, fmt.Errorf("loading completed with %d errors", stats.DocsFailed)
	}
	return stats, nil
}

func validate(in Input) error {
	var errs []error
	if strings.TrimSpace(in.SessionID) == "" {
		errs = append(errs, errors.New("session_id is required"))
	}
	if strings.TrimSpace(in.SourceFile) == "" {
		errs = append(errs, errors.New("source_file is required"))
	}
	if len(in.Pages) == 0 && strings.TrimSpace(in.Content) == "" {
		errs = append(errs, errors.New("pages or content is required"))
	}
	return errors.Join(errs...)
}

func buildChunks(doc search.Document, in Input) []search.Chunk {
	newChunk := func(page int, content string) search.Chunk {
		return search.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			SessionID:  doc.SessionID,
			PageNumber: page,
			Content:    content,
		}
	}

	if len(in.Pages) == 0 {
		return []search.Chunk{newChunk(1, strings.TrimSpace(in.Content))}
	}

	chunks := make([]search.Chunk, 0, len(in.Pages))
	for _, page := range in.Pages {
		content := strings.TrimSpace(page.CombinedMarkdown)
		if content == "" {
			continue
		}
		chunks = append(chunks, newChunk(page.PageNumber, content))
	}
	return chunks
}

func (p *Pipeline) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if b, ok := p.embedder.(batchEmbedder); ok {
		vecs, err := b.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(vecs))
		}
		return vecs, nil
	}

	vecs := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := p.embedder.Embed(gctx, text)
			if err != nil {
				return err
			}
			vecs[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vecs, nil
}
