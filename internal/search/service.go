package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/llm"
	"docuchat-ai/internal/metrics"
	"docuchat-ai/internal/query"
)

const (
	// DefaultLimit caps the chunks returned by a search.
	DefaultLimit = 10
	// LatestFileTopN is how many chunks the latest-file strategy contributes.
	LatestFileTopN = 5
	// MaxKeywordTerms bounds the substring queries one search may issue.
	MaxKeywordTerms = 5

	minKeywordLength = 3
)

// Strategy names, used for logging and metrics.
const (
	StrategyPages    = "pages"
	StrategySemantic = "semantic"
	StrategyKeyword  = "keyword"
	StrategyLatest   = "latest"
)

// Request is one search.
type Request struct {
	SessionID string
	Query     string
	Analysis  query.Analysis
	Keywords  query.SmartKeywords
	// Pages are explicit page references from the query.
	Pages []int
	// Limit overrides the service limit when positive.
	Limit int
}

// Service runs the retrieval strategies and merges their results.
type Service struct {
	embedder llm.Embedder
	chunks   ChunkStore
	docs     DocumentStore
	limit    int
}

// NewService creates a Service. A non-positive limit uses DefaultLimit.
func NewService(embedder llm.Embedder, chunks ChunkStore, docs DocumentStore, limit int) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{embedder: embedder, chunks: chunks, docs: docs, limit: limit}
}

// task is one store query whose chunks land in a fixed slot of the pool.
type task struct {
	strategy string
	run      func(ctx context.Context) ([]Chunk, error)
}

// Search returns at most the limit of deduplicated chunks, ordered pages,
// semantic, keyword, latest-file, and the documents they belong to.
// Store and embedding failures are returned; a document that fails to
// resolve is only logged.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("search", time.Since(start)) }()

	limit := req.Limit
	if limit <= 0 {
		limit = s.limit
	}

	scope := Scope{SessionID: req.SessionID}
	var latest *Document
	if req.Analysis.FocusStandaloneOnly || req.Analysis.IsAboutLatestFile {
		doc, err := s.docs.LatestDocument(ctx, req.SessionID)
		switch {
		case errors.Is(err, ErrNotFound):
			logger.DebugContext(ctx, "no documents in session, searching unscoped")
		case err != nil:
			return Result{}, fmt.Errorf("failed to load latest document: %w", err)
		default:
			latest = &doc
		}
	}
	if req.Analysis.FocusStandaloneOnly && latest != nil {
		scope.DocumentID = latest.ID
	}

	semantic := semanticQueries(req, limit)

	texts := make([]string, 0, len(semantic)+1)
	for _, q := range semantic {
		texts = append(texts, q.text)
	}
	if req.Analysis.IsAboutLatestFile && latest != nil {
		texts = append(texts, req.Query)
	}
	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return Result{}, err
	}

	var tasks []task
	if len(req.Pages) > 0 {
		pages := req.Pages
		tasks = append(tasks, task{StrategyPages, func(ctx context.Context) ([]Chunk, error) {
			return s.chunks.ChunksByPages(ctx, req.SessionID, pages)
		}})
	}
	for _, q := range semantic {
		vec, n := vectors[q.text], q.limit
		tasks = append(tasks, task{StrategySemantic, func(ctx context.Context) ([]Chunk, error) {
			return s.chunks.NearestChunks(ctx, scope, vec, n)
		}})
	}
	if req.Analysis.NeedsSpecificQuotes {
		for _, term := range keywordTerms(req.Keywords.All) {
			tasks = append(tasks, task{StrategyKeyword, func(ctx context.Context) ([]Chunk, error) {
				return s.chunks.ChunksContaining(ctx, scope, term, limit)
			}})
		}
	}
	if req.Analysis.IsAboutLatestFile && latest != nil {
		latestScope := Scope{SessionID: req.SessionID, DocumentID: latest.ID}
		vec := vectors[req.Query]
		tasks = append(tasks, task{StrategyLatest, func(ctx context.Context) ([]Chunk, error) {
			return s.chunks.NearestChunks(ctx, latestScope, vec, LatestFileTopN)
		}})
	}

	slots := make([][]Chunk, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tasks {
		g.Go(func() error {
			chunks, err := t.run(gctx)
			if err != nil {
				return fmt.Errorf("%s search failed: %w", t.strategy, err)
			}
			slots[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var pool []Chunk
	for i, t := range tasks {
		metrics.RecordStrategyChunks(t.strategy, len(slots[i]))
		pool = append(pool, slots[i]...)
	}

	chunks := Dedup(pool)
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}

	logger.InfoContext(ctx, "search completed",
		"pool", len(pool),
		"returned", len(chunks),
		"limit", limit,
		"strategies", len(tasks),
		"scoped_document", scope.DocumentID,
	)

	if len(chunks) == 0 {
		return Result{Chunks: []Chunk{}, Documents: map[string]Document{}}, nil
	}

	return Result{Chunks: chunks, Documents: s.resolveDocuments(ctx, chunks)}, nil
}

type semanticQuery struct {
	text  string
	limit int
}

func semanticQueries(req Request, limit int) []semanticQuery {
	if req.Analysis.IsComplex && len(req.Analysis.SubQueries) > 0 {
		subs := req.Analysis.SubQueries
		per := (limit + len(subs) - 1) / len(subs)
		out := make([]semanticQuery, 0, len(subs))
		for _, sub := range subs {
			out = append(out, semanticQuery{text: sub, limit: per})
		}
		return out
	}
	return []semanticQuery{{text: req.Query, limit: limit}}
}

// keywordTerms picks up to MaxKeywordTerms distinct terms long enough to be selective.
func keywordTerms(all []string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, kw := range all {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if len([]rune(kw)) < minKeywordLength || seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, kw)
		if len(terms) == MaxKeywordTerms {
			break
		}
	}
	return terms
}

// embedAll embeds each distinct text once, concurrently.
func (s *Service) embedAll(ctx context.Context, texts []string) (map[string][]float32, error) {
	var distinct []string
	seen := make(map[string]bool)
	for _, t := range texts {
		if !seen[t] {
			seen[t] = true
			distinct = append(distinct, t)
		}
	}

	vecs := make([][]float32, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	for i, text := range distinct {
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("failed to embed query: %w", err)
			}
			vecs[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]float32, len(distinct))
	for i, text := range distinct {
		out[text] = vecs[i]
	}
	return out, nil
}

// resolveDocuments fetches each distinct parent document in parallel.
func (s *Service) resolveDocuments(ctx context.Context, chunks []Chunk) map[string]Document {
	logger := contextutil.LoggerFromContext(ctx)

	var ids []string
	seen := make(map[string]bool)
	for _, c := range chunks {
		if !seen[c.DocumentID] {
			seen[c.DocumentID] = true
			ids = append(ids, c.DocumentID)
		}
	}

	docs := make([]*Document, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			doc, err := s.docs.GetDocument(ctx, id)
			if err != nil {
				logger.WarnContext(ctx, "failed to resolve document", "document_id", id, "error", err)
				return nil
			}
			docs[i] = &doc
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Document, len(ids))
	for i, id := range ids {
		if docs[i] != nil {
			out[id] = *docs[i]
		}
	}
	return out
}
