package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks docuchat-ai/internal/rag Engine
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_searcher.go -package=mocks docuchat-ai/internal/rag Searcher

import (
	"context"
	"fmt"

	"docuchat-ai/internal/citation"
	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/history"
	"docuchat-ai/internal/llm"
	"docuchat-ai/internal/query"
	"docuchat-ai/internal/search"
)

// NoResultsAnswer is returned when retrieval finds nothing to answer from.
const NoResultsAnswer = "I couldn't find any relevant documents to answer your question. Try uploading a document or rephrasing the question."

// recentFileCount is how many session documents the analyzer is told about.
const recentFileCount = 5

// Progress messages, in the order they are reported.
const (
	ProgressAnalyzing  = "Analyzing your question"
	ProgressSearching  = "Searching documents"
	ProgressGenerating = "Generating answer"
	ProgressCiting     = "Matching citations"
)

// Request is one user question in a session.
type Request struct {
	SessionID string
	Message   string
	// History is the recent conversation, oldest first.
	History []history.Message
}

// Result is the final answer with its citations.
type Result struct {
	// Answer has every resolved marker replaced by a numbered superscript.
	Answer    string              `json:"answer"`
	Citations []citation.Citation `json:"citations"`
	IsComplex bool                `json:"is_complex"`
}

// Progress receives free-text status updates while a query runs.
type Progress func(message string)

// Engine answers questions from the documents of a session.
type Engine interface {
	// AnswerQuery reports progress zero or more times and then returns either
	// the result or an error.
	AnswerQuery(ctx context.Context, req Request, progress Progress) (Result, error)
}

// Searcher retrieves the chunks relevant to a query.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (search.Result, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	analyzer  *query.Analyzer
	searcher  Searcher
	docs      search.DocumentStore
	gen       llm.Generator
	citations *citation.Service
}

// NewEngine creates a new RAG engine. gen serves query analysis and the answer itself.
func NewEngine(gen llm.Generator, searcher Searcher, docs search.DocumentStore, citations *citation.Service) Engine {
	return &ragEngine{
		analyzer:  query.NewAnalyzer(gen),
		searcher:  searcher,
		docs:      docs,
		gen:       gen,
		citations: citations,
	}
}

// AnswerQuery runs analysis, search, generation and citation matching.
func (e *ragEngine) AnswerQuery(ctx context.Context, req Request, progress Progress) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)
	if progress == nil {
		progress = func(string) {}
	}

	logger.InfoContext(ctx, "RAG query started", "session_id", req.SessionID, "history", len(req.History))

	progress(ProgressAnalyzing)
	analysis := e.analyzer.AnalyzeQuery(ctx, req.Message, e.sessionContext(ctx, req))

	progress(ProgressSearching)
	res, err := e.searcher.Search(ctx, search.Request{
		SessionID: req.SessionID,
		Query:     req.Message,
		Analysis:  analysis,
		Keywords:  query.ExtractSmartKeywords(req.Message),
		Pages:     query.ExtractPageNumbers(req.Message),
	})
	if err != nil {
		logger.ErrorContext(ctx, "search failed", "error", err)
		return Result{}, fmt.Errorf("failed to search documents: %w", err)
	}

	if res.Empty() {
		logger.InfoContext(ctx, "no relevant chunks found")
		return Result{
			Answer:    NoResultsAnswer,
			Citations: []citation.Citation{},
			IsComplex: analysis.IsComplex,
		}, nil
	}

	progress(ProgressGenerating)
	prompt := buildAnswerPrompt(req.Message, req.History, res)
	logger.DebugContext(ctx, "sending answer prompt", "prompt_length", len(prompt), "chunks", len(res.Chunks))

	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate answer", "error", err)
		return Result{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	progress(ProgressCiting)
	cites := e.citations.ExtractCitations(ctx, raw, res)
	answer := citation.ProcessResponse(raw, cites)

	logger.InfoContext(ctx, "RAG query completed",
		"chunks_used", len(res.Chunks),
		"citations", len(cites),
		"answer_length", len(answer),
		"is_complex", analysis.IsComplex,
	)

	return Result{
		Answer:    answer,
		Citations: cites,
		IsComplex: analysis.IsComplex,
	}, nil
}

// sessionContext gathers what the analyzer should know about the session.
// Failing to list recent documents only makes the analysis less informed.
func (e *ragEngine) sessionContext(ctx context.Context, req Request) query.SessionContext {
	sc := query.SessionContext{History: make([]query.Turn, 0, len(req.History))}
	for _, m := range req.History {
		sc.History = append(sc.History, query.Turn{Role: m.Role, Content: m.Content})
	}

	docs, err := e.docs.RecentDocuments(ctx, req.SessionID, recentFileCount)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to list recent documents", "error", err)
		return sc
	}
	for _, d := range docs {
		sc.RecentFiles = append(sc.RecentFiles, query.RecentFile{Name: d.SourceFile, CreatedAt: d.CreatedAt})
	}
	return sc
}
