package indexer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"docuchat-ai/internal/llm"
	"docuchat-ai/internal/llm/mocks"
	"docuchat-ai/internal/search"
	"docuchat-ai/internal/vectorstore"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type recordingDocs struct {
	mu   sync.Mutex
	docs []search.Document
	err  error
}

func (r *recordingDocs) InsertDocument(_ context.Context, doc search.Document) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
	return nil
}

func (r *recordingDocs) DeleteDocument(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.docs {
		if d.ID == id {
			r.docs = append(r.docs[:i], r.docs[i+1:]...)
			break
		}
	}
	return nil
}

type recordingChunks struct {
	mu     sync.Mutex
	chunks []vectorstore.Embedded
	err    error
}

func (r *recordingChunks) UpsertChunks(_ context.Context, chunks []vectorstore.Embedded) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunks...)
	return nil
}

type batchFake struct {
	calls int
}

func (b *batchFake) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("Embed should not be called when a batch API exists")
}

func (b *batchFake) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	b.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(docs DocumentWriter, chunks ChunkWriter, embedder llm.Embedder) *Pipeline {
	p := NewPipeline(docs, chunks, embedder)
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestPipeline_Load_Pages(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().Embed(gomock.Any(), "# Summary\nRevenue grew 12%.").Return([]float32{1, 0}, nil)
	embedder.EXPECT().Embed(gomock.Any(), "Costs fell.").Return([]float32{0, 1}, nil)

	docs := &recordingDocs{}
	chunks := &recordingChunks{}
	p := newTestPipeline(docs, chunks, embedder)

	in := Input{
		SessionID:    "s1",
		SourceFile:   "report.pdf",
		DocumentType: "pdf",
		Pages: search.Blueprint{
			{PageNumber: 1, CombinedMarkdown: "  # Summary\nRevenue grew 12%.\n"},
			{PageNumber: 2, CombinedMarkdown: "   "},
			{PageNumber: 3, CombinedMarkdown: "Costs fell."},
		},
	}

	doc, n, err := p.Load(context.Background(), in)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Load() chunks = %d, want 2", n)
	}
	if doc.ID == "" || doc.SessionID != "s1" || doc.SourceFile != "report.pdf" || doc.DocumentType != "pdf" {
		t.Errorf("Load() document = %+v", doc)
	}
	if !doc.CreatedAt.Equal(fixedNow) {
		t.Errorf("CreatedAt = %v, want %v", doc.CreatedAt, fixedNow)
	}
	if len(doc.Layout) != 3 {
		t.Errorf("Layout pages = %d, want 3", len(doc.Layout))
	}

	if len(docs.docs) != 1 || docs.docs[0].ID != doc.ID {
		t.Fatalf("documents written = %+v", docs.docs)
	}
	if len(chunks.chunks) != 2 {
		t.Fatalf("chunks written = %d, want 2", len(chunks.chunks))
	}
	wantPages := []int{1, 3}
	for i, c := range chunks.chunks {
		if c.Chunk.PageNumber != wantPages[i] {
			t.Errorf("chunk %d page = %d, want %d", i, c.Chunk.PageNumber, wantPages[i])
		}
		if c.Chunk.DocumentID != doc.ID || c.Chunk.SessionID != "s1" || c.Chunk.ID == "" {
			t.Errorf("chunk %d = %+v", i, c.Chunk)
		}
		if len(c.Vector) != 2 {
			t.Errorf("chunk %d vector = %v", i, c.Vector)
		}
	}
	if chunks.chunks[1].Vector[1] != 1 {
		t.Errorf("vectors not matched to their chunk: %v", chunks.chunks[1].Vector)
	}
}

func TestPipeline_Load_Content(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().Embed(gomock.Any(), "A photo of a red bicycle.").Return([]float32{1}, nil)

	chunks := &recordingChunks{}
	p := newTestPipeline(&recordingDocs{}, chunks, embedder)

	doc, n, err := p.Load(context.Background(), Input{
		SessionID:  "s1",
		SourceFile: "bike.jpg",
		BlobURL:    "https://blob/bike.jpg",
		Content:    "A photo of a red bicycle.",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if n != 1 || len(chunks.chunks) != 1 {
		t.Fatalf("chunks = %d/%d, want 1", n, len(chunks.chunks))
	}
	if chunks.chunks[0].Chunk.PageNumber != 1 {
		t.Errorf("page = %d, want 1", chunks.chunks[0].Chunk.PageNumber)
	}
	if doc.BlobURL != "https://blob/bike.jpg" || len(doc.Layout) != 0 {
		t.Errorf("document = %+v", doc)
	}
}

func TestPipeline_Load_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{name: "missing session", in: Input{SourceFile: "a.pdf", Content: "x"}},
		{name: "missing source file", in: Input{SessionID: "s1", Content: "x"}},
		{name: "no pages or content", in: Input{SessionID: "s1", SourceFile: "a.pdf"}},
		{name: "only blank pages", in: Input{SessionID: "s1", SourceFile: "a.pdf", Pages: search.Blueprint{{PageNumber: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			docs := &recordingDocs{}
			chunks := &recordingChunks{}
			p := newTestPipeline(docs, chunks, mocks.NewMockEmbedder(ctrl))

			if _, _, err := p.Load(context.Background(), tt.in); err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if len(docs.docs) != 0 || len(chunks.chunks) != 0 {
				t.Error("Load() should not write anything for invalid input")
			}
		})
	}
}

func TestPipeline_Load_Failures(t *testing.T) {
	in := Input{SessionID: "s1", SourceFile: "a.txt", Content: "hello"}

	t.Run("embedding failure writes nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		embedder := mocks.NewMockEmbedder(ctrl)
		embedder.EXPECT().Embed(gomock.Any(), "hello").Return(nil, errors.New("model down"))

		docs := &recordingDocs{}
		p := newTestPipeline(docs, &recordingChunks{}, embedder)
		if _, _, err := p.Load(context.Background(), in); err == nil {
			t.Fatal("Load() expected error")
		}
		if len(docs.docs) != 0 {
			t.Error("document should not be written when embedding fails")
		}
	})

	t.Run("document write failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		embedder := mocks.NewMockEmbedder(ctrl)
		embedder.EXPECT().Embed(gomock.Any(), "hello").Return([]float32{1}, nil)

		chunks := &recordingChunks{}
		p := newTestPipeline(&recordingDocs{err: errors.New("disk full")}, chunks, embedder)
		if _, _, err := p.Load(context.Background(), in); err == nil {
			t.Fatal("Load() expected error")
		}
		if len(chunks.chunks) != 0 {
			t.Error("chunks should not be written when the document write fails")
		}
	})

	t.Run("chunk write failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		embedder := mocks.NewMockEmbedder(ctrl)
		embedder.EXPECT().Embed(gomock.Any(), "hello").Return([]float32{1}, nil)

		docs := &recordingDocs{}
		p := newTestPipeline(docs, &recordingChunks{err: errors.New("index down")}, embedder)
		if _, _, err := p.Load(context.Background(), in); err == nil {
			t.Fatal("Load() expected error")
		}
		if len(docs.docs) != 0 {
			t.Errorf("document should be removed when chunks fail, got %d documents", len(docs.docs))
		}
	})
}

func TestPipeline_Load_BatchEmbedder(t *testing.T) {
	embedder := &batchFake{}
	chunks := &recordingChunks{}
	p := newTestPipeline(&recordingDocs{}, chunks, embedder)

	_, n, err := p.Load(context.Background(), Input{
		SessionID:  "s1",
		SourceFile: "deck.pdf",
		Pages: search.Blueprint{
			{PageNumber: 1, CombinedMarkdown: "one"},
			{PageNumber: 2, CombinedMarkdown: "two"},
		},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if n != 2 || embedder.calls != 1 {
		t.Errorf("chunks = %d, batch calls = %d; want 2 and 1", n, embedder.calls)
	}
	if chunks.chunks[1].Vector[0] != 1 {
		t.Errorf("second chunk vector = %v", chunks.chunks[1].Vector)
	}
}

func TestPipeline_LoadAll(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(good, []byte(`{"session_id":"s1","source_file":"notes.txt","content":"hello"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte(`{"session_id":`), 0o644); err != nil {
		t.Fatal(err)
	}

	embedder := &batchFake{}
	docs := &recordingDocs{}
	p := newTestPipeline(docs, &recordingChunks{}, embedder)

	stats, err := p.LoadAll(context.Background(), []string{good, bad, filepath.Join(dir, "missing.json")})
	if err == nil {
		t.Fatal("LoadAll() expected error for failed files")
	}
	if stats.DocsProcessed != 3 || stats.DocsFailed != 2 || stats.ChunksWritten != 1 {
		t.Errorf("LoadAll() stats = %+v", stats)
	}
	if len(docs.docs) != 1 || docs.docs[0].SourceFile != "notes.txt" {
		t.Errorf("documents written = %+v", docs.docs)
	}
}

func TestPipeline_LoadAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(&recordingDocs{}, &recordingChunks{}, &batchFake{})
	if _, err := p.LoadAll(ctx, []string{"a.json"}); !errors.Is(err, context.Canceled) {
		t.Errorf("LoadAll() error = %v, want context.Canceled", err)
	}
}
