package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat-ai/internal/search"
	"docuchat-ai/internal/storage"
	"docuchat-ai/internal/vectorstore"
)

type failingRows struct{}

type failingIndex struct{}

func (failingIndex) UpsertChunks(context.Context, []vectorstore.Embedded) error {
	return errors.New("qdrant down")
}

func (failingRows) InsertChunk(context.Context, search.Chunk) error {
	return errors.New("constraint failed")
}

func TestSplitWriter_SQLiteAndMemoryIndex(t *testing.T) {
	ctx := context.Background()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.Migrate(db))

	index, err := vectorstore.NewMemoryStore()
	require.NoError(t, err)

	rows := storage.NewChunkRepo(db)
	p := NewPipeline(storage.NewDocumentRepo(db), SplitWriter{Rows: rows, Index: index}, &batchFake{})
	p.now = func() time.Time { return fixedNow }

	doc, n, err := p.Load(ctx, Input{
		SessionID:  "s1",
		SourceFile: "report.pdf",
		Pages: search.Blueprint{
			{PageNumber: 1, CombinedMarkdown: "Revenue grew 12%."},
			{PageNumber: 2, CombinedMarkdown: "Costs fell."},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	byPage, err := rows.ChunksByPages(ctx, "s1", []int{2})
	require.NoError(t, err)
	require.Len(t, byPage, 1)
	assert.Equal(t, "Costs fell.", byPage[0].Content)
	assert.Equal(t, doc.ID, byPage[0].DocumentID)

	nearest, err := index.NearestChunks(ctx, search.Scope{SessionID: "s1"}, []float32{0, 1}, 5)
	require.NoError(t, err)
	assert.Len(t, nearest, 2)

	stored, err := storage.NewDocumentRepo(db).GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", stored.SourceFile)
	assert.Len(t, stored.Layout, 2)
}

func TestSplitWriter_RowFailureSkipsIndex(t *testing.T) {
	index := &recordingChunks{}
	w := SplitWriter{Rows: failingRows{}, Index: index}

	err := w.UpsertChunks(context.Background(), []vectorstore.Embedded{{Chunk: search.Chunk{ID: "c1"}, Vector: []float32{1}}})
	require.Error(t, err)
	assert.Empty(t, index.chunks)
}

func TestSplitWriter_IndexFailureRemovesDocument(t *testing.T) {
	ctx := context.Background()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.Migrate(db))

	docs := storage.NewDocumentRepo(db)
	rows := storage.NewChunkRepo(db)
	p := NewPipeline(docs, SplitWriter{Rows: rows, Index: failingIndex{}}, &batchFake{})

	_, _, err = p.Load(ctx, Input{SessionID: "s1", SourceFile: "broken.pdf", Content: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qdrant down")

	_, err = docs.LatestDocument(ctx, "s1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	chunks, err := rows.ChunksByPages(ctx, "s1", []int{1})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
