package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"docuchat-ai/internal/search"
)

func TestDocumentRepo_InsertAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := search.Document{
		ID:           "d1",
		SessionID:    "s1",
		SourceFile:   "report.pdf",
		DocumentType: "pdf",
		Layout: search.Blueprint{
			{PageNumber: 1, CombinedMarkdown: "# Intro", ContentBlocks: []search.ContentBlock{
				{Type: search.BlockImage, URL: "https://blob/p1.png", Caption: "Chart"},
			}},
		},
		CreatedAt: created,
	}
	if err := repo.InsertDocument(ctx, doc); err != nil {
		t.Fatalf("InsertDocument() error = %v", err)
	}

	got, err := repo.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got.SourceFile != "report.pdf" || got.DocumentType != "pdf" || got.SessionID != "s1" {
		t.Errorf("GetDocument() = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("GetDocument() CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if got.Layout.PageImageURL(1) != "https://blob/p1.png" {
		t.Errorf("GetDocument() layout not decoded: %+v", got.Layout)
	}

	if _, err := repo.GetDocument(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_MalformedLayout(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO documents (id, session_id, source_file, structured_layout, created_at) VALUES ('d1', 's1', 'a.png', '{not json', ?)`, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert error = %v", err)
	}

	got, err := repo.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if len(got.Layout) != 0 {
		t.Errorf("GetDocument() layout = %+v, want empty", got.Layout)
	}
}

func TestDocumentRepo_LatestAndRecent(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"old.pdf", "mid.pdf", "new.png"} {
		doc := search.Document{ID: name, SessionID: "s1", SourceFile: name, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.InsertDocument(ctx, doc); err != nil {
			t.Fatalf("InsertDocument() error = %v", err)
		}
	}
	if err := repo.InsertDocument(ctx, search.Document{ID: "other", SessionID: "s2", SourceFile: "x.pdf", CreatedAt: base.Add(time.Hour * 24)}); err != nil {
		t.Fatalf("InsertDocument() error = %v", err)
	}

	latest, err := repo.LatestDocument(ctx, "s1")
	if err != nil {
		t.Fatalf("LatestDocument() error = %v", err)
	}
	if latest.ID != "new.png" {
		t.Errorf("LatestDocument() = %s, want new.png", latest.ID)
	}

	recent, err := repo.RecentDocuments(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("RecentDocuments() error = %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "new.png" || recent[1].ID != "mid.pdf" {
		t.Errorf("RecentDocuments() = %+v", recent)
	}

	if _, err := repo.LatestDocument(ctx, "empty"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestDocument(empty) error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_DeleteCascadesToChunks(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepo(db)
	chunks := NewChunkRepo(db)
	ctx := context.Background()
	seedChunks(t, chunks, docs)

	if err := docs.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if _, err := docs.GetDocument(ctx, "d1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument(d1) error = %v, want ErrNotFound", err)
	}

	got, err := chunks.ChunksByPages(ctx, "s1", []int{1, 2, 3})
	if err != nil {
		t.Fatalf("ChunksByPages() error = %v", err)
	}
	for _, c := range got {
		if c.DocumentID == "d1" {
			t.Errorf("chunk %s of deleted document still stored", c.ID)
		}
	}
	if len(got) != 1 {
		t.Errorf("ChunksByPages() returned %d chunks, want 1 (c4)", len(got))
	}

	if err := docs.DeleteDocument(ctx, "missing"); err != nil {
		t.Errorf("DeleteDocument(missing) error = %v, want nil", err)
	}
}
