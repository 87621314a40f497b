package storage

import (
	"context"
	"testing"

	"docuchat-ai/internal/search"
)

func seedChunks(t *testing.T, repo *ChunkRepo, docs *DocumentRepo) {
	t.Helper()
	ctx := context.Background()
	for _, d := range []search.Document{
		{ID: "d1", SessionID: "s1", SourceFile: "report.pdf"},
		{ID: "d2", SessionID: "s1", SourceFile: "memo.txt"},
		{ID: "d3", SessionID: "s2", SourceFile: "other.pdf"},
	} {
		if err := docs.InsertDocument(ctx, d); err != nil {
			t.Fatalf("InsertDocument() error = %v", err)
		}
	}
	for _, c := range []search.Chunk{
		{ID: "c1", DocumentID: "d1", SessionID: "s1", PageNumber: 1, Content: "Introduction to the annual report"},
		{ID: "c2", DocumentID: "d1", SessionID: "s1", PageNumber: 2, Content: "Revenue grew 12% to $4M"},
		{ID: "c3", DocumentID: "d1", SessionID: "s1", PageNumber: 3, Content: "Costs: 50% fixed_rate"},
		{ID: "c4", DocumentID: "d2", SessionID: "s1", PageNumber: 1, Content: "REVENUE targets for next year"},
		{ID: "c5", DocumentID: "d3", SessionID: "s2", PageNumber: 2, Content: "Revenue in another session"},
	} {
		if err := repo.InsertChunk(ctx, c); err != nil {
			t.Fatalf("InsertChunk() error = %v", err)
		}
	}
}

func chunkIDs(chunks []search.Chunk) []string {
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}
	return ids
}

func sameIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestChunkRepo_ChunksByPages(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepo(db)
	seedChunks(t, repo, NewDocumentRepo(db))
	ctx := context.Background()

	tests := []struct {
		name  string
		pages []int
		want  []string
	}{
		{"single page across documents", []int{1}, []string{"c1", "c4"}},
		{"several pages", []int{3, 2}, []string{"c2", "c3"}},
		{"missing page", []int{99}, []string{}},
		{"no pages", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ChunksByPages(ctx, "s1", tt.pages)
			if err != nil {
				t.Fatalf("ChunksByPages() error = %v", err)
			}
			if ids := chunkIDs(got); !sameIDs(ids, tt.want) {
				t.Errorf("ChunksByPages() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestChunkRepo_ChunksContaining(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepo(db)
	seedChunks(t, repo, NewDocumentRepo(db))
	ctx := context.Background()

	tests := []struct {
		name  string
		scope search.Scope
		term  string
		limit int
		want  []string
	}{
		{"case insensitive", search.Scope{SessionID: "s1"}, "revenue", 10, []string{"c2", "c4"}},
		{"document scope", search.Scope{SessionID: "s1", DocumentID: "d2"}, "revenue", 10, []string{"c4"}},
		{"limit", search.Scope{SessionID: "s1"}, "revenue", 1, []string{"c2"}},
		{"percent is literal", search.Scope{SessionID: "s1"}, "50%", 10, []string{"c3"}},
		{"underscore is literal", search.Scope{SessionID: "s1"}, "d_rate", 10, []string{"c3"}},
		{"underscore does not wildcard", search.Scope{SessionID: "s1"}, "Revenue_grew", 10, []string{}},
		{"no match", search.Scope{SessionID: "s1"}, "dividends", 10, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ChunksContaining(ctx, tt.scope, tt.term, tt.limit)
			if err != nil {
				t.Fatalf("ChunksContaining() error = %v", err)
			}
			if ids := chunkIDs(got); !sameIDs(ids, tt.want) {
				t.Errorf("ChunksContaining() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestChunkRepo_ChunksContaining_NonASCIICase(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepo(db)
	ctx := context.Background()

	if err := NewDocumentRepo(db).InsertDocument(ctx, search.Document{ID: "d1", SessionID: "s1", SourceFile: "bericht.pdf"}); err != nil {
		t.Fatalf("InsertDocument() error = %v", err)
	}
	for _, c := range []search.Chunk{
		{ID: "c1", DocumentID: "d1", SessionID: "s1", PageNumber: 1, Content: "ÜBERSICHT der UMSÄTZE"},
		{ID: "c2", DocumentID: "d1", SessionID: "s1", PageNumber: 2, Content: "Ελληνικά έσοδα"},
	} {
		if err := repo.InsertChunk(ctx, c); err != nil {
			t.Fatalf("InsertChunk() error = %v", err)
		}
	}

	tests := []struct {
		term string
		want []string
	}{
		{"übersicht", []string{"c1"}},
		{"Umsätze", []string{"c1"}},
		{"ΕΛΛΗΝΙΚΆ", []string{"c2"}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, err := repo.ChunksContaining(ctx, search.Scope{SessionID: "s1"}, tt.term, 10)
			if err != nil {
				t.Fatalf("ChunksContaining() error = %v", err)
			}
			if ids := chunkIDs(got); !sameIDs(ids, tt.want) {
				t.Errorf("ChunksContaining(%q) = %v, want %v", tt.term, ids, tt.want)
			}
		})
	}
}

func TestChunkRepo_InsertRequiresDocument(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepo(db)

	err := repo.InsertChunk(context.Background(), search.Chunk{ID: "c1", DocumentID: "missing", SessionID: "s1", PageNumber: 1, Content: "x"})
	if err == nil {
		t.Error("InsertChunk() expected foreign key error, got nil")
	}
}
