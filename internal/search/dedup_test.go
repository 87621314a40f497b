package search

import (
	"reflect"
	"testing"
)

func TestDedup(t *testing.T) {
	pool := []Chunk{
		{ID: "a", Content: "Revenue grew 12%", PageNumber: 3},
		{ID: "b", Content: "Headcount fell", PageNumber: 4},
		{ID: "c", Content: "Revenue grew 12%", PageNumber: 3},
		{ID: "d", Content: "Revenue grew 12%", PageNumber: 5},
		{ID: "a", Content: "Costs were flat", PageNumber: 3},
	}

	got := Dedup(pool)
	var ids []string
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	// Same content on another page survives; reusing an ID with new content survives.
	if want := []string{"a", "b", "d", "a"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("Dedup() ids = %v, want %v", ids, want)
	}

	if again := Dedup(got); !reflect.DeepEqual(again, got) {
		t.Errorf("Dedup() not idempotent: %v vs %v", again, got)
	}
}

func TestDedup_Empty(t *testing.T) {
	if got := Dedup(nil); len(got) != 0 {
		t.Errorf("Dedup(nil) = %v, want empty", got)
	}
}

func TestKeywordTerms(t *testing.T) {
	got := keywordTerms([]string{"Acme", "of", "2023", "acme", "revenue", "growth", "margin", "profit", "extra"})
	want := []string{"Acme", "2023", "revenue", "growth", "margin"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("keywordTerms() = %v, want %v", got, want)
	}
}

func TestBlueprint_PageImageURL(t *testing.T) {
	bp, err := DecodeBlueprint([]byte(`[
		{"page_number": 1, "content_blocks": [{"type": "text", "content": "Intro"}]},
		{"page_number": 2, "content_blocks": [
			{"type": "ocr_text_block", "source_image_url": "https://blob/p2-scan.png", "content": "scan"},
			{"type": "image", "url": "https://blob/p2.png"}
		]},
		{"page_number": 3, "content_blocks": [{"type": "vector", "url": "https://blob/p3.svg"}]}
	]`))
	if err != nil {
		t.Fatalf("DecodeBlueprint() error = %v", err)
	}

	tests := []struct {
		page int
		want string
	}{
		{1, ""},
		{2, "https://blob/p2-scan.png"},
		{3, "https://blob/p3.svg"},
		{9, ""},
	}
	for _, tt := range tests {
		if got := bp.PageImageURL(tt.page); got != tt.want {
			t.Errorf("PageImageURL(%d) = %q, want %q", tt.page, got, tt.want)
		}
	}
}

func TestDecodeBlueprint(t *testing.T) {
	if bp, err := DecodeBlueprint(nil); err != nil || bp != nil {
		t.Errorf("DecodeBlueprint(nil) = %v, %v", bp, err)
	}
	if bp, err := DecodeBlueprint([]byte("null")); err != nil || bp != nil {
		t.Errorf("DecodeBlueprint(null) = %v, %v", bp, err)
	}
	if _, err := DecodeBlueprint([]byte("{broken")); err == nil {
		t.Error("DecodeBlueprint() expected error for malformed JSON")
	}
}
