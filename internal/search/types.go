// Package search finds the chunks that answer a query and resolves the
// documents they came from.
package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by stores when a document does not exist.
var ErrNotFound = errors.New("not found")

// Chunk is a stored, embedded unit of document content.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	SessionID  string `json:"session_id"`
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

// Document is the blueprint record of one ingested file.
type Document struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	SourceFile   string    `json:"source_file"`
	DocumentType string    `json:"document_type"`
	Layout       Blueprint `json:"structured_layout,omitempty"`
	// BlobURL is set for single-chunk artifacts (images, plain text).
	BlobURL   string    `json:"blob_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Blueprint is the per-page structured layout of a multi-page document.
type Blueprint []PageLayout

// PageLayout describes one page.
type PageLayout struct {
	PageNumber       int            `json:"page_number"`
	PageDimensions   PageDimensions `json:"page_dimensions"`
	ContentBlocks    []ContentBlock `json:"content_blocks"`
	CombinedMarkdown string         `json:"combined_markdown"`
}

// PageDimensions is a page size in points.
type PageDimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Block types found in a page layout.
const (
	BlockText             = "text"
	BlockImage            = "image"
	BlockHeaderFooterText = "header_footer_text"
	BlockOCRText          = "ocr_text_block"
	BlockVector           = "vector"
)

// ContentBlock is one positioned element of a page.
type ContentBlock struct {
	Type           string `json:"type"`
	URL            string `json:"url,omitempty"`
	SourceImageURL string `json:"source_image_url,omitempty"`
	Caption        string `json:"caption,omitempty"`
	Description    string `json:"description,omitempty"`
	Content        string `json:"content,omitempty"`
}

// DecodeBlueprint parses structured_layout JSON. Empty input is an empty blueprint.
func DecodeBlueprint(raw []byte) (Blueprint, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var bp Blueprint
	if err := json.Unmarshal(raw, &bp); err != nil {
		return nil, fmt.Errorf("failed to decode blueprint: %w", err)
	}
	return bp, nil
}

// Page returns the layout of page n.
func (b Blueprint) Page(n int) (PageLayout, bool) {
	for _, p := range b {
		if p.PageNumber == n {
			return p, true
		}
	}
	return PageLayout{}, false
}

// PageImageURL returns the first image source on page n, or "".
func (b Blueprint) PageImageURL(n int) string {
	page, ok := b.Page(n)
	if !ok {
		return ""
	}
	for _, block := range page.ContentBlocks {
		switch block.Type {
		case BlockImage, BlockVector:
			if block.URL != "" {
				return block.URL
			}
		case BlockOCRText:
			if block.SourceImageURL != "" {
				return block.SourceImageURL
			}
		}
	}
	return ""
}

// Result is the outcome of a search. Documents holds every resolved parent
// document keyed by ID; chunks whose document failed to resolve have no entry.
type Result struct {
	Chunks    []Chunk
	Documents map[string]Document
}

// Empty reports whether the search found nothing.
func (r Result) Empty() bool {
	return len(r.Chunks) == 0
}
