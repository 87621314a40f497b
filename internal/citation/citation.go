// Package citation maps the [SOURCE: ...] markers of a generated answer back
// to retrieved chunks and renders highlighted excerpts for them.
package citation

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/llm"
	"docuchat-ai/internal/search"
)

const snippetChars = 300

// phraseConcurrency bounds the phrase extraction calls of one answer.
const phraseConcurrency = 4

// Citation links one marker occurrence to the chunk supporting it.
type Citation struct {
	SourceFile       string   `json:"source_file"`
	PageNumber       int      `json:"page_number,omitempty"`
	ContentSnippet   string   `json:"content_snippet"`
	BlobURL          string   `json:"blob_url,omitempty"`
	ChunkID          string   `json:"chunk_id"`
	SpecificContent  string   `json:"specific_content"`
	HighlightType    Strategy `json:"highlight_type"`
	HighlightPhrases []string `json:"highlight_phrases"`
	HighlightedHTML  string   `json:"highlighted_html"`
	// CitationIndex is shared by every citation of the same source file.
	CitationIndex int `json:"citation_index"`
	// InstanceID is unique per marker occurrence.
	InstanceID string `json:"instance_id"`
}

// Service extracts citations from answers.
type Service struct {
	phrases *PhraseExtractor
}

// NewService creates a Service that uses gen for phrase extraction.
func NewService(gen llm.Generator) *Service {
	return &Service{phrases: NewPhraseExtractor(gen)}
}

// instanceID names the occurrence of the i-th marker in an answer.
func instanceID(i int) string {
	return fmt.Sprintf("cite-%d", i+1)
}

// ExtractCitations resolves every marker in answer against the retrieved
// chunks. Markers with no matching chunk produce no citation. The result is
// in marker order.
func (s *Service) ExtractCitations(ctx context.Context, answer string, res search.Result) []Citation {
	logger := contextutil.LoggerFromContext(ctx)

	markers := FindMarkers(answer)
	slots := make([]*Citation, len(markers))

	var g errgroup.Group
	g.SetLimit(phraseConcurrency)
	for i, m := range markers {
		citationContext := markerContext(answer, m)
		chunk, ok := bestCandidate(citationContext, candidates(m, res))
		if !ok {
			logger.DebugContext(ctx, "no chunk for citation marker", "marker", m.Raw)
			continue
		}
		doc := res.Documents[chunk.DocumentID]
		g.Go(func() error {
			c := s.build(ctx, chunk, doc, citationContext)
			c.InstanceID = instanceID(i)
			slots[i] = &c
			return nil
		})
	}
	_ = g.Wait()

	numbers := make(map[string]int)
	citations := make([]Citation, 0, len(markers))
	for _, c := range slots {
		if c == nil {
			continue
		}
		n, ok := numbers[c.SourceFile]
		if !ok {
			n = len(numbers) + 1
			numbers[c.SourceFile] = n
		}
		c.CitationIndex = n
		citations = append(citations, *c)
	}

	logger.InfoContext(ctx, "citations extracted", "markers", len(markers), "citations", len(citations))
	return citations
}

func (s *Service) build(ctx context.Context, chunk search.Chunk, doc search.Document, citationContext string) Citation {
	c := Citation{
		SourceFile:      doc.SourceFile,
		PageNumber:      chunk.PageNumber,
		ContentSnippet:  snippet(chunk.Content),
		BlobURL:         doc.BlobURL,
		ChunkID:         chunk.ID,
		SpecificContent: bestSentence(citationContext, chunk.Content),
	}
	if c.BlobURL == "" {
		c.BlobURL = doc.Layout.PageImageURL(chunk.PageNumber)
	}

	structure := AnalyzeTextStructure(chunk.Content)
	c.HighlightType = structure.Strategy
	if structure.Strategy == FullHighlight {
		c.HighlightPhrases = []string{}
		c.HighlightedHTML = RenderFull(chunk.Content)
		return c
	}

	c.HighlightPhrases = s.phrases.Extract(ctx, chunk.Content, citationContext)
	if c.HighlightPhrases == nil {
		c.HighlightPhrases = []string{}
	}
	c.HighlightedHTML = RenderPhrases(chunk.Content, c.HighlightPhrases)
	return c
}

func snippet(content string) string {
	r := []rune(strings.TrimSpace(content))
	if len(r) <= snippetChars {
		return string(r)
	}
	return strings.TrimSpace(string(r[:snippetChars])) + "..."
}
