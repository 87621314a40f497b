package citation

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/llm"
)

const (
	minPhraseWords    = 3
	maxPhraseWords    = 8
	minPhraseChars    = 11
	maxPhrases        = 6
	fallbackMinChars  = 5
	maxFallbackPhrase = 3
)

// PhraseExtractor picks the salient phrases of a chunk for a citation.
type PhraseExtractor struct {
	gen llm.Generator
}

// NewPhraseExtractor creates a PhraseExtractor.
func NewPhraseExtractor(gen llm.Generator) *PhraseExtractor {
	return &PhraseExtractor{gen: gen}
}

// Extract asks the model for phrases of chunk tied to citationContext and
// keeps the valid ones. When the model fails or nothing survives validation
// it falls back to context words found verbatim in the chunk.
func (p *PhraseExtractor) Extract(ctx context.Context, chunk, citationContext string) []string {
	logger := contextutil.LoggerFromContext(ctx)

	raw, err := p.gen.Generate(ctx, buildPhrasePrompt(chunk, citationContext))
	if err != nil {
		logger.WarnContext(ctx, "phrase extraction unavailable, using fallback", "error", err)
		return fallbackPhrases(chunk, citationContext)
	}

	phrases := validPhrases(raw, chunk)
	if len(phrases) == 0 {
		logger.DebugContext(ctx, "no valid phrases from model, using fallback", "raw", raw)
		return fallbackPhrases(chunk, citationContext)
	}
	return phrases
}

func buildPhrasePrompt(chunk, citationContext string) string {
	return fmt.Sprintf(`An answer cited the source passage below. Pick 3 to 6 phrases from the passage that support the claim in the citation context.
Each phrase must be 3 to 8 words copied exactly from the passage.
Reply with the phrases separated by "|" and nothing else.

Citation context:
%s

Passage:
%s
`, citationContext, chunk)
}

// validPhrases splits a pipe-delimited reply and keeps phrases with 3-8
// words, more than 10 characters, that occur in chunk ignoring case.
func validPhrases(raw, chunk string) []string {
	lowerChunk := strings.ToLower(chunk)
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(raw, "|") {
		phrase := strings.Trim(strings.TrimSpace(part), "\"'`“”")
		phrase = strings.TrimSpace(phrase)
		n := len(strings.Fields(phrase))
		if n < minPhraseWords || n > maxPhraseWords || len([]rune(phrase)) < minPhraseChars {
			continue
		}
		key := strings.ToLower(phrase)
		if seen[key] || !strings.Contains(lowerChunk, key) {
			continue
		}
		seen[key] = true
		out = append(out, phrase)
		if len(out) == maxPhrases {
			break
		}
	}
	return out
}

// fallbackPhrases returns up to three context words longer than four
// characters that appear verbatim in chunk.
func fallbackPhrases(chunk, citationContext string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, field := range strings.Fields(citationContext) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(word)) < fallbackMinChars || seen[word] || !strings.Contains(chunk, word) {
			continue
		}
		seen[word] = true
		out = append(out, word)
		if len(out) == maxFallbackPhrase {
			break
		}
	}
	return out
}
