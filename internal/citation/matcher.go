package citation

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"docuchat-ai/internal/search"
)

const (
	contextWindow   = 200
	ngramMax        = 5
	ngramMin        = 3
	ngramWeight     = 15
	wordWeight      = 2
	minMatchWordLen = 4
)

var markerPattern = regexp.MustCompile(`\[SOURCE:\s*([^,\]]+?)\s*(?:,\s*(?i:page)\s*(\d+)\s*)?\]`)

// Marker is one [SOURCE: file[, Page N]] tag in an answer.
type Marker struct {
	Raw   string
	File  string
	Page  int // 0 when the marker names no page
	Start int
	End   int
}

// FindMarkers returns the markers in answer in order of appearance.
func FindMarkers(answer string) []Marker {
	var markers []Marker
	for _, loc := range markerPattern.FindAllStringSubmatchIndex(answer, -1) {
		m := Marker{
			Raw:   answer[loc[0]:loc[1]],
			File:  strings.TrimSpace(answer[loc[2]:loc[3]]),
			Start: loc[0],
			End:   loc[1],
		}
		if loc[4] >= 0 {
			m.Page, _ = strconv.Atoi(answer[loc[4]:loc[5]])
		}
		markers = append(markers, m)
	}
	return markers
}

// markerContext returns the text around m, at most contextWindow bytes each
// side, not crossing a paragraph break, with every marker removed.
func markerContext(answer string, m Marker) string {
	from := m.Start - contextWindow
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(answer[from]) {
		from++
	}
	to := m.End + contextWindow
	if to > len(answer) {
		to = len(answer)
	}
	for to < len(answer) && !utf8.RuneStart(answer[to]) {
		to--
	}

	before := answer[from:m.Start]
	if i := strings.LastIndex(before, "\n\n"); i >= 0 {
		before = before[i+2:]
	}
	after := answer[m.End:to]
	if i := strings.Index(after, "\n\n"); i >= 0 {
		after = after[:i]
	}

	window := markerPattern.ReplaceAllString(before+" "+after, " ")
	return strings.Join(strings.Fields(window), " ")
}

// normalizePath lowercases and trims a file reference.
func normalizePath(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	return strings.TrimRight(p, "/")
}

// matchFilePath reports whether a cited file refers to a document's source
// file. Either side may carry extra leading directories.
func matchFilePath(cited, source string) bool {
	c, s := normalizePath(cited), normalizePath(source)
	if c == "" || s == "" {
		return false
	}
	if c == s {
		return true
	}
	if strings.HasSuffix(s, "/"+c) || strings.HasSuffix(c, "/"+s) {
		return true
	}
	// A bare file name matches any directory.
	if !strings.Contains(c, "/") || !strings.Contains(s, "/") {
		return path.Base(c) == path.Base(s)
	}
	return false
}

// candidates returns the retrieved chunks a marker may refer to.
func candidates(m Marker, res search.Result) []search.Chunk {
	var out []search.Chunk
	for _, c := range res.Chunks {
		doc, ok := res.Documents[c.DocumentID]
		if !ok || !matchFilePath(m.File, doc.SourceFile) {
			continue
		}
		if m.Page != 0 && c.PageNumber != m.Page {
			continue
		}
		out = append(out, c)
	}
	return out
}

// bestCandidate returns the highest scoring chunk; ties and all-zero scores
// go to the earliest candidate.
func bestCandidate(citationContext string, cands []search.Chunk) (search.Chunk, bool) {
	if len(cands) == 0 {
		return search.Chunk{}, false
	}
	best, bestScore := 0, -1
	for i, c := range cands {
		if s := overlapScore(citationContext, c.Content); s > bestScore {
			best, bestScore = i, s
		}
	}
	return cands[best], true
}

// overlapScore rewards shared word n-grams (5 down to 3 words) far more
// than shared single words.
func overlapScore(citationContext, content string) int {
	ctxTokens := tokenize(citationContext)
	contentTokens := tokenize(content)
	if len(ctxTokens) == 0 || len(contentTokens) == 0 {
		return 0
	}
	joined := " " + strings.Join(contentTokens, " ") + " "

	score := 0
	seen := make(map[string]bool)
	for n := ngramMax; n >= ngramMin; n-- {
		for i := 0; i+n <= len(ctxTokens); i++ {
			gram := strings.Join(ctxTokens[i:i+n], " ")
			if seen[gram] {
				continue
			}
			seen[gram] = true
			if strings.Contains(joined, " "+gram+" ") {
				score += ngramWeight * n
			}
		}
	}

	words := make(map[string]bool, len(contentTokens))
	for _, t := range contentTokens {
		words[t] = true
	}
	counted := make(map[string]bool)
	for _, t := range ctxTokens {
		if utf8.RuneCountInString(t) < minMatchWordLen || counted[t] || !words[t] {
			continue
		}
		counted[t] = true
		score += wordWeight * utf8.RuneCountInString(t)
	}
	return score
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*`)

// bestSentence returns the sentence of content that overlaps most with the
// citation context, or the first sentence when none overlaps.
func bestSentence(citationContext, content string) string {
	var best string
	bestScore := -1
	for _, s := range sentencePattern.FindAllString(content, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if score := overlapScore(citationContext, s); score > bestScore {
			best, bestScore = s, score
		}
	}
	return best
}
