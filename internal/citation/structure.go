package citation

import (
	"regexp"
	"strings"
)

// Strategy is how a cited chunk is highlighted.
type Strategy string

const (
	FullHighlight   Strategy = "FULL_HIGHLIGHT"
	PhraseHighlight Strategy = "PHRASE_HIGHLIGHT"
)

// Structure is the classification of a chunk's text.
type Structure struct {
	Strategy Strategy `json:"type"`
	Reason   string   `json:"reason"`
}

var (
	listItemPattern    = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)]|[A-Za-z][.)])\s+`)
	indentedPattern    = regexp.MustCompile(`^(?: {4,}|\t)`)
	quoteCharPattern   = regexp.MustCompile(`["“”]`)
	speechVerbPattern  = regexp.MustCompile(`(?i)\b(said|asked|yelled|whispered|declared|announced|shouted|replied|responded)\b`)
	quotedSpanPattern  = regexp.MustCompile(`"[^"]*"|“[^”]*”`)
	stanzaBreakPattern = regexp.MustCompile(`\S[ \t]*\n[ \t]*\n\s*\S`)
)

const longQuoteChars = 100

// textStats holds everything the structure rules look at.
type textStats struct {
	lines           int
	listLike        int
	shortLines      int
	words           int
	quotedWords     int
	hasQuotes       bool
	hasSpeechVerb   bool
	hasStanzaBreak  bool
	hasLongQuote    bool
	firstLineWords  int
	firstLinePeriod bool
}

func computeStats(text string) textStats {
	var st textStats
	first := true
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		st.lines++
		if listItemPattern.MatchString(line) || indentedPattern.MatchString(line) {
			st.listLike++
		}
		n := len(strings.Fields(line))
		if n <= 12 {
			st.shortLines++
		}
		if first {
			first = false
			trimmed := strings.TrimSpace(line)
			st.firstLineWords = n
			st.firstLinePeriod = strings.HasSuffix(trimmed, ".")
		}
	}

	st.words = len(strings.Fields(text))
	st.hasQuotes = quoteCharPattern.MatchString(text)
	st.hasSpeechVerb = speechVerbPattern.MatchString(text)
	st.hasStanzaBreak = stanzaBreakPattern.MatchString(text)
	for _, span := range quotedSpanPattern.FindAllString(text, -1) {
		st.quotedWords += len(strings.Fields(span))
		if len([]rune(span)) >= longQuoteChars {
			st.hasLongQuote = true
		}
	}
	return st
}

type structureRule struct {
	strategy Strategy
	reason   string
	match    func(st textStats) bool
}

// structureRules is evaluated in order; the first match wins.
var structureRules = []structureRule{
	{FullHighlight, "structured_text", func(st textStats) bool {
		return st.lines > 0 && float64(st.listLike)/float64(st.lines) > 0.3
	}},
	{FullHighlight, "dialogue", func(st textStats) bool {
		return st.hasQuotes && st.hasSpeechVerb
	}},
	{FullHighlight, "poetry", func(st textStats) bool {
		if st.lines <= 2 {
			return false
		}
		shortFirst := st.firstLineWords <= 4 && !st.firstLinePeriod
		return st.shortLines*2 > st.lines || st.hasStanzaBreak || shortFirst
	}},
	{FullHighlight, "long_quote", func(st textStats) bool {
		return st.hasLongQuote
	}},
	{FullHighlight, "verse_structure", func(st textStats) bool {
		return st.lines > 2 && float64(st.words)/float64(st.lines) < 8
	}},
	{PhraseHighlight, "prose_dominant", func(st textStats) bool {
		return st.words > 0 && float64(st.words-st.quotedWords)/float64(st.words) >= 0.8
	}},
}

// AnalyzeTextStructure picks the highlighting strategy for text.
func AnalyzeTextStructure(text string) Structure {
	st := computeStats(text)
	for _, rule := range structureRules {
		if rule.match(st) {
			return Structure{Strategy: rule.strategy, Reason: rule.reason}
		}
	}
	return Structure{Strategy: PhraseHighlight, Reason: "regular_prose"}
}
