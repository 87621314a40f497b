package citation

import (
	"bytes"
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const (
	highlightOpen  = `<span class="highlight">`
	highlightClose = `</span>`
)

var (
	markdown   = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithHardWraps()))
	tagPattern = regexp.MustCompile(`<[^>]*>`)
	wordChar   = regexp.MustCompile(`\w`)
)

// RenderFull renders content as light markdown wrapped in one highlight block.
// Raw HTML in content is not passed through.
func RenderFull(content string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		buf.Reset()
		buf.WriteString("<p>" + strings.ReplaceAll(html.EscapeString(content), "\n", "<br>\n") + "</p>")
	}
	return `<div class="highlight highlight-full">` + strings.TrimSpace(buf.String()) + `</div>`
}

// RenderPhrases escapes content and highlights each phrase occurrence.
func RenderPhrases(content string, phrases []string) string {
	body := HighlightPhrases(html.EscapeString(content), phrases)
	return `<div class="highlight-phrases">` + strings.ReplaceAll(body, "\n", "<br>\n") + `</div>`
}

// HighlightPhrases wraps occurrences of phrases in escaped HTML with
// highlight spans, longest phrase first. Phrases of up to three words match
// on word boundaries. Text inside tags or existing highlight spans is left
// alone, so applying the same phrases again changes nothing.
func HighlightPhrases(escaped string, phrases []string) string {
	ordered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return utf8.RuneCountInString(ordered[i]) > utf8.RuneCountInString(ordered[j])
	})

	out := escaped
	for _, phrase := range ordered {
		out = wrapOutsideHighlights(out, phrasePattern(phrase))
	}
	return out
}

func phrasePattern(phrase string) *regexp.Regexp {
	expr := regexp.QuoteMeta(html.EscapeString(phrase))
	if len(strings.Fields(phrase)) <= 3 {
		// \b only holds next to a word character.
		if wordChar.MatchString(phrase[:1]) {
			expr = `\b` + expr
		}
		if wordChar.MatchString(phrase[len(phrase)-1:]) {
			expr += `\b`
		}
	}
	return regexp.MustCompile(`(?i)` + expr)
}

// wrapOutsideHighlights applies re to text segments that are neither tags
// nor inside a highlight span.
func wrapOutsideHighlights(s string, re *regexp.Regexp) string {
	var b strings.Builder
	depth := 0
	last := 0
	flush := func(text string) {
		if depth > 0 {
			b.WriteString(text)
			return
		}
		b.WriteString(re.ReplaceAllStringFunc(text, func(m string) string {
			return highlightOpen + m + highlightClose
		}))
	}
	for _, loc := range tagPattern.FindAllStringIndex(s, -1) {
		flush(s[last:loc[0]])
		tag := s[loc[0]:loc[1]]
		switch {
		case tag == highlightOpen:
			depth++
		case tag == highlightClose && depth > 0:
			depth--
		}
		b.WriteString(tag)
		last = loc[1]
	}
	flush(s[last:])
	return b.String()
}
