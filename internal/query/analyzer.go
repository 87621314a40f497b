package query

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/llm"
)

const maxSubQueries = 4

// Analysis is the structured reading of one user query. Fields absent from
// the model output stay false/empty.
type Analysis struct {
	IsComplex              bool     `json:"isComplex"`
	SubQueries             []string `json:"subQueries,omitempty"`
	FocusRecent            bool     `json:"focusRecent"`
	IsAboutLatestFile      bool     `json:"isAboutLatestFile"`
	IsImageSpecific        bool     `json:"isImageSpecific"`
	ShouldPrioritizeImages bool     `json:"shouldPrioritizeImages"`
	IsFollowUp             bool     `json:"isFollowUp"`
	ExpandedTerms          []string `json:"expandedTerms,omitempty"`
	NeedsSpecificQuotes    bool     `json:"needsSpecificQuotes"`
	// FocusStandaloneOnly is always derived from the query text, never from the model.
	FocusStandaloneOnly bool `json:"focusStandaloneOnly"`
}

// Turn is one prior message in the conversation.
type Turn struct {
	Role    string
	Content string
}

// RecentFile describes a document recently added to the session.
type RecentFile struct {
	Name      string
	CreatedAt time.Time
}

// SessionContext is what the analyzer knows about the conversation so far.
type SessionContext struct {
	History     []Turn
	RecentFiles []RecentFile
}

var standalonePattern = regexp.MustCompile(`(?i)\b(this file|this image|this document|this pdf|this photo|this picture|latest|attached|just uploaded|i uploaded|most recent|the upload)\b`)

// FocusesStandalone reports whether q points at a single, just-provided file.
func FocusesStandalone(q string) bool {
	return standalonePattern.MatchString(q)
}

// Analyzer produces an Analysis with one generation call.
type Analyzer struct {
	gen llm.Generator
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(gen llm.Generator) *Analyzer {
	return &Analyzer{gen: gen}
}

// AnalyzeQuery asks the model for an Analysis. Model failures and malformed
// output yield the fallback {IsComplex: false}; it never returns an error.
func (a *Analyzer) AnalyzeQuery(ctx context.Context, q string, sc SessionContext) Analysis {
	logger := contextutil.LoggerFromContext(ctx)

	analysis := Analysis{}
	raw, err := a.gen.Generate(ctx, buildAnalysisPrompt(q, sc))
	if err != nil {
		logger.WarnContext(ctx, "query analysis unavailable, using fallback", "error", err)
	} else if parsed, err := parseAnalysis(raw); err != nil {
		logger.WarnContext(ctx, "query analysis malformed, using fallback", "error", err)
	} else {
		analysis = parsed
	}

	analysis.FocusStandaloneOnly = FocusesStandalone(q)

	logger.DebugContext(ctx, "query analyzed",
		"is_complex", analysis.IsComplex,
		"sub_queries", len(analysis.SubQueries),
		"latest_file", analysis.IsAboutLatestFile,
		"quotes", analysis.NeedsSpecificQuotes,
		"standalone", analysis.FocusStandaloneOnly,
	)
	return analysis
}

func parseAnalysis(raw string) (Analysis, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return Analysis{}, fmt.Errorf("no JSON object in model output")
	}
	var a Analysis
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return Analysis{}, fmt.Errorf("failed to decode analysis: %w", err)
	}
	a.SubQueries = cleanList(a.SubQueries, maxSubQueries)
	a.ExpandedTerms = cleanList(a.ExpandedTerms, 0)
	return a, nil
}

// extractJSONObject strips code fences and surrounding prose from model output.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

func cleanList(items []string, max int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if max > 0 && len(out) == max {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func buildAnalysisPrompt(q string, sc SessionContext) string {
	var b strings.Builder
	b.WriteString("You analyze questions asked about a user's uploaded documents.\n")
	b.WriteString("Reply with one JSON object and nothing else, using exactly these fields:\n")
	b.WriteString(`{"isComplex": bool, "subQueries": [string], "focusRecent": bool, "isAboutLatestFile": bool, ` +
		`"isImageSpecific": bool, "shouldPrioritizeImages": bool, "isFollowUp": bool, "expandedTerms": [string], ` +
		`"needsSpecificQuotes": bool}` + "\n")
	b.WriteString("isComplex is true only when the question needs several independent lookups; then list up to 4 self-contained subQueries.\n")
	b.WriteString("needsSpecificQuotes is true when the user wants exact wording, names or figures.\n\n")

	if len(sc.History) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range sc.History {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, truncate(turn.Content, 300))
		}
		b.WriteString("\n")
	}
	if len(sc.RecentFiles) > 0 {
		b.WriteString("Recently added files (newest first):\n")
		for _, f := range sc.RecentFiles {
			fmt.Fprintf(&b, "- %s (added %s)\n", f.Name, f.CreatedAt.UTC().Format(time.RFC3339))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s\n", q)
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
