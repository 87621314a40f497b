package rag

import (
	"fmt"
	"strings"

	"docuchat-ai/internal/history"
	"docuchat-ai/internal/query"
	"docuchat-ai/internal/search"
)

const systemInstructions = `You are a helpful assistant that answers questions about the user's uploaded documents.
Answer using only the sources below. If they do not contain the answer, say so.
After every claim taken from a source, cite it with a marker of the form [SOURCE: <file name>, Page <n>].
Use the file name and page exactly as shown in the source header. Omit ", Page <n>" for sources without a page.`

var intentGuidance = map[query.Intent]string{
	query.IntentSpecificContent:   "The user wants exact wording: quote the sources verbatim where possible.",
	query.IntentVisualDescription: "The user asks about visual content: rely on image descriptions and captions in the sources.",
	query.IntentFactualLookup:     "Answer the factual question directly and concisely.",
	query.IntentComparison:        "Compare the items point by point.",
	query.IntentSummary:           "Give a structured summary of the main points.",
	query.IntentFollowUp:          "This continues the conversation: use it to resolve what the question refers to.",
}

// sourceLabel names a chunk the way the model should cite it.
func sourceLabel(c search.Chunk, docs map[string]search.Document) string {
	name := "unknown"
	if d, ok := docs[c.DocumentID]; ok && d.SourceFile != "" {
		name = d.SourceFile
	}
	if c.PageNumber > 0 {
		return fmt.Sprintf("[SOURCE: %s, Page %d]", name, c.PageNumber)
	}
	return fmt.Sprintf("[SOURCE: %s]", name)
}

func buildAnswerPrompt(question string, hist []history.Message, res search.Result) string {
	var b strings.Builder
	b.WriteString(systemInstructions)
	b.WriteString("\n")

	if guidance, ok := intentGuidance[query.DetectIntent(question)]; ok {
		b.WriteString(guidance)
		b.WriteString("\n")
	}
	if file, ok := query.SpecificFileName(question); ok {
		fmt.Fprintf(&b, "The question is about the file %q.\n", file)
	}

	if len(hist) > 0 {
		b.WriteString("\n--- Conversation so far ---\n")
		for _, m := range hist {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	b.WriteString("\n--- Sources ---\n\n")
	for _, c := range res.Chunks {
		b.WriteString(sourceLabel(c, res.Documents))
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(c.Content))
		b.WriteString("\n\n")
	}
	b.WriteString("--- End Sources ---\n\n")

	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}
