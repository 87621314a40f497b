package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/search"
)

// DocumentHandler renders a stored document blueprint as an HTML page so a
// citation can link back to its source.
type DocumentHandler struct {
	docs     search.DocumentStore
	parser   goldmark.Markdown
	template *template.Template
}

type documentPageData struct {
	Title     string
	SessionID string
	BlobURL   string
	Pages     []renderedPage
}

type renderedPage struct {
	Number  int
	Images  []search.ContentBlock
	Content template.HTML
}

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
      margin: 0 auto;
      padding: 2rem;
      max-width: 900px;
      line-height: 1.7;
    }
    section {
      border: 1px solid #e2e8f0;
      border-radius: 12px;
      padding: 1.5rem 2rem;
      margin-bottom: 1.5rem;
    }
    figure img {
      max-width: 100%;
    }
    .meta {
      color: #64748b;
      font-size: 0.95rem;
    }
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    <p class="meta">Session: {{.SessionID}}{{if .BlobURL}} &middot; <a href="{{.BlobURL}}">original</a>{{end}}</p>
  </header>
  {{range .Pages}}
  <section id="page-{{.Number}}">
    <h2>Page {{.Number}}</h2>
    {{range .Images}}<figure><img src="{{.URL}}" alt="{{.Description}}">{{if .Caption}}<figcaption>{{.Caption}}</figcaption>{{end}}</figure>{{end}}
    {{.Content}}
  </section>
  {{else}}
  <p class="meta">This document has no page layout.</p>
  {{end}}
</body>
</html>`))

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(docs search.DocumentStore) *DocumentHandler {
	return &DocumentHandler{
		docs: docs,
		// Raw HTML stays escaped: page markdown comes from extracted document text.
		parser: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Typographer,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
		template: documentTemplate,
	}
}

// ServeHTTP renders the requested document. ?page=N limits the output to one page.
func (h *DocumentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id := strings.TrimSpace(chi.URLParam(r, "documentID"))
	if id == "" {
		http.Error(w, "document id is required", http.StatusBadRequest)
		return
	}

	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = n
	}

	doc, err := h.docs.GetDocument(ctx, id)
	if errors.Is(err, search.ErrNotFound) {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to load document", "document_id", id, "error", err)
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return
	}

	data := documentPageData{
		Title:     doc.SourceFile,
		SessionID: doc.SessionID,
		BlobURL:   doc.BlobURL,
	}
	for _, p := range doc.Layout {
		if page > 0 && p.PageNumber != page {
			continue
		}
		rendered, err := h.renderPage(p)
		if err != nil {
			logger.ErrorContext(ctx, "failed to render markdown", "document_id", id, "page", p.PageNumber, "error", err)
			http.Error(w, "failed to render document", http.StatusInternalServerError)
			return
		}
		data.Pages = append(data.Pages, rendered)
	}
	if page > 0 && len(data.Pages) == 0 {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := h.template.Execute(&buf, data); err != nil {
		logger.ErrorContext(ctx, "failed to execute document template", "document_id", id, "error", err)
		http.Error(w, "failed to render document", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *DocumentHandler) renderPage(p search.PageLayout) (renderedPage, error) {
	var buf bytes.Buffer
	if err := h.parser.Convert([]byte(p.CombinedMarkdown), &buf); err != nil {
		return renderedPage{}, fmt.Errorf("convert markdown: %w", err)
	}
	rp := renderedPage{Number: p.PageNumber, Content: template.HTML(buf.String())}
	for _, b := range p.ContentBlocks {
		if b.Type == search.BlockImage && b.URL != "" {
			rp.Images = append(rp.Images, b)
		}
	}
	return rp, nil
}
