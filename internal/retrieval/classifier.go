package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/heuristics"
)

const (
	classifierSnippets     = 3
	classifierSnippetChars = 200
	classifierContextChars = 500
)

// Completer answers a single text prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Classifier decides whether a query can be answered from general knowledge.
type Classifier struct {
	completer  Completer
	heuristics *heuristics.Holder
	logger     *slog.Logger
}

// NewClassifier creates a Classifier. A nil holder uses the built-in tables.
func NewClassifier(completer Completer, h *heuristics.Holder, logger *slog.Logger) *Classifier {
	if h == nil {
		h = heuristics.NewHolder(heuristics.MustDefault())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{completer: completer, heuristics: h, logger: logger}
}

// IsLikelyGeneral is the model-free check run before retrieval. A query is
// general when it starts with a general interrogative prefix and does not
// mention the document (page, table, row, figure, ...).
func (c *Classifier) IsLikelyGeneral(query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return true
	}
	set := c.heuristics.Get()
	return set.HasGeneralPrefix(q) && !set.ReferencesDocument(q)
}

// IsGeneral asks the completion service whether the retrieved units are
// relevant to the query. With no retrieved units the bare query is
// classified instead. When the call fails the query is general only if
// nothing was retrieved.
func (c *Classifier) IsGeneral(ctx context.Context, query string, retrieved []document.RetrievalResult) bool {
	if len(retrieved) == 0 {
		decision, err := c.completer.Complete(ctx, generalPrompt(query))
		if err != nil {
			c.logger.Warn("General question check failed, assuming general", "error", err)
			return true
		}
		decision = strings.ToUpper(decision)
		general := strings.Contains(decision, "GENERAL") && !strings.Contains(decision, "DOCUMENT")
		c.logger.Debug("Classified bare query", "decision", decision, "general", general)
		return general
	}

	decision, err := c.completer.Complete(ctx, relevancePrompt(query, retrieved))
	if err != nil {
		c.logger.Warn("Relevance check failed, assuming document question", "error", err)
		return false
	}
	decision = strings.ToUpper(decision)
	general := strings.Contains(decision, "NOT_RELEVANT")
	c.logger.Debug("Classified retrieved content", "decision", decision, "general", general)
	return general
}

func generalPrompt(query string) string {
	return fmt.Sprintf(`Decide whether the question below is general knowledge that can be answered without a specific document, or whether it needs information from a particular document or paper.

Question: %q

Answer with ONLY "GENERAL" for general knowledge (e.g. "What is machine learning?", "How does photosynthesis work?").
Answer with ONLY "DOCUMENT" if it needs a specific document (e.g. "What method did the authors use?", "How many participants were there?").

Answer:`, query)
}

func relevancePrompt(query string, retrieved []document.RetrievalResult) string {
	n := min(len(retrieved), classifierSnippets)
	snippets := make([]string, 0, n)
	for _, r := range retrieved[:n] {
		snippets = append(snippets, document.Excerpt(r.Unit.Content, classifierSnippetChars))
	}
	content := document.Excerpt(strings.Join(snippets, " "), classifierContextChars)

	return fmt.Sprintf(`Decide whether the content retrieved from a document is relevant to answering the question.

Question: %q

Retrieved content (start of the top results):
%s

Answer with ONLY "RELEVANT" if the content helps answer the question.
Answer with ONLY "NOT_RELEVANT" if it does not, meaning the question is general knowledge that does not need this document.

Answer:`, query, content)
}
