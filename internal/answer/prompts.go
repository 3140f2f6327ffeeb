package answer

import (
	"fmt"
	"strings"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/conversation"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

// VisionQuestion is the per-image prompt sent to the vision model.
func VisionQuestion(query string) string {
	return "Answer this question about the image: " + query
}

var citationRules = []string{
	"- Cite the pages you rely on in the form [p.N] or [p.N,M], e.g. \"Revenue grew 12% [p.3].\"",
	"- Never output raw HTML, element identifiers or context labels",
	"- Focus on answering the question directly",
}

func generalPrompt(query string, convo conversation.Context) string {
	return fmt.Sprintf(`You are a helpful AI assistant. Answer the following question based on your general knowledge.
%s
QUESTION: %s

Provide a clear, accurate answer based on your knowledge:`, convo.Render(), query)
}

type insight struct {
	page     int
	analysis string
}

func visionPrompt(query string, insights []insight, tables, texts []document.ContentUnit, convo conversation.Context) string {
	lines := []string{
		"You are a helpful assistant that synthesizes information from images, tables, and text to answer questions.",
		"",
		"**Instructions:**",
		"- Provide a clear, concise answer in natural language",
		"- Treat the image analysis as the primary evidence and use tables and text to support it",
	}
	lines = append(lines, citationRules...)
	lines = append(lines, "")
	if !convo.Empty() {
		lines = append(lines, strings.TrimSpace(convo.Render()), "")
	}
	lines = append(lines, "**Question:** "+query, "")

	if len(insights) > 0 {
		lines = append(lines, "**Image Analysis:**")
		for i, in := range insights {
			lines = append(lines, fmt.Sprintf("Image %d (page %d): %s", i+1, in.page, in.analysis))
		}
		lines = append(lines, "")
	}

	if len(tables)+len(texts) > 0 {
		lines = append(lines, "**Supporting Information:**")
		for _, t := range tables {
			lines = append(lines, fmt.Sprintf("Table from page %d:", t.Page), t.Content)
		}
		for _, t := range texts {
			lines = append(lines, fmt.Sprintf("Text from page %d: %s", t.Page, t.Content))
		}
		lines = append(lines, "")
	}

	lines = append(lines,
		"**Your Answer:**",
		"(Synthesize the information above into a clear, natural answer with page citations. Do not quote raw context.)")
	return strings.Join(lines, "\n")
}

func textPrompt(query string, tables, texts []document.ContentUnit, convo conversation.Context) string {
	lines := []string{
		"You are a helpful assistant that answers questions based on provided documents.",
		"",
		"**Instructions:**",
		"- Provide a clear, concise answer in natural language",
		"- Prefer the tables for exact figures and use the text for context",
		"- If the information is insufficient, say so clearly",
	}
	lines = append(lines, citationRules...)
	lines = append(lines, "")
	if !convo.Empty() {
		lines = append(lines, strings.TrimSpace(convo.Render()), "")
	}
	lines = append(lines, "**Question:** "+query, "")

	if len(tables) > 0 {
		lines = append(lines, "**Tables:**")
		for i, t := range tables {
			lines = append(lines, fmt.Sprintf("Table %d (from page %d):", i+1, t.Page), t.Content, "")
		}
	}
	if len(texts) > 0 {
		lines = append(lines, "**Text Content:**")
		for i, t := range texts {
			lines = append(lines, fmt.Sprintf("Excerpt %d (from page %d):", i+1, t.Page), t.Content, "")
		}
	}

	lines = append(lines,
		"**Your Answer:**",
		"(Provide a natural, synthesized answer with page citations. Do not show raw HTML or quote context verbatim.)")
	return strings.Join(lines, "\n")
}
