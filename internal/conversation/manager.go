// Package conversation bounds the caller-supplied chat history that is fed
// into answer prompts, compressing older turns into a short summary.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

const (
	DefaultSummarizeThreshold = 8
	DefaultMaxTokens          = 4000
	DefaultWindow             = 10

	// FallbackSummary replaces the summary when the summarization call fails.
	FallbackSummary = "Previous conversation context"
)

// Completer answers a single text prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Manager trims history and summarizes the part that falls out of view.
type Manager struct {
	SummarizeThreshold int // History length that triggers summarization
	MaxTokens          int // Estimated token budget for history plus message
	Window             int // Turns kept once summarization is triggered

	completer Completer
	logger    *slog.Logger
}

// NewManager creates a Manager with the default thresholds.
func NewManager(completer Completer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		SummarizeThreshold: DefaultSummarizeThreshold,
		MaxTokens:          DefaultMaxTokens,
		Window:             DefaultWindow,
		completer:          completer,
		logger:             logger,
	}
}

// EstimateTokens approximates the token count of s as one token per four bytes.
func EstimateTokens(s string) int {
	return len(s) / 4
}

// Manage returns the history to consider and whether it must be summarized.
// History is trimmed to the last Window turns only when summarization is due.
func (m *Manager) Manage(history []document.Turn, message string) ([]document.Turn, bool) {
	if len(history) == 0 {
		return nil, false
	}

	tokens := EstimateTokens(message)
	for _, turn := range history {
		tokens += EstimateTokens(turn.Content)
	}

	needsSummary := len(history) >= m.SummarizeThreshold || tokens > m.MaxTokens
	if !needsSummary {
		return history, false
	}

	if len(history) > m.Window {
		history = history[len(history)-m.Window:]
	}
	return history, true
}

// Context is the conversation state rendered into answer prompts.
type Context struct {
	Summary string
	Recent  []document.Turn
}

// Build applies Manage and, when needed, summarizes the older half of the
// window with one completion call. The newer half stays verbatim.
func (m *Manager) Build(ctx context.Context, history []document.Turn, message string) Context {
	trimmed, needsSummary := m.Manage(history, message)

	keep := m.Window / 2
	if !needsSummary || len(trimmed) <= keep {
		return Context{Recent: trimmed}
	}

	older := trimmed[:len(trimmed)-keep]
	return Context{
		Summary: m.summarize(ctx, older),
		Recent:  trimmed[len(trimmed)-keep:],
	}
}

func (m *Manager) summarize(ctx context.Context, turns []document.Turn) string {
	if m.completer == nil {
		return FallbackSummary
	}

	summary, err := m.completer.Complete(ctx, summaryPrompt(turns))
	if err != nil {
		m.logger.Warn("Conversation summarization failed, using placeholder", "turns", len(turns), "error", err)
		return FallbackSummary
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return FallbackSummary
	}

	m.logger.Debug("Summarized conversation", "turns", len(turns), "summary_chars", len(summary))
	return summary
}

func summaryPrompt(turns []document.Turn) string {
	var b strings.Builder
	b.WriteString("Summarize the following conversation about PDF documents.\n")
	b.WriteString("Focus on key questions asked, main topics discussed, and important information extracted.\n\n")
	b.WriteString("CONVERSATION:\n")
	writeTurns(&b, turns)
	b.WriteString("\nProvide a concise summary that captures the essential context:")
	return b.String()
}

// Render produces the summary and recent-conversation prompt sections.
// It returns the empty string when there is no history.
func (c Context) Render() string {
	var b strings.Builder
	if c.Summary != "" {
		fmt.Fprintf(&b, "\n\nPREVIOUS CONVERSATION SUMMARY:\n%s\n", c.Summary)
	}
	if len(c.Recent) > 0 {
		b.WriteString("\n\nRECENT CONVERSATION:\n")
		writeTurns(&b, c.Recent)
	}
	return b.String()
}

// Empty reports whether the context carries no history.
func (c Context) Empty() bool {
	return c.Summary == "" && len(c.Recent) == 0
}

func writeTurns(b *strings.Builder, turns []document.Turn) {
	for _, turn := range turns {
		fmt.Fprintf(b, "%s: %s\n", strings.ToUpper(string(turn.Role)), turn.Content)
	}
}
