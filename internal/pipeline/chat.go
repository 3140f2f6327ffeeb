package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/answer"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/completion"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/conversation"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/registry"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/retrieval"
)

// classifierSnippets is how many top hits the relevance check sees.
const classifierSnippets = 3

// ChatRequest is one question over a set of documents.
type ChatRequest struct {
	Query       string
	DocumentIDs []string
	History     []document.Turn
	Owner       string
}

// ChatResponse has the same shape for every answer path.
type ChatResponse struct {
	Response string            `json:"response"`
	Sources  []document.Source `json:"sources"`
	Mode     answer.Mode       `json:"mode"`
}

// Chat answers a question. Obvious general-knowledge questions skip
// retrieval entirely; otherwise the top hits decide between a general
// answer and a grounded vision or text answer.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, validationError("Message cannot be empty")
	}
	ids := dedupe(req.DocumentIDs)
	if len(ids) == 0 {
		return nil, validationError("No documents selected")
	}
	for _, id := range ids {
		if _, err := s.docs.Get(ctx, id, req.Owner); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return nil, notFoundError(id)
			}
			return nil, fmt.Errorf("loading document %s: %w", id, err)
		}
	}

	t := &tracker{logger: s.logger.With("documents", len(ids)), state: retrieval.StateReceived}
	t.to(retrieval.StateGeneralCheck)

	convo := s.convo.Build(ctx, req.History, query)

	if s.classifier.IsLikelyGeneral(query) {
		t.to(retrieval.StateGeneralAnswer)
		return s.general(ctx, t, query, convo)
	}

	t.to(retrieval.StateRetrieve)
	routed, err := s.router.Route(ctx, query, ids, req.Owner)
	if err != nil {
		return nil, dependencyError("Document retrieval failed", err)
	}

	if s.classifier.IsGeneral(ctx, query, routed.Top(classifierSnippets)) {
		t.to(retrieval.StateGeneralAnswer)
		return s.general(ctx, t, query, convo)
	}

	t.to(retrieval.StateRoute)
	if routed.UseVision {
		t.to(retrieval.StateVisionAnswer)
	} else {
		t.to(retrieval.StateTextAnswer)
	}

	ans, err := s.synth.Synthesize(ctx, query, routed, convo, ids, req.Owner)
	if err != nil {
		return nil, synthesisError(err)
	}
	t.to(retrieval.StateResponded)
	return &ChatResponse{Response: ans.Response, Sources: ans.Sources, Mode: ans.Mode}, nil
}

func (s *Service) general(ctx context.Context, t *tracker, query string, convo conversation.Context) (*ChatResponse, error) {
	ans, err := s.synth.GeneralAnswer(ctx, query, convo)
	if err != nil {
		return nil, synthesisError(err)
	}
	t.to(retrieval.StateResponded)
	return &ChatResponse{Response: ans.Response, Sources: ans.Sources, Mode: ans.Mode}, nil
}

func synthesisError(err error) error {
	if errors.Is(err, completion.ErrUnavailable) {
		return newError(ErrDependencyUnavailable, msgCompletionDown, err)
	}
	return newError(ErrSynthesis, "Failed to generate an answer. Please try again.", err)
}

// tracker logs state machine transitions of one query.
type tracker struct {
	logger *slog.Logger
	state  retrieval.State
}

func (t *tracker) to(next retrieval.State) {
	if !t.state.CanTransition(next) {
		t.logger.Warn("Unexpected query state transition", "from", t.state, "to", next)
	}
	t.logger.Debug("Query state", "from", t.state, "to", next)
	t.state = next
	if next.Terminal() {
		t.logger.Info("Query answered", "path", next)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
