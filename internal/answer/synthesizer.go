// Package answer turns routed retrieval results into a cited answer, either
// through the vision path (image analysis first) or the text path.
package answer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/conversation"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/retrieval"
)

// ErrSynthesis is returned when a completion call fails after the prompt
// stage has been reached.
var ErrSynthesis = errors.New("synthesis failed")

const (
	maxVisionImages = 5
	maxVisionTables = 2
	maxVisionTexts  = 3
	visionTextChars = 500
)

// Mode names the path that produced an answer.
type Mode string

const (
	ModeGeneral Mode = "general"
	ModeVision  Mode = "vision"
	ModeText    Mode = "text"
)

// Completer answers text and vision prompts.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteVision(ctx context.Context, imageB64, prompt string) (string, error)
}

// ImageSource returns the raw image behind a caption.
type ImageSource interface {
	Get(ctx context.Context, key document.Key, elementID string) ([]byte, bool, error)
}

// Answer is the uniform response of every answer path.
type Answer struct {
	Response string
	Sources  []document.Source
	Mode     Mode
}

// Synthesizer builds prompts from routed units and calls the completion service.
type Synthesizer struct {
	completer Completer
	images    ImageSource
	namer     DocumentNamer
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(completer Completer, images ImageSource, namer DocumentNamer, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{completer: completer, images: images, namer: namer, logger: logger}
}

// GeneralAnswer answers from general knowledge. Sources are always empty.
func (s *Synthesizer) GeneralAnswer(ctx context.Context, query string, convo conversation.Context) (*Answer, error) {
	resp, err := s.completer.Complete(ctx, generalPrompt(query, convo))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	return &Answer{Response: resp, Sources: []document.Source{}, Mode: ModeGeneral}, nil
}

// Synthesize answers from the routed units of documentIDs.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, routed *retrieval.Routed, convo conversation.Context, documentIDs []string, owner string) (*Answer, error) {
	var (
		resp   string
		placed []document.ContentUnit
		mode   Mode
		err    error
	)
	if routed.UseVision {
		mode = ModeVision
		resp, placed, err = s.vision(ctx, query, routed, convo, owner)
	} else {
		mode = ModeText
		resp, placed, err = s.text(ctx, query, routed, convo)
	}
	if err != nil {
		return nil, err
	}

	return &Answer{
		Response: resp,
		Sources:  BuildSources(ctx, s.namer, placed, documentIDs, owner),
		Mode:     mode,
	}, nil
}

func (s *Synthesizer) vision(ctx context.Context, query string, routed *retrieval.Routed, convo conversation.Context, owner string) (string, []document.ContentUnit, error) {
	captions := ranked(routed.Captions, maxVisionImages)

	var (
		placed   []document.ContentUnit
		insights []insight
	)
	for _, c := range captions {
		analysis, err := s.analyze(ctx, query, c, owner)
		if err != nil {
			return "", nil, err
		}
		insights = append(insights, insight{page: c.Unit.Page, analysis: analysis})
		placed = append(placed, c.Unit)
	}

	var tables, texts []document.ContentUnit
	for _, t := range ranked(routed.Tables, maxVisionTables) {
		tables = append(tables, t.Unit)
	}
	for _, t := range ranked(routed.Texts, maxVisionTexts) {
		u := t.Unit
		u.Content = document.Excerpt(u.Content, visionTextChars)
		texts = append(texts, u)
	}
	placed = append(placed, tables...)
	placed = append(placed, texts...)

	s.logger.Info("Synthesizing vision answer", "images", len(insights), "tables", len(tables), "texts", len(texts))

	resp, err := s.completer.Complete(ctx, visionPrompt(query, insights, tables, texts, convo))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	return resp, placed, nil
}

// analyze asks the vision model about the image behind a caption. When the
// image is no longer stored the caption text stands in for the analysis.
func (s *Synthesizer) analyze(ctx context.Context, query string, caption document.RetrievalResult, owner string) (string, error) {
	key := document.NewKey(caption.DocumentID, owner)

	var (
		data []byte
		ok   bool
		err  error
	)
	if s.images != nil {
		data, ok, err = s.images.Get(ctx, key, caption.Unit.ElementID)
		if err != nil {
			s.logger.Warn("Loading image failed", "document_id", caption.DocumentID, "element_id", caption.Unit.ElementID, "error", err)
		}
	}
	if !ok || len(data) == 0 {
		s.logger.Debug("Image unavailable, using caption", "document_id", caption.DocumentID, "element_id", caption.Unit.ElementID)
		return caption.Unit.Content, nil
	}

	analysis, err := s.completer.CompleteVision(ctx, base64.StdEncoding.EncodeToString(data), VisionQuestion(query))
	if err != nil {
		return "", fmt.Errorf("%w: vision analysis of %s: %w", ErrSynthesis, caption.Unit.ElementID, err)
	}
	return analysis, nil
}

func (s *Synthesizer) text(ctx context.Context, query string, routed *retrieval.Routed, convo conversation.Context) (string, []document.ContentUnit, error) {
	tables := units(routed.Tables)
	texts := units(routed.Texts)

	s.logger.Info("Synthesizing text answer", "tables", len(tables), "texts", len(texts))

	resp, err := s.completer.Complete(ctx, textPrompt(query, tables, texts, convo))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	return resp, append(tables, texts...), nil
}

// ranked returns up to n results by descending score.
func ranked(results []document.RetrievalResult, n int) []document.RetrievalResult {
	out := append([]document.RetrievalResult(nil), results...)
	retrieval.SortByScore(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func units(results []document.RetrievalResult) []document.ContentUnit {
	out := make([]document.ContentUnit, 0, len(results))
	for _, r := range results {
		out = append(out, r.Unit)
	}
	return out
}
