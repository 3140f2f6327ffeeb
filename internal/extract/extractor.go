package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/heuristics"
)

// Extractor runs the two-pass extraction over a backend.
type Extractor struct {
	backend    Backend
	heuristics *heuristics.Holder
	logger     *slog.Logger
}

// NewExtractor creates an Extractor. A nil holder uses the default tables.
func NewExtractor(backend Backend, h *heuristics.Holder, logger *slog.Logger) *Extractor {
	if h == nil {
		h = heuristics.NewHolder(heuristics.MustDefault())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{backend: backend, heuristics: h, logger: logger}
}

// Extract partitions pdf into text, table and image output.
//
// The fast pass covers every page. When it looks unreliable or the document
// is short, the whole document is re-run at high fidelity; otherwise only the
// pages scoring at or above the threshold are. A failed high-fidelity pass
// degrades to the fast output. An extraction that yields nothing is an error.
func (e *Extractor) Extract(ctx context.Context, pdf []byte, filename string) (*Extraction, error) {
	set := e.heuristics.Get()
	log := e.logger.With("filename", filename)

	fast, err := e.backend.ExtractRaw(ctx, pdf, StrategyFast, nil)
	if err != nil {
		log.Warn("Fast extraction failed, trying high fidelity", "error", err)
		fast = nil
	}

	var merged []Element
	switch {
	case NeedsFullHiRes(fast):
		log.Info("Running high-fidelity extraction on whole document", "fast_elements", len(fast))
		hires, hiErr := e.backend.ExtractRaw(ctx, pdf, StrategyHiRes, nil)
		if hiErr != nil {
			if len(fast) == 0 {
				return nil, fmt.Errorf("%w: %s: %w", ErrExtraction, filename, hiErr)
			}
			log.Warn("High-fidelity extraction failed, keeping fast output", "error", hiErr)
			merged = fast
		} else {
			merged = hires
		}

	default:
		pages := SelectPages(fast, set)
		if len(pages) == 0 {
			merged = fast
			break
		}
		log.Info("Running high-fidelity extraction on selected pages", "pages", pages)
		hires, hiErr := e.backend.ExtractRaw(ctx, pdf, StrategyHiRes, pages)
		if hiErr != nil {
			log.Warn("High-fidelity extraction failed, keeping fast output", "pages", pages, "error", hiErr)
			merged = fast
		} else {
			merged = MergeByPage(fast, hires)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := Categorize(merged, set, e.logger)
	if len(out.Texts) == 0 && len(out.Tables) == 0 && len(out.Images) == 0 {
		return nil, fmt.Errorf("%w: %s: no extractable content", ErrExtraction, filename)
	}

	log.Info("Extraction complete",
		"texts", len(out.Texts), "tables", out.TableCount, "table_units", len(out.Tables), "images", len(out.Images))
	return out, nil
}
