package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFBackend is an in-process fast backend built on the text layer of the
// PDF. It recovers paragraphs only; tables and images need the hi-res backend.
type PDFBackend struct {
	logger *slog.Logger
}

// NewPDFBackend creates a PDFBackend.
func NewPDFBackend(logger *slog.Logger) *PDFBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFBackend{logger: logger}
}

// ExtractRaw returns one element per paragraph of each page's text layer.
func (b *PDFBackend) ExtractRaw(ctx context.Context, data []byte, strategy Strategy, pages []int) (elements []Element, err error) {
	if strategy != StrategyFast {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStrategy, strategy)
	}

	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			elements = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	want := pageFilter(pages)
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if want != nil && !want[i] {
			continue
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			b.logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}

		for _, para := range paragraphs(text) {
			category := CategoryNarrativeText
			if !strings.Contains(para, "\n") && len(para) < maxTitleChars && isUpper(para) {
				category = CategoryTitle
			}
			elements = append(elements, Element{Text: para, Page: i, Category: category})
		}
	}

	return elements, nil
}

// paragraphs splits page text on blank lines.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}
