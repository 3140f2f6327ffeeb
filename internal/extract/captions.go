package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

// CaptionPrompt is the instruction sent with every image at upload time.
const CaptionPrompt = "Describe this image in detail, focusing on data, trends, and key insights."

// VisionCompleter answers a prompt about one base64-encoded image.
type VisionCompleter interface {
	CompleteVision(ctx context.Context, imageB64, prompt string) (string, error)
}

// CaptionResult is the outcome of captioning one image. Fallback is set when
// the vision call failed and Unit carries a placeholder description.
type CaptionResult struct {
	Unit     document.ContentUnit
	Fallback bool
	Err      error
}

// Captioner turns images into indexable caption units.
type Captioner struct {
	vision VisionCompleter
	logger *slog.Logger
}

// NewCaptioner creates a Captioner backed by the given vision model.
func NewCaptioner(vision VisionCompleter, logger *slog.Logger) *Captioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Captioner{vision: vision, logger: logger}
}

// Caption produces one image_caption unit per image marked NeedsCaption,
// sharing the image's element ID. A failed vision call never aborts the batch;
// the image gets a placeholder caption instead.
func (c *Captioner) Caption(ctx context.Context, images []Image) []CaptionResult {
	var results []CaptionResult
	for _, img := range images {
		if !img.NeedsCaption {
			continue
		}

		unit := document.ContentUnit{
			ElementID: img.ElementID,
			Page:      img.Page,
			Kind:      document.KindImageCaption,
		}

		text, err := c.vision.CompleteVision(ctx, img.Base64(), CaptionPrompt)
		text = strings.TrimSpace(text)
		if err == nil && text == "" {
			err = errors.New("empty caption")
		}
		if err != nil {
			c.logger.Warn("Caption failed, using placeholder",
				"element_id", img.ElementID, "page", img.Page, "error", err)
			unit.Content = fmt.Sprintf("Image (type: %s, page: %d)", img.Source, img.Page)
			results = append(results, CaptionResult{Unit: unit, Fallback: true, Err: err})
			continue
		}

		unit.Content = "Image caption: " + text
		results = append(results, CaptionResult{Unit: unit})
	}
	return results
}
