package extract

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/heuristics"
)

const (
	minTextChars  = 20
	maxTitleChars = 100
)

// ImageSource tells where an image came from.
type ImageSource string

const (
	SourceImage        ImageSource = "image"
	SourceTableAsImage ImageSource = "table_as_image"
)

// Image is a raster element found during extraction.
type Image struct {
	ElementID    string
	Page         int
	Data         []byte
	Source       ImageSource
	NeedsCaption bool
	// Context is the text the image appeared with, if any.
	Context string
}

// Base64 returns the image encoded for a vision request.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// Extraction is the categorized output of a document. Units carry no
// DocumentID yet; the caller assigns it.
type Extraction struct {
	Texts  []document.ContentUnit
	Tables []document.ContentUnit
	Images []Image
	// TableCount is the number of tables before oversized ones were split.
	TableCount int
}

// Categorize sorts merged elements into text, table and image output.
// Texts shorter than minTextChars are dropped. Oversized tables are split into
// row-preserving sub-chunks. A table with no HTML but an image rendering is
// kept as an image to be captioned.
func Categorize(elements []Element, set *heuristics.Set, logger *slog.Logger) *Extraction {
	if logger == nil {
		logger = slog.Default()
	}
	out := &Extraction{}

	for i, el := range elements {
		id := fmt.Sprintf("elem_%d", i)

		switch el.Category {
		case CategoryTable:
			if el.HTMLTable != "" {
				out.TableCount++
				out.Tables = append(out.Tables, tableUnits(id, el)...)
				continue
			}
			if el.ImageBase64 != "" {
				if img, ok := decodeImage(id, el, SourceTableAsImage, logger); ok {
					img.NeedsCaption = true
					out.Images = append(out.Images, img)
				}
				continue
			}
			// A table with neither rendering degrades to its text.
			if unit, ok := textUnit(id, el); ok {
				out.Texts = append(out.Texts, unit)
			}

		case CategoryImage:
			if el.ImageBase64 == "" {
				continue
			}
			if img, ok := decodeImage(id, el, SourceImage, logger); ok {
				img.Context = strings.TrimSpace(el.Text)
				img.NeedsCaption = set.ShouldCaption(img.Context)
				out.Images = append(out.Images, img)
			}

		default:
			if unit, ok := textUnit(id, el); ok {
				out.Texts = append(out.Texts, unit)
			}
		}
	}
	return out
}

func textUnit(id string, el Element) (document.ContentUnit, bool) {
	text := strings.TrimSpace(el.Text)
	if len(text) < minTextChars {
		return document.ContentUnit{}, false
	}
	return document.ContentUnit{
		ElementID:      id,
		Page:           el.Page,
		Kind:           document.KindText,
		Content:        text,
		IsSectionTitle: isTitle(el.Category, text),
	}, true
}

func tableUnits(id string, el Element) []document.ContentUnit {
	if !NeedsSplit(el.HTMLTable) {
		return []document.ContentUnit{{
			ElementID: id,
			Page:      el.Page,
			Kind:      document.KindTable,
			Content:   el.HTMLTable,
		}}
	}
	parts := SplitTable(el.HTMLTable, tableChunkSize)
	units := make([]document.ContentUnit, 0, len(parts))
	for i, part := range parts {
		units = append(units, document.ContentUnit{
			ElementID: fmt.Sprintf("%s_chunk_%d", id, i),
			Page:      el.Page,
			Kind:      document.KindTable,
			Content:   part,
		})
	}
	return units
}

func decodeImage(id string, el Element, source ImageSource, logger *slog.Logger) (Image, bool) {
	data, err := base64.StdEncoding.DecodeString(el.ImageBase64)
	if err != nil {
		logger.Warn("Skipping image with invalid encoding", "element_id", id, "page", el.Page, "error", err)
		return Image{}, false
	}
	return Image{ElementID: id, Page: el.Page, Data: data, Source: source}, true
}

func isTitle(category, text string) bool {
	if category == CategoryTitle {
		return true
	}
	return len(text) < maxTitleChars && isUpper(text)
}

// isUpper reports whether text has at least one cased letter and no
// lower-case letters.
func isUpper(text string) bool {
	cased := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
