// Package chunking folds many small text units into fewer, larger chunks
// that follow section and page boundaries.
package chunking

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

const (
	DefaultCombineUnder = 2000
	DefaultNewAfter     = 6000
	DefaultMaxChars     = 10000
)

const separator = "\n\n"

// Chunker merges text units. Zero-valued thresholds take the defaults.
type Chunker struct {
	CombineUnder int // Units shorter than this always merge
	NewAfter     int // Soft limit after which a new chunk is preferred
	MaxChars     int // Hard limit on chunk length
	Logger       *slog.Logger
}

// NewChunker creates a Chunker with the default thresholds.
func NewChunker() *Chunker {
	return &Chunker{
		CombineUnder: DefaultCombineUnder,
		NewAfter:     DefaultNewAfter,
		MaxChars:     DefaultMaxChars,
	}
}

type group struct {
	units []document.ContentUnit
}

type buffer struct {
	text     strings.Builder
	page     int
	count    int
	hasTitle bool
}

func (b *buffer) len() int { return b.text.Len() }

func (b *buffer) seed(u document.ContentUnit, text string) {
	b.text.Reset()
	b.text.WriteString(text)
	b.page = u.Page
	b.count = 1
	b.hasTitle = u.IsSectionTitle
}

// Chunk groups units into sections and folds each group into chunks. Output
// chunks are text units with fresh element IDs, the page of their first
// contributing unit and the number of units merged into them.
func (c *Chunker) Chunk(units []document.ContentUnit) []document.ContentUnit {
	if len(units) == 0 {
		return nil
	}
	r := c.resolved()

	groups := groupUnits(units)

	var chunks []document.ContentUnit
	for _, g := range groups {
		chunks = append(chunks, r.foldGroup(g.units)...)
	}

	r.Logger.Debug("Chunked text units", "input", len(units), "groups", len(groups), "output", len(chunks))
	return chunks
}

// resolved returns a copy of c with defaults filled in. c itself is never
// written, so one Chunker may serve concurrent uploads.
func (c *Chunker) resolved() *Chunker {
	r := *c
	if r.CombineUnder <= 0 {
		r.CombineUnder = DefaultCombineUnder
	}
	if r.NewAfter <= 0 {
		r.NewAfter = DefaultNewAfter
	}
	if r.MaxChars <= 0 {
		r.MaxChars = DefaultMaxChars
	}
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	return &r
}

// groupUnits opens a new section at every title. Units seen before the first
// title are grouped by page. Groups keep the order of their first appearance.
func groupUnits(units []document.ContentUnit) []*group {
	var (
		groups  []*group
		byPage  = map[int]*group{}
		section *group
	)
	for _, u := range units {
		switch {
		case u.IsSectionTitle:
			section = &group{}
			groups = append(groups, section)
			section.units = append(section.units, u)
		case section != nil:
			section.units = append(section.units, u)
		default:
			g, ok := byPage[u.Page]
			if !ok {
				g = &group{}
				byPage[u.Page] = g
				groups = append(groups, g)
			}
			g.units = append(g.units, u)
		}
	}
	return groups
}

func (c *Chunker) foldGroup(units []document.ContentUnit) []document.ContentUnit {
	var (
		chunks []document.ContentUnit
		buf    buffer
	)
	flush := func() {
		if buf.len() == 0 {
			return
		}
		chunks = append(chunks, document.ContentUnit{
			ElementID:   uuid.NewString(),
			Page:        buf.page,
			Kind:        document.KindText,
			Content:     buf.text.String(),
			MergedCount: buf.count,
		})
		buf = buffer{}
	}

	for _, u := range units {
		for i, text := range hardSplit(strings.TrimSpace(u.Content), c.MaxChars) {
			piece := u
			piece.IsSectionTitle = u.IsSectionTitle && i == 0

			cur, n := buf.len(), len(text)
			switch {
			case cur == 0:
				buf.seed(piece, text)
				continue
			case piece.IsSectionTitle:
				flush()
				buf.seed(piece, text)
				continue
			case cur+n+len(separator) > c.MaxChars:
				flush()
				buf.seed(piece, text)
				continue
			}

			startNew := cur > c.NewAfter
			if n < c.CombineUnder {
				startNew = false
			}
			if buf.hasTitle && cur < c.NewAfter {
				startNew = false
			}

			if startNew {
				flush()
				buf.seed(piece, text)
				continue
			}
			buf.text.WriteString(separator)
			buf.text.WriteString(text)
			buf.count++
		}
	}
	flush()
	return chunks
}

// hardSplit breaks text longer than limit on whitespace so that no piece
// exceeds limit bytes. Text without whitespace is cut at a rune boundary.
func hardSplit(text string, limit int) []string {
	if text == "" {
		return nil
	}
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndexAny(text[:limit+1], " \t\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
