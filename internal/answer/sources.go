package answer

import (
	"context"
	"slices"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

// DocumentNamer resolves display names for citations.
type DocumentNamer interface {
	DocumentName(ctx context.Context, documentID, owner string) (string, bool)
}

// BuildSources groups the units placed into a prompt by document. Pages are
// ascending and unique, page 0 is dropped. When no unit carries a page every
// queried document is listed with empty pages and kinds.
func BuildSources(ctx context.Context, namer DocumentNamer, placed []document.ContentUnit, documentIDs []string, owner string) []document.Source {
	type agg struct {
		pages []int
		kinds []document.Kind
	}
	byDoc := map[string]*agg{}
	var order []string

	for _, u := range placed {
		if u.Page <= 0 {
			continue
		}
		a, ok := byDoc[u.DocumentID]
		if !ok {
			a = &agg{}
			byDoc[u.DocumentID] = a
			order = append(order, u.DocumentID)
		}
		a.pages = append(a.pages, u.Page)
		a.kinds = append(a.kinds, u.Kind)
	}

	if len(order) == 0 {
		sources := make([]document.Source, 0, len(documentIDs))
		for _, id := range documentIDs {
			sources = append(sources, document.Source{
				DocumentID:   id,
				DocumentName: name(ctx, namer, id, owner),
				Pages:        []int{},
				Kinds:        []document.Kind{},
			})
		}
		return sources
	}

	// Queried documents first, in request order.
	rank := make(map[string]int, len(documentIDs))
	for i, id := range documentIDs {
		rank[id] = i
	}
	slices.SortStableFunc(order, func(a, b string) int {
		ra, okA := rank[a]
		rb, okB := rank[b]
		switch {
		case okA && okB:
			return ra - rb
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})

	sources := make([]document.Source, 0, len(order))
	for _, id := range order {
		a := byDoc[id]
		slices.Sort(a.pages)
		slices.Sort(a.kinds)
		sources = append(sources, document.Source{
			DocumentID:   id,
			DocumentName: name(ctx, namer, id, owner),
			Pages:        slices.Compact(a.pages),
			Kinds:        slices.Compact(a.kinds),
		})
	}
	return sources
}

func name(ctx context.Context, namer DocumentNamer, id, owner string) string {
	if namer == nil {
		return id
	}
	if n, ok := namer.DocumentName(ctx, id, owner); ok {
		return n
	}
	return id
}
