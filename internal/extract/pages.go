package extract

import (
	"sort"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/heuristics"
)

const (
	// fallbackMinElements and fallbackMaxPages trigger whole-document hi-res
	// processing when the fast scan looks unreliable or the document is short.
	fallbackMinElements = 10
	fallbackMaxPages    = 5
)

// PageScores returns the visual-complexity score of every page seen in the
// fast scan. A page scores as high as its most visual element.
func PageScores(elements []Element, set *heuristics.Set) map[int]float64 {
	scores := make(map[int]float64)
	for _, el := range elements {
		if el.Text == "" {
			continue
		}
		score := set.VisualScore(el.Text)
		if cur, ok := scores[el.Page]; !ok || score > cur {
			scores[el.Page] = score
		}
	}
	return scores
}

// SelectPages returns, in ascending order, the pages whose score reaches the
// configured threshold.
func SelectPages(elements []Element, set *heuristics.Set) []int {
	var pages []int
	for page, score := range PageScores(elements, set) {
		if score >= set.PageThreshold() {
			pages = append(pages, page)
		}
	}
	sort.Ints(pages)
	return pages
}

// NeedsFullHiRes reports whether the whole document should go through the
// high-fidelity pass instead of selected pages.
func NeedsFullHiRes(fast []Element) bool {
	if len(fast) < fallbackMinElements {
		return true
	}
	pages := make(map[int]struct{})
	for _, el := range fast {
		pages[el.Page] = struct{}{}
	}
	return len(pages) <= fallbackMaxPages
}

// MergeByPage combines both passes page by page. Any page present in hires is
// taken entirely from hires; every other page keeps its fast elements. The
// result is ordered by page, preserving element order within a page.
func MergeByPage(fast, hires []Element) []Element {
	byPage := make(map[int][]Element)
	for _, el := range hires {
		byPage[el.Page] = append(byPage[el.Page], el)
	}

	fastByPage := make(map[int][]Element)
	for _, el := range fast {
		if _, covered := byPage[el.Page]; covered {
			continue
		}
		fastByPage[el.Page] = append(fastByPage[el.Page], el)
	}
	for page, els := range fastByPage {
		byPage[page] = els
	}

	pages := make([]int, 0, len(byPage))
	for page := range byPage {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	merged := make([]Element, 0, len(fast)+len(hires))
	for _, page := range pages {
		merged = append(merged, byPage[page]...)
	}
	return merged
}
