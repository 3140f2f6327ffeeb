// Package extract turns raw PDF bytes into typed content units. A fast
// low-fidelity scan covers the whole document; only pages that look like they
// carry tables or figures are re-processed at high fidelity.
package extract

import (
	"context"
	"errors"
)

var (
	// ErrExtraction marks failures that abort an upload.
	ErrExtraction = errors.New("extraction failed")
	// ErrBackendUnavailable marks an unreachable extraction backend.
	ErrBackendUnavailable = errors.New("extraction backend unavailable")
	// ErrUnsupportedStrategy is returned by backends asked for a strategy they do not implement.
	ErrUnsupportedStrategy = errors.New("unsupported extraction strategy")
)

// Strategy selects the fidelity of an extraction pass.
type Strategy string

const (
	StrategyFast  Strategy = "fast"
	StrategyHiRes Strategy = "hi_res"
)

// Element categories as reported by the partitioning backends.
const (
	CategoryTitle         = "Title"
	CategoryNarrativeText = "NarrativeText"
	CategoryUncategorized = "UncategorizedText"
	CategoryTable         = "Table"
	CategoryImage         = "Image"
)

// Element is one raw element produced by a backend.
type Element struct {
	Text        string
	Page        int
	Category    string
	ImageBase64 string
	HTMLTable   string
}

// Backend partitions a PDF. pages restricts the pass to the given 1-based
// pages; nil means the whole document.
type Backend interface {
	ExtractRaw(ctx context.Context, pdf []byte, strategy Strategy, pages []int) ([]Element, error)
}

// RoutingBackend sends each strategy to its own backend.
type RoutingBackend struct {
	Fast  Backend
	HiRes Backend
}

// ExtractRaw dispatches on strategy.
func (r *RoutingBackend) ExtractRaw(ctx context.Context, pdf []byte, strategy Strategy, pages []int) ([]Element, error) {
	switch strategy {
	case StrategyFast:
		if r.Fast != nil {
			return r.Fast.ExtractRaw(ctx, pdf, strategy, pages)
		}
	case StrategyHiRes:
		if r.HiRes != nil {
			return r.HiRes.ExtractRaw(ctx, pdf, strategy, pages)
		}
	}
	return nil, ErrUnsupportedStrategy
}

func pageFilter(pages []int) map[int]bool {
	if len(pages) == 0 {
		return nil
	}
	set := make(map[int]bool, len(pages))
	for _, p := range pages {
		set[p] = true
	}
	return set
}
