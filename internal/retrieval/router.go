// Package retrieval runs per-document nearest-neighbour queries, partitions
// the hits by kind and decides whether a query needs document grounding.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

const (
	DefaultTopK = 8

	// maxParallelQueries bounds concurrent index queries for one request.
	maxParallelQueries = 4
)

// Indexer is the read side of the semantic index.
type Indexer interface {
	Query(ctx context.Context, documentID, owner, text string, k int) ([]document.RetrievalResult, error)
}

// Routed holds one query's hits partitioned by kind, in document order.
type Routed struct {
	UseVision bool
	Texts     []document.RetrievalResult
	Tables    []document.RetrievalResult
	Captions  []document.RetrievalResult
}

// Len returns the total number of hits.
func (r *Routed) Len() int {
	return len(r.Texts) + len(r.Tables) + len(r.Captions)
}

// Top returns the n highest-scoring hits across all kinds. Ties keep
// retrieval order.
func (r *Routed) Top(n int) []document.RetrievalResult {
	all := make([]document.RetrievalResult, 0, r.Len())
	all = append(all, r.Texts...)
	all = append(all, r.Tables...)
	all = append(all, r.Captions...)
	SortByScore(all)
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// SortByScore orders results by descending score, stable on ties.
func SortByScore(results []document.RetrievalResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// Router queries every selected document and partitions the hits.
type Router struct {
	index  Indexer
	topK   int
	logger *slog.Logger
}

// NewRouter creates a Router. topK <= 0 selects DefaultTopK.
func NewRouter(index Indexer, topK int, logger *slog.Logger) *Router {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{index: index, topK: topK, logger: logger}
}

// Route retrieves the top-K units of each document independently.
// Documents that fail are logged and skipped; if every document fails the
// last error is returned. UseVision is set when any caption surfaced for
// any document.
func (r *Router) Route(ctx context.Context, query string, documentIDs []string, owner string) (*Routed, error) {
	perDoc := make([][]document.RetrievalResult, len(documentIDs))
	errs := make([]error, len(documentIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelQueries)
	for i, id := range documentIDs {
		g.Go(func() error {
			results, err := r.index.Query(gctx, id, owner, query, r.topK)
			if err != nil {
				errs[i] = err
				return nil
			}
			perDoc[i] = results
			return nil
		})
	}
	_ = g.Wait()

	routed := &Routed{}
	var lastErr error
	failed := 0
	for i, results := range perDoc {
		if errs[i] != nil {
			failed++
			lastErr = errs[i]
			r.logger.Warn("Retrieval failed for document", "document_id", documentIDs[i], "error", errs[i])
			continue
		}
		for _, res := range results {
			switch res.Unit.Kind {
			case document.KindText:
				routed.Texts = append(routed.Texts, res)
			case document.KindTable:
				routed.Tables = append(routed.Tables, res)
			case document.KindImageCaption:
				routed.Captions = append(routed.Captions, res)
			}
		}
	}
	if len(documentIDs) > 0 && failed == len(documentIDs) {
		return nil, fmt.Errorf("retrieving from %d documents: %w", failed, lastErr)
	}

	routed.UseVision = len(routed.Captions) > 0
	r.logger.Debug("Routed query",
		"documents", len(documentIDs),
		"texts", len(routed.Texts),
		"tables", len(routed.Tables),
		"captions", len(routed.Captions),
		"use_vision", routed.UseVision)
	return routed, nil
}
