// Package index is the semantic index over content units, partitioned by
// (document, owner).
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/keyed"
)

// ErrCleanup is returned when a partition could not be removed after retries.
var ErrCleanup = errors.New("index cleanup failed")

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store persists vectors by partition.
type Store interface {
	UpsertUnits(ctx context.Context, key document.Key, units []document.ContentUnit, vectors [][]float32) error
	SearchUnits(ctx context.Context, key document.Key, vector []float32, k int) ([]document.RetrievalResult, error)
	DeleteDocument(ctx context.Context, key document.Key) error
}

// VectorIndex embeds units and stores them. Operations on the same partition
// are serialized.
type VectorIndex struct {
	embedder Embedder
	store    Store
	locks    *keyed.Locker
	logger   *slog.Logger

	deleteBackoff func() backoff.BackOff
}

// NewVectorIndex creates a VectorIndex.
func NewVectorIndex(embedder Embedder, store Store, logger *slog.Logger) *VectorIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorIndex{
		embedder: embedder,
		store:    store,
		locks:    keyed.NewLocker(),
		logger:   logger,
		deleteBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

// Upsert embeds and stores units in the partition of (documentID, owner).
// Only indexable units with content are accepted.
func (x *VectorIndex) Upsert(ctx context.Context, documentID, owner string, units []document.ContentUnit) error {
	if len(units) == 0 {
		return nil
	}
	key := document.NewKey(documentID, owner)

	texts := make([]string, len(units))
	prepared := make([]document.ContentUnit, len(units))
	for i, u := range units {
		if err := u.Validate(); err != nil {
			return err
		}
		u.DocumentID = documentID
		prepared[i] = u
		texts[i] = u.Content
	}

	unlock := x.locks.Lock(key)
	defer unlock()

	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed units: %w", err)
	}
	if err := x.store.UpsertUnits(ctx, key, prepared, vectors); err != nil {
		return fmt.Errorf("store units: %w", err)
	}

	x.logger.Debug("Indexed units", "document_id", documentID, "owner", key.Owner, "count", len(units))
	return nil
}

// Query returns the k units of the partition nearest to text.
func (x *VectorIndex) Query(ctx context.Context, documentID, owner, text string, k int) ([]document.RetrievalResult, error) {
	key := document.NewKey(documentID, owner)

	vector, err := x.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	unlock := x.locks.RLock(key)
	defer unlock()

	results, err := x.store.SearchUnits(ctx, key, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search units: %w", err)
	}
	return results, nil
}

// Delete removes the partition, retrying transient failures with backoff.
// Exhausted retries are reported as ErrCleanup.
func (x *VectorIndex) Delete(ctx context.Context, documentID, owner string) error {
	key := document.NewKey(documentID, owner)

	unlock := x.locks.Lock(key)
	defer unlock()

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := x.store.DeleteDocument(ctx, key)
		if err != nil {
			x.logger.Warn("Index delete failed", "document_id", documentID, "owner", key.Owner, "attempt", attempt, "error", err)
		}
		return err
	}, backoff.WithContext(x.deleteBackoff(), ctx))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCleanup, key, err)
	}
	return nil
}
