//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

const testDimension = 8

// setupTestStorage creates a test storage instance and ensures collection exists.
// Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) *QdrantStorage {
	storage, err := NewQdrantStorage("localhost", 6334, testDimension, nil)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	err = storage.EnsureCollection(context.Background())
	require.NoError(t, err, "Failed to ensure collection")

	t.Cleanup(func() { storage.Close() })
	return storage
}

func vec(seed float32) []float32 {
	v := make([]float32, testDimension)
	for i := range v {
		v[i] = seed + float32(i)*0.01
	}
	return v
}

func testUnits(n int) ([]document.ContentUnit, [][]float32) {
	units := make([]document.ContentUnit, n)
	vectors := make([][]float32, n)
	for i := range units {
		units[i] = document.ContentUnit{
			ElementID: fmt.Sprintf("elem_%d", i),
			Page:      i + 1,
			Kind:      document.KindText,
			Content:   fmt.Sprintf("content %d", i),
		}
		vectors[i] = vec(float32(i + 1))
	}
	return units, vectors
}

func TestUnitSearchRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	key := document.NewKey(uuid.NewString(), "alice")
	units, vectors := testUnits(3)
	units[1].Kind = document.KindTable
	units[1].IsSectionTitle = true
	require.NoError(t, storage.UpsertUnits(ctx, key, units, vectors))
	t.Cleanup(func() { storage.DeleteDocument(context.Background(), key) })

	results, err := storage.SearchUnits(ctx, key, vectors[1], 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "elem_1", top.Unit.ElementID)
	assert.Equal(t, document.KindTable, top.Unit.Kind)
	assert.Equal(t, 2, top.Unit.Page)
	assert.True(t, top.Unit.IsSectionTitle)
	assert.Equal(t, key.DocumentID, top.DocumentID)
}

func TestPartitionsAreIsolated(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	id := uuid.NewString()
	guest := document.NewKey(id, "")
	owned := document.NewKey(id, "bob")

	units, vectors := testUnits(2)
	require.NoError(t, storage.UpsertUnits(ctx, guest, units, vectors))
	require.NoError(t, storage.UpsertUnits(ctx, owned, units[:1], vectors[:1]))

	n, err := storage.CountUnits(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	require.NoError(t, storage.DeleteDocument(ctx, guest))

	n, err = storage.CountUnits(ctx, guest)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = storage.CountUnits(ctx, owned)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "other owner's partition survives")

	require.NoError(t, storage.DeleteDocument(ctx, owned))
}

func TestUpsertIsIdempotent(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	key := document.NewKey(uuid.NewString(), "carol")
	units, vectors := testUnits(150)
	require.NoError(t, storage.UpsertUnits(ctx, key, units, vectors))
	require.NoError(t, storage.UpsertUnits(ctx, key, units, vectors))
	t.Cleanup(func() { storage.DeleteDocument(context.Background(), key) })

	n, err := storage.CountUnits(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), n)
}

func TestDimensionValidation(t *testing.T) {
	storage := setupTestStorage(t)
	key := document.NewKey(uuid.NewString(), "dave")

	units, _ := testUnits(1)
	err := storage.UpsertUnits(context.Background(), key, units, [][]float32{{1, 2}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = storage.SearchUnits(context.Background(), key, []float32{1}, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
