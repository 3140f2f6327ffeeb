package index

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

type fakeStore struct {
	mu         sync.Mutex
	units      map[document.Key][]document.ContentUnit
	deleteErrs []error
	deletes    int
	upsertHook func()
	searchHook func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{units: map[document.Key][]document.ContentUnit{}}
}

func (f *fakeStore) UpsertUnits(_ context.Context, key document.Key, units []document.ContentUnit, vectors [][]float32) error {
	if f.upsertHook != nil {
		f.upsertHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units[key] = append(f.units[key], units...)
	return nil
}

func (f *fakeStore) SearchUnits(_ context.Context, key document.Key, _ []float32, k int) ([]document.RetrievalResult, error) {
	if f.searchHook != nil {
		f.searchHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []document.RetrievalResult
	for i, u := range f.units[key] {
		if i == k {
			break
		}
		out = append(out, document.RetrievalResult{Unit: u, DocumentID: key.DocumentID, Score: 1 - float64(i)*0.1})
	}
	return out, nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, key document.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if len(f.deleteErrs) > 0 {
		err := f.deleteErrs[0]
		f.deleteErrs = f.deleteErrs[1:]
		if err != nil {
			return err
		}
	}
	delete(f.units, key)
	return nil
}

func newTestIndex(store *fakeStore) *VectorIndex {
	x := NewVectorIndex(&fakeEmbedder{}, store, nil)
	x.deleteBackoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}
	return x
}

func text(id, content string) document.ContentUnit {
	return document.ContentUnit{ElementID: id, Page: 1, Kind: document.KindText, Content: content}
}

func TestUpsertAndQuery(t *testing.T) {
	store := newFakeStore()
	x := newTestIndex(store)
	ctx := context.Background()

	require.NoError(t, x.Upsert(ctx, "doc-1", "", []document.ContentUnit{text("a", "alpha"), text("b", "beta")}))

	results, err := x.Query(ctx, "doc-1", "guest", "anything", 8)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-1", results[0].Unit.DocumentID, "document id stamped on upsert")

	results, err = x.Query(ctx, "doc-1", "alice", "anything", 8)
	require.NoError(t, err)
	assert.Empty(t, results, "owners are isolated")
}

func TestUpsert_RejectsInvalidUnits(t *testing.T) {
	x := newTestIndex(newFakeStore())
	ctx := context.Background()

	raw := document.ContentUnit{ElementID: "img", Kind: document.KindImageRaw, Content: "bytes"}
	assert.ErrorIs(t, x.Upsert(ctx, "doc", "", []document.ContentUnit{raw}), document.ErrNotIndexable)

	empty := text("e", "")
	assert.ErrorIs(t, x.Upsert(ctx, "doc", "", []document.ContentUnit{empty}), document.ErrEmptyContent)

	assert.NoError(t, x.Upsert(ctx, "doc", "", nil))
}

func TestUpsert_EmbeddingError(t *testing.T) {
	boom := errors.New("embedding backend not running")
	x := NewVectorIndex(&fakeEmbedder{err: boom}, newFakeStore(), nil)

	err := x.Upsert(context.Background(), "doc", "", []document.ContentUnit{text("a", "alpha")})
	assert.ErrorIs(t, err, boom)
}

func TestDelete_RetriesTransientFailures(t *testing.T) {
	store := newFakeStore()
	store.deleteErrs = []error{errors.New("timeout"), nil}
	x := newTestIndex(store)

	require.NoError(t, x.Upsert(context.Background(), "doc", "", []document.ContentUnit{text("a", "alpha")}))
	require.NoError(t, x.Delete(context.Background(), "doc", ""))
	assert.Equal(t, 2, store.deletes)

	results, err := x.Query(context.Background(), "doc", "", "q", 8)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDelete_ExhaustedRetries(t *testing.T) {
	store := newFakeStore()
	fail := errors.New("unreachable")
	store.deleteErrs = []error{fail, fail, fail}
	x := newTestIndex(store)

	err := x.Delete(context.Background(), "doc", "")
	assert.ErrorIs(t, err, ErrCleanup)
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, 3, store.deletes)
}

func TestUpsertAndDeleteDoNotInterleave(t *testing.T) {
	store := newFakeStore()
	x := newTestIndex(store)

	entered := make(chan struct{})
	release := make(chan struct{})
	store.upsertHook = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		done <- x.Upsert(context.Background(), "doc", "", []document.ContentUnit{text("a", "alpha")})
	}()
	<-entered

	deleted := make(chan struct{})
	go func() {
		_ = x.Delete(context.Background(), "doc", "")
		close(deleted)
	}()

	select {
	case <-deleted:
		t.Fatal("delete ran while upsert held the partition")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
	<-deleted

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.units[document.NewKey("doc", "")], "delete observed the completed upsert")
}

func TestConcurrentQueriesShareThePartition(t *testing.T) {
	store := newFakeStore()
	x := newTestIndex(store)
	require.NoError(t, x.Upsert(context.Background(), "doc", "", []document.ContentUnit{text("a", "alpha")}))

	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	store.searchHook = func() {
		entered <- struct{}{}
		<-release
	}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := x.Query(context.Background(), "doc", "", "alpha", 4)
			errs <- err
		}()
	}

	for i := 0; i < 2; i++ {
		select {
		case <-entered:
		case <-time.After(time.Second):
			close(release)
			t.Fatal("queries on one partition were serialized")
		}
	}

	deleted := make(chan struct{})
	go func() {
		_ = x.Delete(context.Background(), "doc", "")
		close(deleted)
	}()
	select {
	case <-deleted:
		t.Fatal("delete ran while queries held the partition")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	<-deleted
}
