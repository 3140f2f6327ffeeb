package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Documents().Create(context.Background(), &document.Document{ID: "a", Filename: "a.pdf"}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	doc, err := s.Documents().Get(context.Background(), "a", "")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", doc.Filename)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestDocuments_CRUD(t *testing.T) {
	s := openTestStore(t)
	docs := s.Documents()
	ctx := context.Background()

	uploaded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := &document.Document{
		ID: "doc-1", Filename: "report.pdf", SizeBytes: 2048,
		ChunkCount: 7, TextCount: 3, TableCount: 2, ImageCount: 1,
		UploadedAt: uploaded, Owner: "alice",
	}
	require.NoError(t, docs.Create(ctx, in))

	got, err := docs.Get(ctx, "doc-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = docs.Get(ctx, "doc-1", "")
	assert.ErrorIs(t, err, ErrNotFound, "guest cannot see alice's record")

	ok, err := docs.Rename(ctx, "doc-1", "alice", "annual.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = docs.Get(ctx, "doc-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "annual.pdf", got.Filename)

	ok, err = docs.Rename(ctx, "missing", "alice", "x.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = docs.Delete(ctx, "doc-1", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = docs.Delete(ctx, "doc-1", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = docs.Get(ctx, "doc-1", "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocuments_ListNewestFirstPerOwner(t *testing.T) {
	s := openTestStore(t)
	docs := s.Documents()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, docs.Create(ctx, &document.Document{
			ID: id, Filename: id + ".pdf", UploadedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, docs.Create(ctx, &document.Document{ID: "other", Filename: "o.pdf", Owner: "bob"}))

	list, err := docs.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[2].ID)
	assert.Equal(t, document.GuestOwner, list[0].Owner)

	list, err = docs.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].UploadedAt.IsZero())
}

func TestImages(t *testing.T) {
	s := openTestStore(t)
	images := s.Images()
	ctx := context.Background()

	guest := document.NewKey("doc-1", "")
	owned := document.NewKey("doc-1", "alice")

	require.NoError(t, images.PutAll(ctx, guest, map[string][]byte{
		"elem_3": []byte("png-3"),
		"elem_7": []byte("png-7"),
	}))
	require.NoError(t, images.PutAll(ctx, owned, map[string][]byte{"elem_3": []byte("alice-png")}))

	data, ok, err := images.Get(ctx, guest, "elem_3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("png-3"), data)

	data, ok, err = images.Get(ctx, owned, "elem_3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("alice-png"), data)

	_, ok, err = images.Get(ctx, guest, "elem_99")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := images.Count(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, images.DeleteAll(ctx, guest))
	n, err = images.Count(ctx, guest)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = images.Count(ctx, owned)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
