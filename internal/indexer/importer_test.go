package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/github"
)

type fakeSource struct {
	sha     string
	paths   []string
	files   map[string][]byte
	listErr error
}

func (f *fakeSource) GetLatestCommitSHA(ctx context.Context) (string, error) { return f.sha, nil }
func (f *fakeSource) ListPDFs(ctx context.Context) ([]string, error) { return f.paths, f.listErr }

func (f *fakeSource) FetchPDF(ctx context.Context, relPath string, maxSize int64) (*github.FetchedPDF, error) {
	data, ok := f.files[relPath]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	if int64(len(data)) > maxSize {
		return nil, github.ErrTooLarge
	}
	return &github.FetchedPDF{Path: relPath, Name: relPath, Data: data}, nil
}

type fakeUploader struct {
	owners []string
	fail   map[string]error
}

func (f *fakeUploader) Upload(ctx context.Context, pdf []byte, filename, owner string) (*document.Document, error) {
	if err := f.fail[filename]; err != nil {
		return nil, err
	}
	f.owners = append(f.owners, owner)
	return &document.Document{ID: "id-" + filename, Filename: filename, ChunkCount: len(pdf)}, nil
}

func TestImportAll(t *testing.T) {
	src := &fakeSource{
		sha:   "abc123",
		paths: []string{"a.pdf", "big.pdf", "bad.pdf", "gone.pdf", "b.pdf"},
		files: map[string][]byte{
			"a.pdf":   []byte("aaaa"),
			"big.pdf": make([]byte, 100),
			"bad.pdf": []byte("xx"),
			"b.pdf":   []byte("bb"),
		},
	}
	up := &fakeUploader{fail: map[string]error{"bad.pdf": fmt.Errorf("extract: parser exploded at 0xdead")}}
	describe := func(error) string { return "Could not extract content from the PDF." }

	result, err := NewImporter(src, up, "alice", 10, describe, nil).ImportAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "abc123", result.CommitSHA)
	assert.Equal(t, 5, result.TotalDocs)
	assert.Equal(t, 2, result.SuccessfulDocs)
	assert.Equal(t, 6, result.TotalUnits)
	assert.Equal(t, []ImportedDoc{{Path: "a.pdf", DocumentID: "id-a.pdf"}, {Path: "b.pdf", DocumentID: "id-b.pdf"}}, result.Imported)
	assert.Equal(t, []string{"alice", "alice"}, up.owners)

	require.Len(t, result.FailedDocs, 3)
	assert.Equal(t, "big.pdf", result.FailedDocs[0].Path)
	assert.Contains(t, result.FailedDocs[0].Reason, "file exceeds size limit")
	assert.Equal(t, FailedDoc{Path: "bad.pdf", Reason: "Could not extract content from the PDF."}, result.FailedDocs[1])
	assert.Contains(t, result.FailedDocs[2].Reason, "404")
}

func TestImportAll_ListFailure(t *testing.T) {
	src := &fakeSource{listErr: errors.New("rate limited")}
	_, err := NewImporter(src, &fakeUploader{}, "", 10, nil, nil).ImportAll(context.Background())
	assert.ErrorContains(t, err, "list pdfs")
}

func TestImportAll_StopsOnCancel(t *testing.T) {
	src := &fakeSource{paths: []string{"a.pdf"}, files: map[string][]byte{"a.pdf": []byte("a")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewImporter(src, &fakeUploader{}, "", 10, nil, nil).ImportAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.SuccessfulDocs)
}
