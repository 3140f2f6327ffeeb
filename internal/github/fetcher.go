package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// ErrTooLarge is returned when a file exceeds the download limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// FetchedPDF is one PDF downloaded from a repository.
type FetchedPDF struct {
	Path string // Relative to the fetcher's base path
	Name string
	Data []byte
}

// Fetcher lists and downloads PDFs below a repository directory.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
}

// NewFetcher creates a Fetcher. An empty basePath means the repository root.
func NewFetcher(client *Client, owner, repo, basePath string) *Fetcher {
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: strings.Trim(basePath, "/"),
	}
}

// ListPDFs recursively lists every .pdf file below the base path.
func (f *Fetcher) ListPDFs(ctx context.Context) ([]string, error) {
	return f.listRecursive(ctx, f.basePath, "")
}

func (f *Fetcher) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var pdfs []string

	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if strings.EqualFold(path.Ext(*item.Name), ".pdf") {
				pdfs = append(pdfs, itemRelPath)
			}

		case "dir":
			subPDFs, err := f.listRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			pdfs = append(pdfs, subPDFs...)
		}
	}

	return pdfs, nil
}

// FetchPDF downloads one PDF. Files larger than maxSize bytes are rejected
// with ErrTooLarge; maxSize <= 0 disables the limit.
func (f *Fetcher) FetchPDF(ctx context.Context, relativePath string, maxSize int64) (*FetchedPDF, error) {
	fullPath := path.Join(f.basePath, relativePath)

	rc, _, err := f.client.Repositories.DownloadContents(ctx, f.owner, f.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", fullPath, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if maxSize > 0 {
		r = io.LimitReader(rc, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fullPath, err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, fullPath)
	}

	return &FetchedPDF{
		Path: relativePath,
		Name: path.Base(relativePath),
		Data: data,
	}, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit touching the base path.
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		f.owner,
		f.repo,
		&github.CommitsListOptions{
			Path: f.basePath,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}

	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}

	return *commits[0].SHA, nil
}
