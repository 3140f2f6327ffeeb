// Package indexer bulk-imports every PDF under a repository path through the
// upload pipeline.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/github"
)

// ImportResult contains statistics about an import run.
type ImportResult struct {
	TotalDocs      int
	TotalUnits     int
	SuccessfulDocs int
	Imported       []ImportedDoc
	FailedDocs     []FailedDoc
	CommitSHA      string
	Duration       time.Duration
}

// ImportedDoc is a PDF that was registered.
type ImportedDoc struct {
	Path       string
	DocumentID string
}

// FailedDoc represents a PDF that failed to import.
type FailedDoc struct {
	Path   string
	Reason string
}

// Source lists and downloads PDFs.
type Source interface {
	GetLatestCommitSHA(ctx context.Context) (string, error)
	ListPDFs(ctx context.Context) ([]string, error)
	FetchPDF(ctx context.Context, relPath string, maxSize int64) (*github.FetchedPDF, error)
}

// Uploader registers one PDF.
type Uploader interface {
	Upload(ctx context.Context, pdf []byte, filename, owner string) (*document.Document, error)
}

// Importer feeds every PDF of a Source through an Uploader.
type Importer struct {
	source      Source
	uploader    Uploader
	owner       string
	maxFileSize int64
	// describe renders an upload failure for the report.
	describe func(error) string
	logger   *slog.Logger
}

// NewImporter creates an Importer that uploads as owner. describe turns
// upload errors into report text; nil uses err.Error().
func NewImporter(source Source, uploader Uploader, owner string, maxFileSize int64, describe func(error) string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if describe == nil {
		describe = func(err error) string { return err.Error() }
	}
	return &Importer{
		source:      source,
		uploader:    uploader,
		owner:       owner,
		maxFileSize: maxFileSize,
		describe:    describe,
		logger:      logger,
	}
}

// ImportAll uploads every PDF the source lists. A PDF that fails to download
// or upload is recorded in FailedDocs and does not stop the run.
func (im *Importer) ImportAll(ctx context.Context) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{}

	commitSHA, err := im.source.GetLatestCommitSHA(ctx)
	if err != nil {
		return nil, fmt.Errorf("get commit SHA: %w", err)
	}
	result.CommitSHA = commitSHA
	im.logger.Info("Starting import", "commit", commitSHA)

	paths, err := im.source.ListPDFs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pdfs: %w", err)
	}
	result.TotalDocs = len(paths)
	im.logger.Info("Found PDFs", "count", len(paths))

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		doc, err := im.importOne(ctx, p)
		if err != nil {
			im.logger.Warn("Failed to import PDF", "path", p, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{Path: p, Reason: im.reason(err)})
			continue
		}
		result.SuccessfulDocs++
		result.TotalUnits += doc.ChunkCount
		result.Imported = append(result.Imported, ImportedDoc{Path: p, DocumentID: doc.ID})
	}

	result.Duration = time.Since(start)
	im.logger.Info("Import complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"units", result.TotalUnits,
		"duration", result.Duration,
	)
	return result, nil
}

type uploadError struct{ err error }

func (e uploadError) Error() string { return e.err.Error() }
func (e uploadError) Unwrap() error { return e.err }

func (im *Importer) importOne(ctx context.Context, relPath string) (*document.Document, error) {
	fetched, err := im.source.FetchPDF(ctx, relPath, im.maxFileSize)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	im.logger.Debug("Fetched PDF", "path", relPath, "size", len(fetched.Data))

	doc, err := im.uploader.Upload(ctx, fetched.Data, fetched.Name, im.owner)
	if err != nil {
		return nil, uploadError{err}
	}
	im.logger.Info("Imported PDF", "path", relPath, "document_id", doc.ID, "units", doc.ChunkCount)
	return doc, nil
}

// reason keeps internal detail of upload failures out of the report.
func (im *Importer) reason(err error) string {
	var ue uploadError
	if errors.As(err, &ue) {
		return im.describe(ue.err)
	}
	return err.Error()
}
