package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/completion"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/embedding"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/extract"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/storage"
)

// Upload extracts, indexes and registers a PDF. It is all-or-nothing: when
// any step after extraction fails, the partial index and image partitions
// are removed and no record is created.
func (s *Service) Upload(ctx context.Context, pdf []byte, filename, owner string) (*document.Document, error) {
	if err := s.validateUpload(pdf, filename); err != nil {
		return nil, err
	}

	doc := &document.Document{
		ID:        uuid.NewString(),
		Filename:  filename,
		SizeBytes: int64(len(pdf)),
		Owner:     document.NormalizeOwner(owner),
	}
	key := document.NewKey(doc.ID, doc.Owner)

	unlock := s.locks.Lock(key)
	defer unlock()

	logger := s.logger.With("document_id", doc.ID, "filename", filename)
	logger.Info("Processing upload", "size_bytes", doc.SizeBytes)

	ext, err := s.extractor.Extract(ctx, pdf, filename)
	if err != nil {
		if errors.Is(err, extract.ErrBackendUnavailable) {
			return nil, newError(ErrDependencyUnavailable, msgExtractorDown, err)
		}
		if ctx.Err() != nil {
			return nil, newError(ErrExtraction, "Upload was cancelled", err)
		}
		return nil, newError(ErrExtraction, "Could not extract content from the PDF", err)
	}

	texts := s.chunker.Chunk(ext.Texts)

	images := make(map[string][]byte)
	var captions []document.ContentUnit
	fallbacks := 0
	for _, res := range s.captioner.Caption(ctx, ext.Images) {
		captions = append(captions, res.Unit)
		if res.Fallback {
			fallbacks++
		}
	}
	for _, img := range ext.Images {
		if img.NeedsCaption {
			images[img.ElementID] = img.Data
		}
	}

	units := make([]document.ContentUnit, 0, len(texts)+len(ext.Tables)+len(captions))
	units = append(units, texts...)
	units = append(units, ext.Tables...)
	units = append(units, captions...)
	for i := range units {
		units[i].DocumentID = doc.ID
	}
	if len(units) == 0 {
		return nil, newError(ErrExtraction, "The PDF contains no indexable content", nil)
	}

	logger.Info("Extracted document",
		"texts", len(ext.Texts),
		"chunks", len(texts),
		"tables", ext.TableCount,
		"table_units", len(ext.Tables),
		"images", len(ext.Images),
		"captions", len(captions),
		"caption_fallbacks", fallbacks)

	if err := s.images.PutAll(ctx, key, images); err != nil {
		s.abortUpload(ctx, key)
		return nil, newError(ErrDependencyUnavailable, msgRegistryDown, fmt.Errorf("storing images: %w", err))
	}

	if err := s.index.Upsert(ctx, doc.ID, doc.Owner, units); err != nil {
		s.abortUpload(ctx, key)
		return nil, dependencyError("Indexing failed", err)
	}

	doc.ChunkCount = len(units)
	doc.TextCount = len(texts)
	doc.TableCount = ext.TableCount
	doc.ImageCount = len(ext.Images)
	doc.UploadedAt = s.now().UTC()

	if err := s.docs.Create(ctx, doc); err != nil {
		s.abortUpload(ctx, key)
		return nil, newError(ErrDependencyUnavailable, msgRegistryDown, fmt.Errorf("registering document: %w", err))
	}

	logger.Info("Upload complete", "chunk_count", doc.ChunkCount)
	return doc, nil
}

func (s *Service) validateUpload(pdf []byte, filename string) error {
	if len(pdf) == 0 {
		return validationError("File is empty")
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return validationError("Only PDF files are allowed")
	}
	if int64(len(pdf)) > s.maxFileSize {
		return validationError("File too large. Maximum size is %dMB", s.maxFileSize/(1024*1024))
	}
	return nil
}

// abortUpload removes everything a failed upload may have written. It runs
// on a context detached from cancellation so a timed-out request still
// cleans up.
func (s *Service) abortUpload(ctx context.Context, key document.Key) {
	if err := s.removePartition(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Error("Cleanup after failed upload incomplete", "document_id", key.DocumentID, "owner", key.Owner, "error", err)
	}
}

// dependencyError classifies failures of the index and completion backends.
func dependencyError(message string, err error) error {
	switch {
	case errors.Is(err, embedding.ErrBackendUnavailable):
		return newError(ErrDependencyUnavailable, msgEmbeddingDown, err)
	case errors.Is(err, storage.ErrQdrantUnreachable):
		return newError(ErrDependencyUnavailable, msgIndexDown, err)
	case errors.Is(err, completion.ErrUnavailable):
		return newError(ErrDependencyUnavailable, msgCompletionDown, err)
	}
	return newError(ErrDependencyUnavailable, message, err)
}
