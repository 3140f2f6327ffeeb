package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/registry"
)

// Get returns the record of one document.
func (s *Service) Get(ctx context.Context, id, owner string) (*document.Document, error) {
	doc, err := s.docs.Get(ctx, id, owner)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, notFoundError(id)
		}
		return nil, fmt.Errorf("loading document %s: %w", id, err)
	}
	return doc, nil
}

// List returns the owner's documents, newest first.
func (s *Service) List(ctx context.Context, owner string) ([]document.Document, error) {
	docs, err := s.docs.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document. The record goes first, so the document is
// logically gone even if releasing its index or image partitions fails;
// such failures are logged as cleanup errors. It reports whether the
// document existed.
func (s *Service) Delete(ctx context.Context, id, owner string) (bool, error) {
	key := document.NewKey(id, owner)

	unlock := s.locks.Lock(key)
	defer unlock()

	ok, err := s.docs.Delete(ctx, id, owner)
	if err != nil {
		return false, fmt.Errorf("deleting record %s: %w", id, err)
	}
	if !ok {
		return false, nil
	}

	if err := s.removePartition(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Error("Document deleted but resources remain", "document_id", id, "owner", key.Owner, "error", err)
	}
	s.logger.Info("Deleted document", "document_id", id, "owner", key.Owner)
	return true, nil
}

// Rename changes the display name of an owned document. Guests cannot
// rename. It reports whether the document existed.
func (s *Service) Rename(ctx context.Context, id, name, owner string) (bool, error) {
	if document.NormalizeOwner(owner) == document.GuestOwner {
		return false, validationError("Sign in to rename documents")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, validationError("Name cannot be empty")
	}

	ok, err := s.docs.Rename(ctx, id, owner, name)
	if err != nil {
		return false, fmt.Errorf("renaming %s: %w", id, err)
	}
	return ok, nil
}
