package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/keyed"
)

// ImageStore keeps raw image bytes so the vision path can fetch the original
// image behind a caption. Images are keyed by the caption's element ID.
type ImageStore struct {
	db    *sql.DB
	locks *keyed.Locker
}

// PutAll stores a set of images for one partition in a single transaction.
func (s *ImageStore) PutAll(ctx context.Context, key document.Key, images map[string][]byte) error {
	if len(images) == 0 {
		return nil
	}
	key = document.NewKey(key.DocumentID, key.Owner)

	unlock := s.locks.Lock(key)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO images (document_id, owner, element_id, data)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for elementID, data := range images {
		if _, err := stmt.ExecContext(ctx, key.DocumentID, key.Owner, elementID, data); err != nil {
			return fmt.Errorf("storing image %s: %w", elementID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing images: %w", err)
	}
	return nil
}

// Get returns the image bytes for an element. ok is false when absent.
func (s *ImageStore) Get(ctx context.Context, key document.Key, elementID string) ([]byte, bool, error) {
	key = document.NewKey(key.DocumentID, key.Owner)

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM images WHERE document_id = ? AND owner = ? AND element_id = ?`,
		key.DocumentID, key.Owner, elementID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("loading image: %w", err)
	}
	return data, true, nil
}

// DeleteAll removes every image of the partition.
func (s *ImageStore) DeleteAll(ctx context.Context, key document.Key) error {
	key = document.NewKey(key.DocumentID, key.Owner)

	unlock := s.locks.Lock(key)
	defer unlock()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM images WHERE document_id = ? AND owner = ?`,
		key.DocumentID, key.Owner); err != nil {
		return fmt.Errorf("deleting images: %w", err)
	}
	return nil
}

// Count returns the number of images stored for the partition.
func (s *ImageStore) Count(ctx context.Context, key document.Key) (int, error) {
	key = document.NewKey(key.DocumentID, key.Owner)

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM images WHERE document_id = ? AND owner = ?`,
		key.DocumentID, key.Owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting images: %w", err)
	}
	return n, nil
}
