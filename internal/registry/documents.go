package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

// DocumentStore holds one record per uploaded document.
type DocumentStore struct {
	db *sql.DB
}

const documentColumns = `id, owner, filename, size_bytes, chunk_count, text_count, table_count, image_count, uploaded_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*document.Document, error) {
	var (
		doc      document.Document
		uploaded int64
	)
	if err := row.Scan(&doc.ID, &doc.Owner, &doc.Filename, &doc.SizeBytes,
		&doc.ChunkCount, &doc.TextCount, &doc.TableCount, &doc.ImageCount, &uploaded); err != nil {
		return nil, err
	}
	doc.UploadedAt = time.UnixMicro(uploaded).UTC()
	return &doc, nil
}

// Create inserts a new record.
func (s *DocumentStore) Create(ctx context.Context, doc *document.Document) error {
	owner := document.NormalizeOwner(doc.Owner)
	uploaded := doc.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, owner, doc.Filename, doc.SizeBytes,
		doc.ChunkCount, doc.TextCount, doc.TableCount, doc.ImageCount, uploaded.UnixMicro())
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// Get returns the record for (id, owner) or ErrNotFound.
func (s *DocumentStore) Get(ctx context.Context, id, owner string) (*document.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ? AND owner = ?`,
		id, document.NormalizeOwner(owner))

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// List returns the owner's documents, newest first.
func (s *DocumentStore) List(ctx context.Context, owner string) ([]document.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE owner = ? ORDER BY uploaded_at DESC, id`,
		document.NormalizeOwner(owner))
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Rename changes the display name. It reports whether a record was updated.
func (s *DocumentStore) Rename(ctx context.Context, id, owner, filename string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET filename = ? WHERE id = ? AND owner = ?`,
		filename, id, document.NormalizeOwner(owner))
	if err != nil {
		return false, fmt.Errorf("renaming document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("renaming document: %w", err)
	}
	return n > 0, nil
}

// Delete removes the record. It reports whether one existed.
func (s *DocumentStore) Delete(ctx context.Context, id, owner string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND owner = ?`,
		id, document.NormalizeOwner(owner))
	if err != nil {
		return false, fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting document: %w", err)
	}
	return n > 0, nil
}

// DocumentName returns the display name of a document, if it exists.
func (s *DocumentStore) DocumentName(ctx context.Context, id, owner string) (string, bool) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT filename FROM documents WHERE id = ? AND owner = ?`,
		id, document.NormalizeOwner(owner)).Scan(&name)
	if err != nil {
		return "", false
	}
	return name, true
}
