package storage

import (
	"github.com/google/uuid"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

// CollectionName is the single Qdrant collection holding every partition.
// Partitions are separated by the document_id and owner payload fields.
const CollectionName = "pdf_units"

// VectorName is the named vector every point carries.
const VectorName = "content"

// DefaultVectorDimension is the embedding size for text-embedding-3-small.
const DefaultVectorDimension = 1536

// Payload field names.
const (
	fieldDocumentID   = "document_id"
	fieldOwner        = "owner"
	fieldKind         = "kind"
	fieldElementID    = "element_id"
	fieldPage         = "page"
	fieldContent      = "content"
	fieldSectionTitle = "is_section_title"
	fieldMergedCount  = "merged_count"
)

// pointNamespace seeds the deterministic point IDs.
var pointNamespace = uuid.MustParse("6f1d2c0e-3b7a-5e43-9a61-0c8f2b4d7e15")

// PointID derives the Qdrant point ID of a unit. Re-indexing the same element
// in the same partition overwrites rather than duplicates it.
func PointID(key document.Key, elementID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(key.String()+"/"+elementID)).String()
}
