// Package mcp exposes the PDF question-answering core as MCP tools.
package mcp

import (
	"time"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

// UploadPDFInput defines the input parameters for the upload_pdf tool.
type UploadPDFInput struct {
	// Filename is the display name; it must end in .pdf.
	Filename string `json:"filename" jsonschema:"the file name of the PDF, ending in .pdf"`
	// ContentBase64 is the PDF file, base64-encoded.
	ContentBase64 string `json:"content_base64" jsonschema:"the PDF bytes encoded as standard base64"`
	// Owner scopes the document. Empty means the shared guest space.
	Owner string `json:"owner,omitempty" jsonschema:"owner of the document; empty uploads as guest"`
}

// DocumentInfo describes one uploaded document.
type DocumentInfo struct {
	ID         string    `json:"document_id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	TextCount  int       `json:"text_count"`
	TableCount int       `json:"table_count"`
	ImageCount int       `json:"image_count"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func toInfo(d document.Document) DocumentInfo {
	return DocumentInfo{
		ID:         d.ID,
		Filename:   d.Filename,
		SizeBytes:  d.SizeBytes,
		ChunkCount: d.ChunkCount,
		TextCount:  d.TextCount,
		TableCount: d.TableCount,
		ImageCount: d.ImageCount,
		UploadedAt: d.UploadedAt,
	}
}

// UploadPDFOutput contains the registered document.
type UploadPDFOutput struct {
	Document DocumentInfo `json:"document"`
}

// Turn is one prior message of the conversation.
type Turn struct {
	Role    string `json:"role" jsonschema:"user or assistant"`
	Content string `json:"content"`
}

// AskInput defines the input parameters for the ask_documents tool.
type AskInput struct {
	// Question is the user's message.
	Question string `json:"question" jsonschema:"the question to answer"`
	// DocumentIDs selects the documents to search.
	DocumentIDs []string `json:"document_ids" jsonschema:"ids of the documents to ground the answer in"`
	// History is the prior conversation, oldest first.
	History []Turn `json:"history,omitempty" jsonschema:"prior conversation turns, oldest first"`
	Owner   string `json:"owner,omitempty" jsonschema:"owner of the documents; empty means guest"`
}

// AskOutput contains the answer and its citations.
type AskOutput struct {
	Response string            `json:"response"`
	Sources  []document.Source `json:"sources"`
	// Mode is general, vision or text.
	Mode string `json:"mode"`
}

// ListDocumentsInput defines the input parameters for the list_documents tool.
type ListDocumentsInput struct {
	Owner string `json:"owner,omitempty" jsonschema:"owner whose documents to list; empty means guest"`
}

// ListDocumentsOutput contains the owner's documents, newest first.
type ListDocumentsOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// DeleteDocumentInput defines the input parameters for the delete_document tool.
type DeleteDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"id of the document to delete"`
	Owner      string `json:"owner,omitempty" jsonschema:"owner of the document; empty means guest"`
}

// RenameDocumentInput defines the input parameters for the rename_document tool.
type RenameDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"id of the document to rename"`
	NewName    string `json:"new_name" jsonschema:"the new display name"`
	Owner      string `json:"owner" jsonschema:"owner of the document; guests cannot rename"`
}

// ChangeOutput reports whether a delete or rename found its document.
type ChangeOutput struct {
	Found   bool   `json:"found"`
	Message string `json:"message,omitempty"`
}

// StatusInput defines the input parameters for the get_index_status tool.
type StatusInput struct {
	Owner string `json:"owner,omitempty" jsonschema:"owner whose documents to count; empty means guest"`
}

// StatusOutput describes the index.
type StatusOutput struct {
	Documents int `json:"documents"`
	// OwnerUnits is what the registry recorded at upload.
	OwnerUnits int `json:"owner_units"`
	// IndexedUnits is what the vector index currently holds for the owner.
	IndexedUnits int64 `json:"indexed_units"`
	StoredImages int   `json:"stored_images"`
	TotalPoints  int64 `json:"total_points"`
}
