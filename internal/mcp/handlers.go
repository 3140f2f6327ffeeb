package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/pipeline"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/storage"
)

// Core is the document question-answering service behind the tools.
type Core interface {
	Upload(ctx context.Context, pdf []byte, filename, owner string) (*document.Document, error)
	Chat(ctx context.Context, req pipeline.ChatRequest) (*pipeline.ChatResponse, error)
	List(ctx context.Context, owner string) ([]document.Document, error)
	Delete(ctx context.Context, id, owner string) (bool, error)
	Rename(ctx context.Context, id, name, owner string) (bool, error)
}

// IndexStats reports vector index statistics.
type IndexStats interface {
	GetCollectionInfo(ctx context.Context) (*storage.CollectionInfo, error)
	CountUnits(ctx context.Context, key document.Key) (uint64, error)
}

// ImageCounter reports how many raw images a partition holds.
type ImageCounter interface {
	Count(ctx context.Context, key document.Key) (int, error)
}

// toolError logs the internal cause and returns only the caller-safe message.
func toolError(logger *slog.Logger, tool string, err error) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("Tool failed", "tool", tool, "error", err)
	return errors.New(pipeline.PublicMessage(err))
}

// makeUploadHandler creates the upload_pdf tool handler.
func makeUploadHandler(core Core, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, UploadPDFInput,
) (*mcp.CallToolResult, UploadPDFOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input UploadPDFInput) (
		*mcp.CallToolResult, UploadPDFOutput, error,
	) {
		pdf, err := base64.StdEncoding.DecodeString(input.ContentBase64)
		if err != nil {
			return nil, UploadPDFOutput{}, errors.New("content_base64 is not valid base64")
		}

		doc, err := core.Upload(ctx, pdf, input.Filename, input.Owner)
		if err != nil {
			return nil, UploadPDFOutput{}, toolError(logger, "upload_pdf", err)
		}
		return nil, UploadPDFOutput{Document: toInfo(*doc)}, nil
	}
}

// makeAskHandler creates the ask_documents tool handler.
func makeAskHandler(core Core, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		history := make([]document.Turn, 0, len(input.History))
		for _, t := range input.History {
			history = append(history, document.Turn{Role: document.Role(t.Role), Content: t.Content})
		}

		resp, err := core.Chat(ctx, pipeline.ChatRequest{
			Query:       input.Question,
			DocumentIDs: input.DocumentIDs,
			History:     history,
			Owner:       input.Owner,
		})
		if err != nil {
			return nil, AskOutput{}, toolError(logger, "ask_documents", err)
		}

		sources := resp.Sources
		if sources == nil {
			sources = []document.Source{} // Ensure non-nil for JSON marshaling
		}
		return nil, AskOutput{
			Response: resp.Response,
			Sources:  sources,
			Mode:     string(resp.Mode),
		}, nil
	}
}

// makeListHandler creates the list_documents tool handler.
func makeListHandler(core Core, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		docs, err := core.List(ctx, input.Owner)
		if err != nil {
			return nil, ListDocumentsOutput{}, toolError(logger, "list_documents", err)
		}

		infos := make([]DocumentInfo, 0, len(docs))
		for _, d := range docs {
			infos = append(infos, toInfo(d))
		}
		return nil, ListDocumentsOutput{Documents: infos, Count: len(infos)}, nil
	}
}

// makeDeleteHandler creates the delete_document tool handler.
func makeDeleteHandler(core Core, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, DeleteDocumentInput,
) (*mcp.CallToolResult, ChangeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DeleteDocumentInput) (
		*mcp.CallToolResult, ChangeOutput, error,
	) {
		found, err := core.Delete(ctx, input.DocumentID, input.Owner)
		if err != nil {
			return nil, ChangeOutput{}, toolError(logger, "delete_document", err)
		}
		if !found {
			return nil, ChangeOutput{Found: false, Message: "Document not found"}, nil
		}
		return nil, ChangeOutput{Found: true, Message: "Document deleted"}, nil
	}
}

// makeRenameHandler creates the rename_document tool handler.
func makeRenameHandler(core Core, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, RenameDocumentInput,
) (*mcp.CallToolResult, ChangeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RenameDocumentInput) (
		*mcp.CallToolResult, ChangeOutput, error,
	) {
		found, err := core.Rename(ctx, input.DocumentID, input.NewName, input.Owner)
		if err != nil {
			return nil, ChangeOutput{}, toolError(logger, "rename_document", err)
		}
		if !found {
			return nil, ChangeOutput{Found: false, Message: "Document not found"}, nil
		}
		return nil, ChangeOutput{Found: true, Message: "Document renamed"}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// stats and images are optional; their figures stay zero without them and
// a failing backend is logged rather than failing the tool.
func makeStatusHandler(core Core, stats IndexStats, images ImageCounter, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		docs, err := core.List(ctx, input.Owner)
		if err != nil {
			return nil, StatusOutput{}, toolError(logger, "get_index_status", err)
		}

		out := StatusOutput{Documents: len(docs)}
		for _, d := range docs {
			out.OwnerUnits += d.ChunkCount
			key := document.NewKey(d.ID, input.Owner)

			if stats != nil {
				n, err := stats.CountUnits(ctx, key)
				if err != nil {
					logger.Warn("Unit count unavailable", "document_id", d.ID, "error", err)
				} else {
					out.IndexedUnits += int64(n)
				}
			}
			if images != nil {
				n, err := images.Count(ctx, key)
				if err != nil {
					logger.Warn("Image count unavailable", "document_id", d.ID, "error", err)
				} else {
					out.StoredImages += n
				}
			}
		}

		if stats != nil {
			info, err := stats.GetCollectionInfo(ctx)
			if err != nil {
				logger.Warn("Collection info unavailable", "error", err)
			} else {
				out.TotalPoints = int64(info.PointsCount)
			}
		}
		return nil, out, nil
	}
}
