package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	logger *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Core Core
	// Stats and Images are optional and only feed get_index_status.
	Stats   IndexStats
	Images  ImageCounter
	Logger  *slog.Logger
	Version string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}

	impl := &mcp.Implementation{
		Name:    "pdfqa-server",
		Version: version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "upload_pdf",
		Description: "Upload a PDF (base64). Extracts text, tables and images, indexes them and returns the new document id.",
	}, makeUploadHandler(cfg.Core, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_documents",
		Description: "Ask a question about one or more uploaded PDFs. Returns an answer with page citations like [p.3] and the cited pages per document.",
	}, makeAskHandler(cfg.Core, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List uploaded PDFs, newest first.",
	}, makeListHandler(cfg.Core, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete an uploaded PDF together with its index and stored images.",
	}, makeDeleteHandler(cfg.Core, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rename_document",
		Description: "Change the display name of an uploaded PDF. Requires an owner.",
	}, makeRenameHandler(cfg.Core, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Report an owner's documents, indexed units and stored images, plus the total size of the index.",
	}, makeStatusHandler(cfg.Core, cfg.Stats, cfg.Images, logger))

	return &Server{server: server, logger: logger}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
