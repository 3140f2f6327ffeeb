package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions configures the HTTP transport behavior.
type HTTPHandlerOptions struct {
	// Stateless disables session management. Default: false (stateful).
	Stateless bool

	// JSONResponse answers with application/json instead of an SSE stream.
	JSONResponse bool

	// MaxBodyBytes caps request bodies. upload_pdf carries the PDF as
	// base64, so this must exceed the upload limit by at least a third.
	// Zero leaves bodies unbounded.
	MaxBodyBytes int64
}

// BodyLimitFor returns a request body cap that admits a PDF of maxFileSize
// bytes once base64-encoded and wrapped in a JSON-RPC envelope.
func BodyLimitFor(maxFileSize int64) int64 {
	return maxFileSize*4/3 + 64*1024
}

// NewHTTPHandler creates an HTTP handler for the MCP server using Streamable HTTP transport.
// The handler can be mounted on any http.ServeMux path (e.g., "/mcp").
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}

	sdkOpts := &mcp.StreamableHTTPOptions{
		Stateless:    opts.Stateless,
		JSONResponse: opts.JSONResponse,
	}

	var h http.Handler = mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, sdkOpts)

	if opts.MaxBodyBytes > 0 {
		h = http.MaxBytesHandler(h, opts.MaxBodyBytes)
	}
	return h
}
