package mcp

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>PDF Q&amp;A MCP Server</title>
<style>
  body { margin: 0; font: 16px/1.5 system-ui, sans-serif; background: #f7f7f5; color: #1f2933; }
  main { max-width: 640px; margin: 4rem auto; padding: 0 1.25rem; }
  h1 { font-size: 1.6rem; margin: 0 0 0.25rem; }
  .subtitle { color: #52606d; margin: 0 0 2rem; }
  h2 { font-size: 0.8rem; text-transform: uppercase; letter-spacing: 0.08em; color: #7b8794; margin: 1.75rem 0 0.5rem; }
  pre { background: #fff; border: 1px solid #e4e7eb; border-radius: 6px; padding: 0.75rem 1rem; font-size: 0.85rem; overflow-x: auto; }
  ul { padding-left: 1.1rem; margin: 0; }
  a { color: #0b69a3; }
  code { font-family: ui-monospace, Menlo, monospace; }
</style>
</head>
<body>
<main>
  <h1>PDF Q&amp;A MCP Server</h1>
  <p class="subtitle">Ask questions about your PDFs, including their tables and charts, over the Model Context Protocol. Answers cite the pages they rely on.</p>

  <h2>Tools</h2>
  <pre><code>upload_pdf        ask_documents     list_documents
delete_document   rename_document   get_index_status</code></pre>

  <h2>Endpoints</h2>
  <ul>
    <li><a href="/mcp"><code>/mcp</code></a>: MCP Streamable HTTP</li>
    <li><a href="/health"><code>/health</code></a>: Qdrant and registry health</li>
  </ul>

  <h2>Source</h2>
  <p><a href="https://github.com/mike-a-ellis/pdfqa-mcp">github.com/mike-a-ellis/pdfqa-mcp</a></p>
</main>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
