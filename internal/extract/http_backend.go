package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPBackend calls a document-partitioning service that speaks the
// Unstructured general API (POST /general/v0/general, multipart form).
type HTTPBackend struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPBackend creates a backend for the service at baseURL.
func NewHTTPBackend(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPBackend {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// partitionElement is one element of the service response.
type partitionElement struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Metadata struct {
		PageNumber  int    `json:"page_number"`
		TextAsHTML  string `json:"text_as_html"`
		ImageBase64 string `json:"image_base64"`
	} `json:"metadata"`
}

// ExtractRaw posts the PDF to the service with the requested strategy.
func (b *HTTPBackend) ExtractRaw(ctx context.Context, pdf []byte, strategy Strategy, pages []int) ([]Element, error) {
	body, contentType, err := b.form(pdf, strategy, pages)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/general/v0/general", body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrBackendUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("partition service returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var raw []partitionElement
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	// The service may ignore the pages field.
	want := pageFilter(pages)
	elements := make([]Element, 0, len(raw))
	for _, r := range raw {
		if want != nil && !want[r.Metadata.PageNumber] {
			continue
		}
		elements = append(elements, Element{
			Text:        r.Text,
			Page:        r.Metadata.PageNumber,
			Category:    r.Type,
			ImageBase64: r.Metadata.ImageBase64,
			HTMLTable:   r.Metadata.TextAsHTML,
		})
	}

	b.logger.Debug("Partitioned document", "strategy", strategy, "elements", len(elements))
	return elements, nil
}

// form builds the multipart request. pages, when set, is sent as a
// comma-separated list of 1-based page numbers.
func (b *HTTPBackend) form(pdf []byte, strategy Strategy, pages []int) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("files", "document.pdf")
	if err != nil {
		return nil, "", fmt.Errorf("creating form: %w", err)
	}
	if _, err := part.Write(pdf); err != nil {
		return nil, "", fmt.Errorf("writing form: %w", err)
	}

	fields := map[string]string{
		"strategy":                  string(strategy),
		"pdf_infer_table_structure": strconv.FormatBool(strategy == StrategyHiRes),
		"extract_image_block_types": `["Image","Table"]`,
	}
	if len(pages) > 0 {
		list := make([]string, len(pages))
		for i, p := range pages {
			list[i] = strconv.Itoa(p)
		}
		fields["pages"] = strings.Join(list, ",")
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Healthy reports whether the partition service answers its health check.
func (b *HTTPBackend) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/healthcheck", nil)
	if err != nil {
		return false
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
