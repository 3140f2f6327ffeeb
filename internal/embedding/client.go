package embedding

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrBackendUnavailable is returned when the embedding endpoint cannot be reached.
var ErrBackendUnavailable = errors.New("embedding backend not running")

// Config selects the embedding endpoint. Any OpenAI-compatible server works,
// including a local Ollama instance on its /v1 path.
type Config struct {
	APIKey    string
	BaseURL   string // Empty means api.openai.com
	Model     string
	Dimension int
	BatchSize int
}

// Client wraps the OpenAI client for embedding generation.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI-compatible client. An API key is required for
// the hosted API; local endpoints accept any placeholder.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if apiKey == "" {
		apiKey = "unused"
	}

	// Retries are handled by the embedder's own backoff.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	client := openai.NewClient(opts...)

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client.
func (c *Client) Client() *openai.Client {
	return c.client
}

// isConnectionError reports whether err means the endpoint never answered.
func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
