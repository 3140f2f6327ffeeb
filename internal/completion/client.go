// Package completion wraps chat completions for text and vision prompts
// against any OpenAI-compatible endpoint.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned when the completion endpoint cannot be reached.
var ErrUnavailable = errors.New("completion service unavailable")

const (
	DefaultModel           = "gpt-4o-mini"
	DefaultTemperature     = 0.1
	DefaultVisionMaxTokens = 512
)

// Config selects the completion endpoint and models.
type Config struct {
	APIKey      string
	BaseURL     string // Empty means api.openai.com
	Model       string
	VisionModel string  // Defaults to Model
	RPS         float64 // Requests per second, 0 disables throttling
}

// Client issues text and vision completions. Requests are throttled and
// retried with exponential backoff on rate limit errors (HTTP 429).
type Client struct {
	client      *openai.Client
	model       string
	visionModel string
	limiter     *rate.Limiter
	logger      *slog.Logger

	newBackoff func() backoff.BackOff
}

// NewClient creates a completion client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "unused"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	client := openai.NewClient(opts...)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	return &Client{
		client:      &client,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		limiter:     limiter,
		logger:      logger,
		newBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}, nil
}

// Complete answers a single-turn text prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(DefaultTemperature),
	})
}

// CompleteVision answers a prompt about one base64-encoded image.
func (c *Client) CompleteVision(ctx context.Context, imageB64, prompt string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: "data:image/jpeg;base64," + imageB64,
				}),
			}),
		},
		Model:       openai.ChatModel(c.visionModel),
		Temperature: openai.Float(DefaultTemperature),
		MaxTokens:   openai.Int(DefaultVisionMaxTokens),
	})
}

func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	var content string

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			if isRateLimitError(err) {
				c.logger.Warn("Completion rate limited, backing off", "model", params.Model)
				return err
			}
			if isConnectionError(err) {
				return backoff.Permanent(fmt.Errorf("%w: %w", ErrUnavailable, err))
			}
			return backoff.Permanent(fmt.Errorf("chat completion failed: %w", err))
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("chat completion returned no choices"))
		}

		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackoff(), ctx)); err != nil {
		return "", err
	}
	return content, nil
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
