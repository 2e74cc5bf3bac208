// Package llm provides the Ollama inference client and prompt construction
// for contract generation and analysis.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/contratai/contratai/config"
)

// maxResponseSize limits the inference response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client issues synchronous generate calls against an Ollama-compatible
// backend. It holds no mutable state across calls beyond its configured
// transport.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates an inference client from the Ollama configuration.
// The read timeout bounds the whole exchange and dominates in practice,
// since inference latency scales with prompt and response size.
func NewClient(cfg config.OllamaConfig, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cfg.ConnectTimeout,
				}).DialContext,
			},
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the Ollama /api/generate response envelope.
// Response and Error are pointers/raw so presence can be distinguished
// from emptiness.
type generateResponse struct {
	Response *string         `json:"response"`
	Error    json.RawMessage `json:"error"`
}

// Infer sends a single generate request and returns the model output.
// Failures are classified per the llm error kinds; no automatic retry.
func (c *Client) Infer(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	url := c.baseURL + "/api/generate"
	c.logger.Debug("Sending inference request",
		"model", c.model,
		"url", url,
		"prompt_chars", len(prompt))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: read response body: %v", ErrUnavailable, err)
	}

	// Status is checked before the body shape.
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", &RequestFailedError{
			StatusCode: httpResp.StatusCode,
			Body:       truncateForLog(string(respBody)),
		}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.logger.Error("Inference response is not valid JSON", "body", truncateForLog(string(respBody)))
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch {
	case parsed.Response != nil:
		c.logger.Debug("Inference completed",
			"model", c.model,
			"response_chars", len(*parsed.Response),
			"duration_ms", time.Since(start).Milliseconds())
		return *parsed.Response, nil
	case len(parsed.Error) > 0 && string(parsed.Error) != "null":
		detail := strings.Trim(string(parsed.Error), `"`)
		c.logger.Error("Inference backend reported error", "detail", detail)
		return "", &ReportedError{Detail: detail}
	default:
		c.logger.Error("Inference response missing both response and error fields",
			"body", truncateForLog(string(respBody)))
		return "", ErrUnexpectedShape
	}
}

// truncateForLog caps bodies included in errors and log records.
func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
