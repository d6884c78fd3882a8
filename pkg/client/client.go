package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"GoToolCall/pkg/config"
	"GoToolCall/pkg/logging"
	"GoToolCall/pkg/types"
)

const maxErrorBodyBytes = 4096

// Client represents an OpenAI-compatible chat-completions client.
//
// Buffered requests are bounded by the http.Client timeout. Streaming requests
// go through a copy of that client without the overall deadline; they are
// bounded instead by an idle timeout of cfg.Timeout between received lines.
type Client struct {
	cfg          config.Config
	httpClient   *http.Client
	streamClient *http.Client
	logger       *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The configured timeout is
// not applied to a client supplied this way; the stream idle timeout still is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the server described by cfg
func NewClient(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	streaming := *c.httpClient
	streaming.Timeout = 0
	c.streamClient = &streaming
	c.logger = c.logger.With("component", "client")
	return c, nil
}

// Config returns the configuration the client was built with
func (c *Client) Config() config.Config {
	return c.cfg
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) request(messages []types.Message, tools []types.Tool, stream bool) types.ChatRequest {
	return BuildRequest(RequestParams{
		Model:       c.cfg.Model,
		Messages:    messages,
		Tools:       tools,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stream:      stream,
	})
}

// post sends payload to /chat/completions through hc and returns the response
// when the status is 2xx. Any other outcome is a *TransportError.
func (c *Client) post(ctx context.Context, hc *http.Client, payload types.ChatRequest) (*http.Response, string, error) {
	requestID := uuid.NewString()
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, requestID, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/chat/completions"), bytes.NewReader(body))
	if err != nil {
		return nil, requestID, fmt.Errorf("failed to create request: %w", err)
	}
	authorization := "Bearer " + c.cfg.APIKey
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authorization)
	req.Header.Set("X-Request-ID", requestID)
	if payload.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	c.logger.Debug("client.request",
		"request_id", requestID,
		"url", req.URL.String(),
		"authorization", logging.RedactValue(authorization),
		"stream", payload.Stream,
		"payload", string(body),
	)

	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Error("client.request_failed", "request_id", requestID, "error", err.Error())
		return nil, requestID, &TransportError{RequestID: requestID, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, requestID, c.statusError(resp, requestID)
	}
	return resp, requestID, nil
}

func (c *Client) statusError(resp *http.Response, requestID string) error {
	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	body := strings.TrimSpace(string(errorBody))
	c.logger.Error("client.request_failed",
		"request_id", requestID,
		"status", resp.StatusCode,
		"body", body,
	)
	return &TransportError{StatusCode: resp.StatusCode, Body: body, RequestID: requestID}
}
