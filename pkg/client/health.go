package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// HealthURL is the server health endpoint: the base URL with a trailing /v1
// removed, plus /health.
func (c *Client) HealthURL() string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	base = strings.TrimSuffix(base, "/v1")
	return base + "/health"
}

// Health returns nil only when the health endpoint answers 200
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HealthURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("client.health_failed", "url", req.URL.String(), "error", err.Error())
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, "")
	}
	return nil
}
