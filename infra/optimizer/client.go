// Package optimizer provides the HTTP client for the external schedule
// optimization service. The client implements optimize.Optimizer; any
// transport or protocol failure surfaces as an error so the caller can fall
// back to the deterministic rebalancer output.
package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coparent/rota/core/logger"
	"github.com/coparent/rota/core/optimize"
)

// Config holds the optimizer endpoint settings.
type Config struct {
	URL            string `json:"url"`
	APIKey         string `json:"apiKey"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// Client calls the optimization service over HTTP.
type Client struct {
	url    string
	apiKey string
	client *http.Client
	log    logger.Logger
}

// New creates a Client. A non-positive timeout falls back to 10 seconds.
func New(cfg Config, log logger.Logger) *Client {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Client{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:    log,
	}
}

// Propose posts the rebalancing context and decodes the proposed changes.
func (c *Client) Propose(ctx context.Context, req optimize.Request) (optimize.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return optimize.Response{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return optimize.Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return optimize.Response{}, fmt.Errorf("call optimizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return optimize.Response{}, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}

	var out optimize.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return optimize.Response{}, fmt.Errorf("decode response: %w", err)
	}
	c.log.Debugf("optimizer proposed %d change(s)", len(out.Changes))
	return out, nil
}
