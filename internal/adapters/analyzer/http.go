// Package analyzer calls external tier analyzer services over HTTP.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teei/docgate/internal/domain/gate"
)

// Config describes the analyzer service endpoint.
type Config struct {
	// BaseURL is the analyzer service root. Tier calls POST to
	// {BaseURL}/analyze/{dimension}/{tier}.
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// Client scores artifacts by delegating to per-tier analyzer endpoints.
// A 404 or 503 response means the capability is missing or down and maps to
// gate.ErrTierUnavailable, which makes the pipeline fall back a tier.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds an analyzer service client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("analyzer base url is required")
	}

	hc := cfg.Client
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: baseURL, client: hc}, nil
}

// Analyzer returns a gate.Analyzer bound to one dimension and tier.
func (c *Client) Analyzer(dim gate.Dimension, tier gate.TierID) gate.Analyzer {
	return gate.AnalyzerFunc(func(ctx context.Context, artifact gate.ArtifactRef) (float64, error) {
		return c.analyze(ctx, analyzeRequest{dim: dim, tier: tier, artifact: artifact})
	})
}

type analyzeRequest struct {
	dim      gate.Dimension
	tier     gate.TierID
	artifact gate.ArtifactRef
}

type analyzeResponse struct {
	Score float64 `json:"score"`
	Error string  `json:"error,omitempty"`
}

func (c *Client) analyze(ctx context.Context, req analyzeRequest) (float64, error) {
	payload, err := json.Marshal(req.artifact)
	if err != nil {
		return 0, fmt.Errorf("encode artifact: %w", err)
	}

	url := fmt.Sprintf("%s/analyze/%s/%s", c.baseURL, req.dim, req.tier)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: %v", gate.ErrTierUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read analyzer response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusServiceUnavailable:
		return 0, fmt.Errorf("%w: %s", gate.ErrTierUnavailable, resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("analyzer %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded analyzeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return 0, fmt.Errorf("decode analyzer response: %w", err)
	}
	if decoded.Error != "" {
		return 0, fmt.Errorf("analyzer reported failure: %s", decoded.Error)
	}
	return decoded.Score, nil
}
