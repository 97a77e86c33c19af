// Package webhook delivers gate failure notifications to an HTTP endpoint.
package webhook

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

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/teei/docgate/internal/core"
	"github.com/teei/docgate/internal/domain/gate"
	"github.com/teei/docgate/internal/observability/notify"
)

// Config captures webhook endpoint behaviour.
type Config struct {
	URL        string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// PayloadSelector is an optional JMESPath expression applied to the
	// payload before delivery, so receivers can demand a custom shape.
	PayloadSelector string
	Metadata        map[string]string
}

// Client posts failed outcomes to a configured webhook.
type Client struct {
	url        string
	retryLimit int
	selector   string
	metadata   map[string]string
	client     *http.Client
}

var _ core.FailureNotifier = (*Client)(nil)

// NewClient builds a webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	retries := cfg.RetryLimit
	if retries < 0 {
		retries = 0
	}

	selector := strings.TrimSpace(cfg.PayloadSelector)
	if selector != "" {
		if _, err := jmespath.Compile(selector); err != nil {
			return nil, fmt.Errorf("compile payload selector: %w", err)
		}
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		url:        url,
		retryLimit: retries,
		selector:   selector,
		metadata:   cfg.Metadata,
		client:     hc,
	}, nil
}

// NotifyFailure posts the failed outcome as JSON, retrying with linear
// backoff on delivery errors.
func (c *Client) NotifyFailure(ctx context.Context, outcome *gate.Outcome) error {
	if outcome == nil || !outcome.Failed() {
		return nil
	}

	body, err := c.encode(buildPayload(outcome, c.metadata))
	if err != nil {
		return err
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = c.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func buildPayload(outcome *gate.Outcome, metadata map[string]string) notify.GateFailurePayload {
	payload := notify.GateFailurePayload{
		JobID:         outcome.JobID,
		RequestKey:    outcome.RequestKey,
		ResourceID:    outcome.ResourceID,
		FailureKind:   string(outcome.FailureKind),
		FailureDetail: outcome.FailureDetail,
		Verdict:       string(outcome.Verdict),
		Severity:      severityFor(outcome.FailureKind),
		OccurredAt:    time.Now().UTC(),
		Metadata:      metadata,
	}
	if outcome.Scorecard != nil {
		score := outcome.Scorecard.NormalizedScore
		payload.NormalizedScore = &score
	}
	return payload
}

// severityFor treats verdict failures as warnings and everything else, the
// coordination and execution failures, as critical.
func severityFor(kind gate.FailureKind) string {
	switch kind {
	case gate.FailureHardFail, gate.FailureThreshold:
		return notify.SeverityWarning
	default:
		return notify.SeverityCritical
	}
}

// encode marshals the payload, routing it through the JMESPath selector when
// one is configured.
func (c *Client) encode(payload notify.GateFailurePayload) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}
	if c.selector == "" {
		return raw, nil
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode webhook payload for selection: %w", err)
	}
	selected, err := jmespath.Search(c.selector, generic)
	if err != nil {
		return nil, fmt.Errorf("apply payload selector: %w", err)
	}
	out, err := json.Marshal(selected)
	if err != nil {
		return nil, fmt.Errorf("encode selected payload: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}
