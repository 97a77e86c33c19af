// Package backend talks to the document publishing backend over HTTP.
package backend

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

	"github.com/teei/docgate/internal/core"
	"github.com/teei/docgate/internal/domain/gate"
)

// Config describes the publishing backend endpoint.
type Config struct {
	// BaseURL is the backend proxy root, e.g. "http://localhost:8013".
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// Executor submits job bodies to the publishing backend and reports the
// artifact it produced. Transport errors and 5xx responses are marked
// retryable; 4xx responses are terminal.
type Executor struct {
	baseURL string
	client  *http.Client
}

var _ core.BackendExecutor = (*Executor)(nil)

// NewExecutor builds an HTTP backend executor.
func NewExecutor(cfg Config) (*Executor, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend base url is required")
	}

	hc := cfg.Client
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Executor{baseURL: baseURL, client: hc}, nil
}

type executeBody struct {
	JobID         string          `json:"job_id"`
	ResourceID    string          `json:"resource_id"`
	OperationKind string          `json:"operation_kind"`
	Job           json.RawMessage `json:"job"`
}

type executeResponse struct {
	Artifact gate.ArtifactRef `json:"artifact"`
	Error    string           `json:"error,omitempty"`
}

// Execute posts the job body to the backend and decodes the produced
// artifact reference.
func (e *Executor) Execute(ctx context.Context, req core.ExecuteRequest) (*gate.ArtifactRef, error) {
	payload, err := json.Marshal(executeBody{
		JobID:         req.JobID,
		ResourceID:    req.ResourceID,
		OperationKind: req.OperationKind,
		Job:           req.JobBody,
	})
	if err != nil {
		return nil, fmt.Errorf("encode execute request: %w", err)
	}

	url := e.baseURL + "/jobs/execute"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create execute request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, gate.Retryable(fmt.Errorf("backend request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, gate.Retryable(fmt.Errorf("read backend response: %w", err))
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, gate.Retryable(fmt.Errorf("backend %s: %s", resp.Status, responseDetail(body)))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("backend rejected job: %s: %s", resp.Status, responseDetail(body))
	}

	var decoded executeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("backend reported failure: %s", decoded.Error)
	}
	if decoded.Artifact.ID == "" {
		decoded.Artifact.ID = req.JobID
	}
	return &decoded.Artifact, nil
}

func responseDetail(body []byte) string {
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return "no detail"
	}
	return detail
}
