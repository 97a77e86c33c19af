package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teei/docgate/internal/domain/gate"
)

var testArtifact = gate.ArtifactRef{ID: "art-1", URI: "file:///out/art-1.pdf", Format: "pdf"}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestClient_DecodesScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze/appearance/semantic", r.URL.Path)

		var artifact gate.ArtifactRef
		require.NoError(t, json.NewDecoder(r.Body).Decode(&artifact))
		assert.Equal(t, "art-1", artifact.ID)

		_ = json.NewEncoder(w).Encode(map[string]any{"score": 0.92})
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	score, err := client.Analyzer("appearance", "semantic").Analyze(context.Background(), testArtifact)
	require.NoError(t, err)
	assert.InDelta(t, 0.92, score, 1e-9)
}

func TestClient_NotFoundMeansTierUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Analyzer("structure", "extraction").Analyze(context.Background(), testArtifact)
	require.ErrorIs(t, err, gate.ErrTierUnavailable)
}

func TestClient_ServiceDownMeansTierUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "warming up", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Analyzer("structure", "semantic").Analyze(context.Background(), testArtifact)
	require.ErrorIs(t, err, gate.ErrTierUnavailable)
}

func TestClient_ConnectionErrorMeansTierUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Analyzer("layout-semantics", "heuristic").Analyze(context.Background(), testArtifact)
	require.ErrorIs(t, err, gate.ErrTierUnavailable)
}

func TestClient_OtherErrorsAreNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "corrupt artifact", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Analyzer("appearance", "heuristic").Analyze(context.Background(), testArtifact)
	require.Error(t, err)
	assert.NotErrorIs(t, err, gate.ErrTierUnavailable)
	assert.Contains(t, err.Error(), "corrupt artifact")
}

func TestClient_AnalyzerReportedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model rejected input"})
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Analyzer("appearance", "semantic").Analyze(context.Background(), testArtifact)
	require.Error(t, err)
	assert.NotErrorIs(t, err, gate.ErrTierUnavailable)
	assert.Contains(t, err.Error(), "model rejected input")
}

func TestClient_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Analyzer("structure", "heuristic").Analyze(ctx, testArtifact)
	require.ErrorIs(t, err, context.Canceled)
}
