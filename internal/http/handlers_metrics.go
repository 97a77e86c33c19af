package httpx

import (
	"net/http"

	"github.com/teei/docgate/internal/observability/metrics"
)

// MetricsHandlers serves rolling-window metric snapshots.
type MetricsHandlers struct {
	Source MetricsSource
}

// Snapshot handles GET /api/metrics.
func (h *MetricsHandlers) Snapshot(w http.ResponseWriter, _ *http.Request) {
	snapshots := []metrics.Snapshot{}
	if h.Source != nil {
		snapshots = h.Source.SnapshotAll()
	}
	WriteJSON(w, http.StatusOK, map[string]any{"operations": snapshots})
}
