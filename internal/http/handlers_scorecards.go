package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/teei/docgate/internal/core"
	"github.com/teei/docgate/internal/data"
)

const defaultScorecardListLimit = 50

// ScorecardHandlers serves the scorecard archive read API.
type ScorecardHandlers struct {
	Archive core.ScorecardArchiver
	Logger  *slog.Logger
}

// GetByJobID handles GET /api/scorecards/{jobID}.
func (h *ScorecardHandlers) GetByJobID(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")

	card, err := h.Archive.GetByJobID(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrScorecardNotFound):
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "scorecard_not_found", Err: err})
		case errors.Is(err, data.ErrJobIDRequired):
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		default:
			h.Logger.ErrorContext(r.Context(), "scorecard lookup failed", "job_id", jobID, "error", err)
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: err})
		}
		return
	}

	WriteJSON(w, http.StatusOK, card)
}

// ListRecent handles GET /api/scorecards?limit=N.
func (h *ScorecardHandlers) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultScorecardListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "invalid_request",
				Err:     errors.New("limit must be a positive integer"),
			})
			return
		}
		limit = parsed
	}

	cards, err := h.Archive.ListRecent(r.Context(), limit)
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "scorecard list failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"scorecards": cards})
}
