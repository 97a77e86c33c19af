package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/teei/docgate/internal/domain/gate"
	apperrors "github.com/teei/docgate/internal/errors"
)

// JobHandlers serves job submission endpoints.
type JobHandlers struct {
	Gate   JobSubmitter
	Logger *slog.Logger
}

// Submit handles POST /api/jobs. The response status reflects coordination
// failures (503 for lock_timeout, 504 for compute_timeout); validation and
// scoring failures come back as 200 with a fail verdict in the body.
func (h *JobHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Gate == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "gate_unavailable",
			Err:     errors.New("gate service is not configured"),
		})
		return
	}

	var req gate.Request
	if !DecodeJSON(w, r, &req) {
		return
	}

	outcome, err := h.Gate.Submit(r.Context(), &req)
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}

	WriteJSON(w, submitStatus(outcome), outcome)
}

func (h *JobHandlers) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperrors.IsValidation(err):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
	case apperrors.IsCanceled(err):
		// Client went away; nothing useful to write, but keep the status honest.
		WriteError(w, ErrorParams{Code: http.StatusRequestTimeout, ErrCode: "request_canceled", Err: err})
	default:
		h.Logger.ErrorContext(r.Context(), "job submission failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: err})
	}
}

func submitStatus(outcome *gate.Outcome) int {
	switch outcome.FailureKind {
	case gate.FailureLockTimeout:
		return http.StatusServiceUnavailable
	case gate.FailureComputeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusOK
	}
}

// QueueDepth handles GET /api/jobs/queue-depth.
func (h *JobHandlers) QueueDepth(w http.ResponseWriter, _ *http.Request) {
	if h.Gate == nil {
		WriteJSON(w, http.StatusOK, map[string]int{"queue_depth": 0})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"queue_depth": h.Gate.QueueDepth()})
}
