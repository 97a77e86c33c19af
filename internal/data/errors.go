package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrScorecardsNotConfigured = errors.New("scorecard repository not configured")
	ErrScorecardNotFound       = errors.New("scorecard not found")
	ErrJobIDRequired           = errors.New("job_id is required")
)
