// Package notify defines the payload shared by failure notification channels.
package notify

import "time"

// Severity labels for failure notifications.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// GateFailurePayload is the channel-independent description of a failed
// submission.
type GateFailurePayload struct {
	JobID           string            `json:"job_id,omitempty"`
	RequestKey      string            `json:"request_key"`
	ResourceID      string            `json:"resource_id"`
	FailureKind     string            `json:"failure_kind"`
	FailureDetail   string            `json:"failure_detail,omitempty"`
	Verdict         string            `json:"verdict,omitempty"`
	NormalizedScore *float64          `json:"normalized_score,omitempty"`
	Severity        string            `json:"severity"`
	OccurredAt      time.Time         `json:"occurred_at"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}
