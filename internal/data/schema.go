package data

import (
	"context"
	"database/sql"
	"fmt"
)

// scorecardSchema holds the audit table for finished gate decisions. Detail
// keeps the full scorecard as JSON; the scalar columns exist for reporting
// queries.
const scorecardSchema = `
CREATE TABLE IF NOT EXISTS scorecards (
	job_id           text PRIMARY KEY,
	verdict          text NOT NULL,
	normalized_score double precision NOT NULL,
	threshold        double precision NOT NULL,
	detail           jsonb NOT NULL,
	created_at       timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS scorecards_created_at_idx ON scorecards (created_at DESC);
`

// EnsureSchema creates the scorecard tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return ErrScorecardsNotConfigured
	}
	if _, err := db.ExecContext(ctx, scorecardSchema); err != nil {
		return fmt.Errorf("ensure scorecard schema: %w", err)
	}
	return nil
}
