// Package data provides PostgreSQL-backed persistence for gate audit records.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/teei/docgate/internal/core"
	"github.com/teei/docgate/internal/data/pgxutil"
	"github.com/teei/docgate/internal/domain/gate"
	apperrors "github.com/teei/docgate/internal/errors"
)

// ScorecardRepo persists finished scorecards for audit and reporting.
type ScorecardRepo struct {
	DB *sql.DB
}

var _ core.ScorecardArchiver = (*ScorecardRepo)(nil)

// NewScorecardRepo constructs a ScorecardRepo.
func NewScorecardRepo(db *sql.DB) *ScorecardRepo {
	return &ScorecardRepo{DB: db}
}

// scorecardRow mirrors the scorecards table for pgx row collection.
type scorecardRow struct {
	JobID           string          `db:"job_id"`
	Verdict         string          `db:"verdict"`
	NormalizedScore float64         `db:"normalized_score"`
	Threshold       float64         `db:"threshold"`
	Detail          json.RawMessage `db:"detail"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Archive inserts a finished scorecard. Archiving the same job twice yields a
// conflict error; decisions are immutable once recorded.
func (r *ScorecardRepo) Archive(ctx context.Context, card *gate.Scorecard) error {
	if r == nil || r.DB == nil {
		return ErrScorecardsNotConfigured
	}
	if card == nil || card.JobID == "" {
		return ErrJobIDRequired
	}

	detail, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("encode scorecard: %w", err)
	}

	const query = `
		INSERT INTO scorecards (job_id, verdict, normalized_score, threshold, detail)
		VALUES ($1, $2, $3, $4, $5)`
	_, err = r.DB.ExecContext(ctx, query,
		card.JobID, string(card.Verdict), card.NormalizedScore, card.Threshold, detail)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("archive scorecard: %w", err))
	}
	return nil
}

// GetByJobID retrieves the archived scorecard for a job.
func (r *ScorecardRepo) GetByJobID(ctx context.Context, jobID string) (*gate.Scorecard, error) {
	if r == nil || r.DB == nil {
		return nil, ErrScorecardsNotConfigured
	}
	if jobID == "" {
		return nil, ErrJobIDRequired
	}

	const query = `
		SELECT job_id, verdict, normalized_score, threshold, detail, created_at
		FROM scorecards
		WHERE job_id = $1`

	var row scorecardRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, jobID)
		if err != nil {
			return err
		}
		defer rows.Close()
		collected, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[scorecardRow])
		if err != nil {
			return err
		}
		row = collected
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrScorecardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scorecard: %w", err)
	}
	return decodeScorecard(row)
}

// ListRecent retrieves the latest archived scorecards, newest first.
func (r *ScorecardRepo) ListRecent(ctx context.Context, limit int) ([]*gate.Scorecard, error) {
	if r == nil || r.DB == nil {
		return nil, ErrScorecardsNotConfigured
	}
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT job_id, verdict, normalized_score, threshold, detail, created_at
		FROM scorecards
		ORDER BY created_at DESC
		LIMIT $1`

	var out []*gate.Scorecard
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[scorecardRow])
		if err != nil {
			return err
		}
		for _, row := range collected {
			card, decodeErr := decodeScorecard(row)
			if decodeErr != nil {
				return decodeErr
			}
			out = append(out, card)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list scorecards: %w", err)
	}
	return out, nil
}

func decodeScorecard(row scorecardRow) (*gate.Scorecard, error) {
	var card gate.Scorecard
	if err := json.Unmarshal(row.Detail, &card); err != nil {
		return nil, fmt.Errorf("decode scorecard %s: %w", row.JobID, err)
	}
	return &card, nil
}
