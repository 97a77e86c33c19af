package data

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teei/docgate/internal/domain/gate"
)

func TestScorecardRepo_NotConfigured(t *testing.T) {
	var repo *ScorecardRepo
	ctx := context.Background()

	err := repo.Archive(ctx, &gate.Scorecard{JobID: "j1"})
	require.ErrorIs(t, err, ErrScorecardsNotConfigured)

	_, err = repo.GetByJobID(ctx, "j1")
	require.ErrorIs(t, err, ErrScorecardsNotConfigured)

	_, err = repo.ListRecent(ctx, 10)
	require.ErrorIs(t, err, ErrScorecardsNotConfigured)

	repo = NewScorecardRepo(nil)
	err = repo.Archive(ctx, &gate.Scorecard{JobID: "j1"})
	require.ErrorIs(t, err, ErrScorecardsNotConfigured)
}

func TestScorecardRepo_RequiresJobID(t *testing.T) {
	// sql.Open does not dial, and the argument checks run before any query.
	db, err := sql.Open("pgx", "postgres://localhost/unused")
	require.NoError(t, err)
	defer db.Close()
	repo := NewScorecardRepo(db)
	ctx := context.Background()

	require.ErrorIs(t, repo.Archive(ctx, nil), ErrJobIDRequired)
	require.ErrorIs(t, repo.Archive(ctx, &gate.Scorecard{}), ErrJobIDRequired)

	_, err = repo.GetByJobID(ctx, "")
	require.ErrorIs(t, err, ErrJobIDRequired)
}

func TestDecodeScorecard_RoundTrip(t *testing.T) {
	score := 0.91
	row := scorecardRow{
		JobID:  "j1",
		Detail: []byte(`{"job_id":"j1","dimension_scores":{"structure":0.91},"weights":{"structure":1},"normalized_score":0.91,"threshold":0.85,"verdict":"pass","tier_used":{"structure":"semantic"}}`),
	}
	card, err := decodeScorecard(row)
	require.NoError(t, err)
	assert.Equal(t, "j1", card.JobID)
	assert.Equal(t, gate.VerdictPass, card.Verdict)
	require.NotNil(t, card.DimensionScores["structure"])
	assert.Equal(t, score, *card.DimensionScores["structure"])
}

func TestDecodeScorecard_BadJSON(t *testing.T) {
	_, err := decodeScorecard(scorecardRow{JobID: "j1", Detail: []byte("{broken")})
	require.Error(t, err)
}
