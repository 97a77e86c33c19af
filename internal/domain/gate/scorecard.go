package gate

import (
	"fmt"
	"sort"
)

// Verdict is the gate's final pass/fail decision.
type Verdict string

const (
	// VerdictPass means no hard failure triggered and the composite score
	// cleared the threshold.
	VerdictPass Verdict = "pass"
	// VerdictFail means a hard failure triggered or the score fell short.
	VerdictFail Verdict = "fail"
)

// HardFailRule is an absolute per-dimension condition that forces a fail
// verdict regardless of the composite score.
type HardFailRule struct {
	Dimension Dimension `json:"dimension"`
	// Below is the floor: a score strictly under it triggers the rule.
	Below  float64 `json:"below"`
	Reason string  `json:"reason,omitempty"`
	// FailIfUnscored triggers the rule when every tier failed and the
	// dimension has no score at all.
	FailIfUnscored bool `json:"fail_if_unscored,omitempty"`
}

// HardFailure records a triggered hard-fail rule.
type HardFailure struct {
	Dimension Dimension `json:"dimension"`
	Reason    string    `json:"reason"`
	Score     *float64  `json:"score,omitempty"`
}

// Scorecard is the immutable record of one validation run: per-dimension
// scores, the renormalized weights actually applied, the composite score, and
// the final verdict.
type Scorecard struct {
	JobID           string                 `json:"job_id"`
	DimensionScores map[Dimension]*float64 `json:"dimension_scores"`
	Weights         map[Dimension]float64  `json:"weights"`
	NormalizedScore float64                `json:"normalized_score"`
	Threshold       float64                `json:"threshold"`
	Verdict         Verdict                `json:"verdict"`
	HardFailures    []HardFailure          `json:"hard_failures,omitempty"`
	TierUsed        map[Dimension]TierID   `json:"tier_used"`
	Attempts        []TierResult           `json:"attempts,omitempty"`
}

// DecideParams groups the inputs for Decide.
type DecideParams struct {
	JobID    string
	Outcomes map[Dimension]DimensionOutcome
	// Weights are caller-supplied relative weights. Empty means equal weights.
	Weights       map[Dimension]float64
	HardFailRules []HardFailRule
	Threshold     float64
}

// Decide combines per-dimension outcomes into a single verdict. It is pure
// and deterministic: identical inputs always yield an identical Scorecard.
//
// Hard-fail rules are checked first and independently of the weighted score.
// Weights are renormalized to sum to 1.0 over the dimensions that actually
// scored; unscored dimensions carry zero weight. The verdict is pass iff no
// hard failure triggered and the composite score meets the threshold.
func Decide(params DecideParams) *Scorecard {
	dims := sortedDimensions(params.Outcomes)

	card := &Scorecard{
		JobID:           params.JobID,
		DimensionScores: make(map[Dimension]*float64, len(dims)),
		Weights:         make(map[Dimension]float64, len(dims)),
		Threshold:       params.Threshold,
		TierUsed:        make(map[Dimension]TierID, len(dims)),
	}

	for _, dim := range dims {
		outcome := params.Outcomes[dim]
		card.DimensionScores[dim] = outcome.Score
		if outcome.TierUsed != "" {
			card.TierUsed[dim] = outcome.TierUsed
		}
		card.Attempts = append(card.Attempts, outcome.Attempts...)
	}

	card.HardFailures = evaluateHardFailRules(params.HardFailRules, card.DimensionScores)
	card.NormalizedScore = weightedScore(weightedScoreParams{
		dims:    dims,
		scores:  card.DimensionScores,
		weights: params.Weights,
		out:     card.Weights,
	})

	if len(card.HardFailures) == 0 && card.NormalizedScore >= params.Threshold && anyScored(card.DimensionScores) {
		card.Verdict = VerdictPass
	} else {
		card.Verdict = VerdictFail
	}
	return card
}

func evaluateHardFailRules(rules []HardFailRule, scores map[Dimension]*float64) []HardFailure {
	var failures []HardFailure
	for _, rule := range rules {
		score, known := scores[rule.Dimension]
		if !known {
			continue
		}
		switch {
		case score == nil:
			if rule.FailIfUnscored {
				failures = append(failures, HardFailure{
					Dimension: rule.Dimension,
					Reason:    hardFailReason(rule, nil),
				})
			}
		case *score < rule.Below:
			failures = append(failures, HardFailure{
				Dimension: rule.Dimension,
				Reason:    hardFailReason(rule, score),
				Score:     score,
			})
		}
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Dimension < failures[j].Dimension })
	return failures
}

func hardFailReason(rule HardFailRule, score *float64) string {
	if rule.Reason != "" {
		return rule.Reason
	}
	if score == nil {
		return fmt.Sprintf("dimension %s produced no score", rule.Dimension)
	}
	return fmt.Sprintf("dimension %s scored %.3f, below hard-fail floor %.3f", rule.Dimension, *score, rule.Below)
}

type weightedScoreParams struct {
	dims    []Dimension
	scores  map[Dimension]*float64
	weights map[Dimension]float64
	// out receives the renormalized effective weights per dimension.
	out map[Dimension]float64
}

// weightedScore renormalizes weights over the scored subset so they sum to
// 1.0, then returns the weighted sum of scores.
func weightedScore(params weightedScoreParams) float64 {
	raw := func(dim Dimension) float64 {
		if len(params.weights) == 0 {
			return 1
		}
		return params.weights[dim]
	}

	sum := 0.0
	for _, dim := range params.dims {
		if params.scores[dim] == nil {
			continue
		}
		sum += raw(dim)
	}

	total := 0.0
	for _, dim := range params.dims {
		score := params.scores[dim]
		if score == nil || sum == 0 {
			params.out[dim] = 0
			continue
		}
		w := raw(dim) / sum
		params.out[dim] = w
		total += w * *score
	}
	return total
}

func anyScored(scores map[Dimension]*float64) bool {
	for _, s := range scores {
		if s != nil {
			return true
		}
	}
	return false
}

func sortedDimensions(outcomes map[Dimension]DimensionOutcome) []Dimension {
	dims := make([]Dimension, 0, len(outcomes))
	for dim := range outcomes {
		dims = append(dims, dim)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })
	return dims
}
