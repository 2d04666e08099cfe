package quality

import (
	"sort"
)

// RuleFailure describes a rule that did not pass, with the observed reason.
type RuleFailure struct {
	Rule      string    `json:"rule"`
	Dimension Dimension `json:"dimension"`
	Column    string    `json:"column,omitempty"`
	Reason    string    `json:"reason"`
}

// Report aggregates per-dimension pass rates for one dataset snapshot.
type Report struct {
	Dataset         string                `json:"dataset"`
	OverallScore    float64               `json:"overall_score"`
	DimensionScores map[Dimension]float64 `json:"dimension_scores"`
	FailedRules     []RuleFailure         `json:"failed_rules"`
}

// Passed reports whether the overall score meets the given threshold.
func (r Report) Passed(threshold float64) bool {
	return r.OverallScore >= threshold
}

// Option configures report aggregation.
type Option func(*options)

type options struct {
	weights map[Dimension]float64
}

// WithWeights supplies per-dimension weights for the overall score. Dimensions
// absent from the map keep weight 1. Aggregation stays unweighted by default.
func WithWeights(weights map[Dimension]float64) Option {
	return func(o *options) {
		o.weights = weights
	}
}

// Validate evaluates every rule against the dataset snapshot and aggregates
// the results. Rule failures never surface as errors: they are recorded in
// the report so callers decide whether the score blocks anything.
//
// Per dimension, score = passed rules / total rules in that dimension. The
// overall score is the (optionally weighted) mean across dimensions that have
// at least one rule; a rule-free validation scores 1.0.
func Validate(ds Dataset, rules []Rule, opts ...Option) Report {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	passed := make(map[Dimension]int)
	total := make(map[Dimension]int)
	var failures []RuleFailure

	for _, rule := range rules {
		total[rule.Dimension]++
		res := evaluate(ds, rule)
		if res.passed {
			passed[rule.Dimension]++
			continue
		}
		failures = append(failures, RuleFailure{
			Rule:      rule.DisplayName(),
			Dimension: rule.Dimension,
			Column:    rule.Column,
			Reason:    res.reason,
		})
	}

	scores := make(map[Dimension]float64, len(total))
	for dim, n := range total {
		scores[dim] = float64(passed[dim]) / float64(n)
	}

	return Report{
		Dataset:         ds.Name(),
		OverallScore:    overallScore(scores, o.weights),
		DimensionScores: scores,
		FailedRules:     sortFailures(failures),
	}
}

func overallScore(scores map[Dimension]float64, weights map[Dimension]float64) float64 {
	if len(scores) == 0 {
		return 1.0
	}

	sum, weightSum := 0.0, 0.0
	for dim, score := range scores {
		w := 1.0
		if weights != nil {
			if custom, ok := weights[dim]; ok && custom > 0 {
				w = custom
			}
		}
		sum += score * w
		weightSum += w
	}
	if weightSum == 0 {
		return 1.0
	}
	return sum / weightSum
}

// sortFailures orders failures deterministically so identical snapshots
// produce identical reports.
func sortFailures(failures []RuleFailure) []RuleFailure {
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].Dimension != failures[j].Dimension {
			return failures[i].Dimension < failures[j].Dimension
		}
		return failures[i].Rule < failures[j].Rule
	})
	return failures
}
