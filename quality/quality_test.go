package quality

import (
	"reflect"
	"testing"
	"time"
)

var snapTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ordersSnapshot() *TableSnapshot {
	users := NewTableSnapshot("users", snapTime).
		WithColumn("id", []any{"u1", "u2", "u3"})

	return NewTableSnapshot("orders", snapTime).
		WithColumn("order_id", []any{"o1", "o2", "o3", "o4"}).
		WithColumn("user_id", []any{"u1", "u2", "u3", "u1"}).
		WithColumn("amount", []any{10.0, 20.0, 30.0, 40.0}).
		WithColumn("email", []any{"a@x.com", "b@x.com", nil, "d@x.com"}).
		WithColumn("created_at", []any{
			snapTime.Add(-3 * time.Hour),
			snapTime.Add(-2 * time.Hour),
			snapTime.Add(-90 * time.Minute),
			snapTime.Add(-30 * time.Minute),
		}).
		WithRelated(users)
}

func floatPtr(f float64) *float64 { return &f }

func TestValidate_AllRulesPass(t *testing.T) {
	ds := ordersSnapshot()
	rules := []Rule{
		{Dimension: Completeness, Column: "order_id"},
		{Dimension: Validity, Column: "amount", Min: floatPtr(0), Max: floatPtr(1000)},
		{Dimension: Consistency, Column: "user_id", RefTable: "users", RefColumn: "id"},
		{Dimension: Timeliness, Column: "created_at", MaxAge: time.Hour},
		{Dimension: Accuracy, Column: "amount", RefMean: 25, RefStdDev: 10},
	}

	report := Validate(ds, rules)
	if report.OverallScore != 1.0 {
		t.Errorf("expected overall score 1.0, got %v (failures: %v)",
			report.OverallScore, report.FailedRules)
	}
	if len(report.FailedRules) != 0 {
		t.Errorf("expected no failed rules, got %v", report.FailedRules)
	}
	if report.Dataset != "orders" {
		t.Errorf("expected dataset 'orders', got %q", report.Dataset)
	}
}

func TestValidate_ScoreBounds(t *testing.T) {
	ds := ordersSnapshot()
	rules := []Rule{
		{Dimension: Completeness, Column: "email"}, // fails: 1 null, min ratio 1.0
		{Dimension: Completeness, Column: "order_id"},
		{Dimension: Timeliness, Column: "created_at", MaxAge: time.Minute}, // fails
	}

	report := Validate(ds, rules)
	if report.OverallScore < 0 || report.OverallScore > 1 {
		t.Fatalf("overall score out of bounds: %v", report.OverallScore)
	}
	if report.DimensionScores[Completeness] != 0.5 {
		t.Errorf("expected completeness 0.5, got %v", report.DimensionScores[Completeness])
	}
	if report.DimensionScores[Timeliness] != 0.0 {
		t.Errorf("expected timeliness 0.0, got %v", report.DimensionScores[Timeliness])
	}
	// mean of 0.5 and 0.0
	if report.OverallScore != 0.25 {
		t.Errorf("expected overall 0.25, got %v", report.OverallScore)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	ds := ordersSnapshot()
	rules := []Rule{
		{Dimension: Completeness, Column: "email"},
		{Dimension: Validity, Column: "amount", Min: floatPtr(15)},
		{Dimension: Accuracy, Column: "amount", RefMean: 100, RefStdDev: 5},
	}

	first := Validate(ds, rules)
	second := Validate(ds, rules)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical reports, got\n%+v\n%+v", first, second)
	}
}

func TestValidate_NoRules(t *testing.T) {
	report := Validate(ordersSnapshot(), nil)
	if report.OverallScore != 1.0 {
		t.Errorf("expected 1.0 for empty rule set, got %v", report.OverallScore)
	}
}

func TestValidate_CompletenessMinRatio(t *testing.T) {
	ds := ordersSnapshot()
	// 3 of 4 rows non-null = 0.75
	pass := Validate(ds, []Rule{{Dimension: Completeness, Column: "email", MinRatio: 0.7}})
	if pass.OverallScore != 1.0 {
		t.Errorf("expected pass at min_ratio 0.7, got %v", pass.FailedRules)
	}
	failr := Validate(ds, []Rule{{Dimension: Completeness, Column: "email", MinRatio: 0.9}})
	if failr.OverallScore != 0.0 {
		t.Errorf("expected fail at min_ratio 0.9, got %v", failr.OverallScore)
	}
}

func TestValidate_ValidityPattern(t *testing.T) {
	ds := ordersSnapshot()
	rules := []Rule{{Dimension: Validity, Column: "email", Pattern: `^[^@]+@[^@]+$`}}
	report := Validate(ds, rules)
	// nulls are skipped; all non-null emails match
	if report.OverallScore != 1.0 {
		t.Errorf("expected pattern rule to pass, got %v", report.FailedRules)
	}
}

func TestValidate_ConsistencyOrphans(t *testing.T) {
	users := NewTableSnapshot("users", snapTime).WithColumn("id", []any{"u1"})
	ds := NewTableSnapshot("orders", snapTime).
		WithColumn("user_id", []any{"u1", "ghost"}).
		WithRelated(users)

	report := Validate(ds, []Rule{
		{Dimension: Consistency, Column: "user_id", RefTable: "users", RefColumn: "id"},
	})
	if len(report.FailedRules) != 1 {
		t.Fatalf("expected 1 failure, got %v", report.FailedRules)
	}
	if report.FailedRules[0].Dimension != Consistency {
		t.Errorf("unexpected failure: %+v", report.FailedRules[0])
	}
}

func TestValidate_AccuracyDeviation(t *testing.T) {
	ds := ordersSnapshot() // mean(amount) = 25
	report := Validate(ds, []Rule{
		{Dimension: Accuracy, Column: "amount", RefMean: 100, RefStdDev: 5},
	})
	if report.OverallScore != 0.0 {
		t.Errorf("expected accuracy failure, got %v", report.OverallScore)
	}
}

func TestValidate_MissingColumnFails(t *testing.T) {
	report := Validate(ordersSnapshot(), []Rule{
		{Dimension: Completeness, Column: "nope"},
	})
	if report.OverallScore != 0.0 {
		t.Error("expected missing column to fail the rule")
	}
	if report.FailedRules[0].Reason == "" {
		t.Error("expected a failure reason")
	}
}

func TestValidate_Weights(t *testing.T) {
	ds := ordersSnapshot()
	rules := []Rule{
		{Dimension: Completeness, Column: "order_id"},             // 1.0
		{Dimension: Timeliness, Column: "created_at", MaxAge: time.Minute}, // 0.0
	}

	unweighted := Validate(ds, rules)
	if unweighted.OverallScore != 0.5 {
		t.Errorf("expected unweighted 0.5, got %v", unweighted.OverallScore)
	}

	weighted := Validate(ds, rules, WithWeights(map[Dimension]float64{
		Completeness: 3,
		Timeliness:   1,
	}))
	if weighted.OverallScore != 0.75 {
		t.Errorf("expected weighted 0.75, got %v", weighted.OverallScore)
	}
}

func TestParseSpec(t *testing.T) {
	doc := []byte(`
threshold: 0.9
dimensions:
  completeness:
    - column: user_id
      min_ratio: 0.99
  validity:
    - column: age
      min: 0
      max: 150
  timeliness:
    - column: created_at
      max_age: 2h
`)
	spec, err := ParseSpec(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Threshold != 0.9 {
		t.Errorf("expected threshold 0.9, got %v", spec.Threshold)
	}

	rules := spec.Rules()
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	// canonical dimension order: completeness before timeliness before validity
	if rules[0].Dimension != Completeness {
		t.Errorf("expected completeness first, got %s", rules[0].Dimension)
	}
	if rules[1].Dimension != Timeliness || rules[1].MaxAge != 2*time.Hour {
		t.Errorf("unexpected timeliness rule: %+v", rules[1])
	}
}

func TestParseSpec_DefaultThreshold(t *testing.T) {
	spec, err := ParseSpec([]byte("dimensions:\n  completeness:\n    - column: id\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Threshold != DefaultThreshold {
		t.Errorf("expected default threshold %v, got %v", DefaultThreshold, spec.Threshold)
	}
}

func TestParseSpec_Invalid(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"unknown dimension", "dimensions:\n  uniqueness:\n    - column: id\n"},
		{"missing column", "dimensions:\n  completeness:\n    - min_ratio: 0.5\n"},
		{"consistency without ref", "dimensions:\n  consistency:\n    - column: user_id\n"},
		{"timeliness without max_age", "dimensions:\n  timeliness:\n    - column: ts\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseSpec([]byte(tc.doc)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
