package quality

import (
	"fmt"
	"math"
	"regexp"
	"time"
)

// checkResult is the outcome of evaluating one rule.
type checkResult struct {
	passed bool
	reason string
}

func pass() checkResult { return checkResult{passed: true} }

func fail(format string, args ...any) checkResult {
	return checkResult{passed: false, reason: fmt.Sprintf(format, args...)}
}

// evaluate dispatches a rule to its dimension-specific check.
func evaluate(ds Dataset, rule Rule) checkResult {
	switch rule.Dimension {
	case Completeness:
		return checkCompleteness(ds, rule)
	case Validity:
		return checkValidity(ds, rule)
	case Consistency:
		return checkConsistency(ds, rule)
	case Timeliness:
		return checkTimeliness(ds, rule)
	case Accuracy:
		return checkAccuracy(ds, rule)
	default:
		return fail("unknown dimension %q", rule.Dimension)
	}
}

// checkCompleteness scans the column's null rate.
func checkCompleteness(ds Dataset, rule Rule) checkResult {
	vals, ok := ds.Column(rule.Column)
	if !ok {
		return fail("column %q not found", rule.Column)
	}
	if len(vals) == 0 {
		return pass()
	}

	nonNull := 0
	for _, v := range vals {
		if v != nil {
			nonNull++
		}
	}
	ratio := float64(nonNull) / float64(len(vals))
	if ratio < rule.minRatio() {
		return fail("non-null ratio %.4f below %.4f (%d of %d rows null)",
			ratio, rule.minRatio(), len(vals)-nonNull, len(vals))
	}
	return pass()
}

// checkValidity applies a numeric range or regex constraint per row.
func checkValidity(ds Dataset, rule Rule) checkResult {
	vals, ok := ds.Column(rule.Column)
	if !ok {
		return fail("column %q not found", rule.Column)
	}
	if len(vals) == 0 {
		return pass()
	}

	var re *regexp.Regexp
	if rule.Pattern != "" {
		var err error
		re, err = regexp.Compile(rule.Pattern)
		if err != nil {
			return fail("invalid pattern %q: %v", rule.Pattern, err)
		}
	}

	valid, considered := 0, 0
	for _, v := range vals {
		if v == nil {
			continue // nulls are completeness territory
		}
		considered++
		if validValue(v, rule, re) {
			valid++
		}
	}
	if considered == 0 {
		return pass()
	}
	ratio := float64(valid) / float64(considered)
	if ratio < rule.minRatio() {
		return fail("valid ratio %.4f below %.4f (%d of %d rows invalid)",
			ratio, rule.minRatio(), considered-valid, considered)
	}
	return pass()
}

func validValue(v any, rule Rule, re *regexp.Regexp) bool {
	if re != nil {
		s, ok := toString(v)
		return ok && re.MatchString(s)
	}
	f, ok := toFloat(v)
	if !ok {
		return false
	}
	if rule.Min != nil && f < *rule.Min {
		return false
	}
	if rule.Max != nil && f > *rule.Max {
		return false
	}
	return true
}

// checkConsistency verifies every non-null value exists in the reference
// table's column.
func checkConsistency(ds Dataset, rule Rule) checkResult {
	vals, ok := ds.Column(rule.Column)
	if !ok {
		return fail("column %q not found", rule.Column)
	}
	refVals, ok := ds.Reference(rule.RefTable, rule.RefColumn)
	if !ok {
		return fail("reference %s.%s not found", rule.RefTable, rule.RefColumn)
	}

	refSet := make(map[string]bool, len(refVals))
	for _, rv := range refVals {
		if s, ok := toString(rv); ok {
			refSet[s] = true
		}
	}

	orphans := 0
	for _, v := range vals {
		if v == nil {
			continue
		}
		s, ok := toString(v)
		if !ok || !refSet[s] {
			orphans++
		}
	}
	if orphans > 0 {
		return fail("%d values in %q missing from %s.%s",
			orphans, rule.Column, rule.RefTable, rule.RefColumn)
	}
	return pass()
}

// checkTimeliness verifies the newest value's age against the snapshot time.
func checkTimeliness(ds Dataset, rule Rule) checkResult {
	vals, ok := ds.Column(rule.Column)
	if !ok {
		return fail("column %q not found", rule.Column)
	}

	var newest time.Time
	for _, v := range vals {
		if ts, ok := toTime(v); ok && ts.After(newest) {
			newest = ts
		}
	}
	if newest.IsZero() {
		return fail("column %q has no timestamp values", rule.Column)
	}

	age := ds.SnapshotTime().Sub(newest)
	if age > rule.MaxAge {
		return fail("newest record is %s old, max age %s", age, rule.MaxAge)
	}
	return pass()
}

// checkAccuracy compares the column mean against a reference distribution.
func checkAccuracy(ds Dataset, rule Rule) checkResult {
	vals, ok := ds.Column(rule.Column)
	if !ok {
		return fail("column %q not found", rule.Column)
	}

	sum, n := 0.0, 0
	for _, v := range vals {
		if f, ok := toFloat(v); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return fail("column %q has no numeric values", rule.Column)
	}

	mean := sum / float64(n)
	if rule.RefStdDev <= 0 {
		if mean != rule.RefMean {
			return fail("mean %.4f differs from reference %.4f", mean, rule.RefMean)
		}
		return pass()
	}

	deviation := math.Abs(mean-rule.RefMean) / rule.RefStdDev
	if deviation > rule.tolerance() {
		return fail("mean %.4f deviates %.2f stddevs from reference %.4f (tolerance %.2f)",
			mean, deviation, rule.RefMean, rule.tolerance())
	}
	return pass()
}

// --- value coercion ---

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	case int, int32, int64, uint:
		return fmt.Sprintf("%d", s), true
	}
	return "", false
}

func toTime(v any) (time.Time, bool) {
	switch ts := v.(type) {
	case time.Time:
		return ts, true
	case string:
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}
