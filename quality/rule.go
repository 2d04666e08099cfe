package quality

import "time"

// Dimension is one of the independent axes of data correctness.
type Dimension string

const (
	Completeness Dimension = "completeness"
	Accuracy     Dimension = "accuracy"
	Consistency  Dimension = "consistency"
	Timeliness   Dimension = "timeliness"
	Validity     Dimension = "validity"
)

// Dimensions returns all known quality dimensions in canonical order.
func Dimensions() []Dimension {
	return []Dimension{Completeness, Accuracy, Consistency, Timeliness, Validity}
}

// IsValid reports whether d is a known dimension.
func (d Dimension) IsValid() bool {
	switch d {
	case Completeness, Accuracy, Consistency, Timeliness, Validity:
		return true
	}
	return false
}

// Rule is a single validation rule evaluated against a dataset snapshot.
// Which constraint fields apply depends on the dimension:
//
//   - completeness: Column + MinRatio (minimum non-null fraction)
//   - validity: Column + Min/Max numeric bounds or Pattern regex, with
//     MinRatio as the minimum fraction of rows that must satisfy them
//   - consistency: Column + RefTable/RefColumn existence check
//   - timeliness: Column (timestamps) + MaxAge relative to the snapshot time
//   - accuracy: Column mean compared against RefMean/RefStdDev within
//     Tolerance standard deviations
type Rule struct {
	// Name identifies the rule in reports. Optional; a name is derived
	// from the dimension and column when empty.
	Name      string
	Dimension Dimension
	// Column is the target column for single-column checks.
	Column string

	// MinRatio is the minimum fraction of rows that must pass a row-level
	// check. Zero means 1.0 (every row).
	MinRatio float64

	// Min and Max bound numeric values for validity checks.
	Min *float64
	Max *float64
	// Pattern is a regex that string values must match for validity checks.
	Pattern string

	// MaxAge is the maximum allowed age of the newest value for timeliness.
	MaxAge time.Duration

	// RefTable and RefColumn name the reference side of a cross-table
	// existence check for consistency.
	RefTable  string
	RefColumn string

	// RefMean and RefStdDev describe the reference distribution for
	// accuracy checks. Tolerance is in standard deviations; zero means 3.
	RefMean   float64
	RefStdDev float64
	Tolerance float64
}

// DisplayName returns the rule's name, deriving one when unset.
func (r Rule) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Column != "" {
		return string(r.Dimension) + ":" + r.Column
	}
	return string(r.Dimension)
}

// minRatio returns the effective minimum pass ratio.
func (r Rule) minRatio() float64 {
	if r.MinRatio <= 0 {
		return 1.0
	}
	return r.MinRatio
}

// tolerance returns the effective accuracy tolerance in standard deviations.
func (r Rule) tolerance() float64 {
	if r.Tolerance <= 0 {
		return 3.0
	}
	return r.Tolerance
}
