package quality

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/skillsenselab/flowkit/validation"
)

// DefaultThreshold is the gate threshold applied when a spec leaves it unset.
const DefaultThreshold = 0.95

// Spec is the YAML document form of a rule set:
//
//	threshold: 0.95
//	dimensions:
//	  completeness:
//	    - column: user_id
//	      min_ratio: 0.99
//	  validity:
//	    - column: age
//	      min: 0
//	      max: 150
type Spec struct {
	// Threshold is the minimum overall score for the gate to pass.
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// Dimensions maps each dimension to its rule entries.
	Dimensions map[Dimension][]RuleSpec `yaml:"dimensions" json:"dimensions"`
	// Weights optionally weight dimensions in the overall score.
	Weights map[Dimension]float64 `yaml:"weights,omitempty" json:"weights,omitempty"`
}

// RuleSpec is one rule entry in a Spec document. MaxAge is a duration string
// ("30m", "2h") parsed when the spec is flattened into rules.
type RuleSpec struct {
	Name      string   `yaml:"name,omitempty" json:"name,omitempty"`
	Column    string   `yaml:"column,omitempty" json:"column,omitempty"`
	MinRatio  float64  `yaml:"min_ratio,omitempty" json:"min_ratio,omitempty"`
	Min       *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MaxAge    string   `yaml:"max_age,omitempty" json:"max_age,omitempty"`
	RefTable  string   `yaml:"ref_table,omitempty" json:"ref_table,omitempty"`
	RefColumn string   `yaml:"ref_column,omitempty" json:"ref_column,omitempty"`
	Mean      float64  `yaml:"mean,omitempty" json:"mean,omitempty"`
	StdDev    float64  `yaml:"std_dev,omitempty" json:"std_dev,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
}

// maxAge parses the duration string; zero when unset or malformed.
func (rs RuleSpec) maxAge() time.Duration {
	if rs.MaxAge == "" {
		return 0
	}
	d, err := time.ParseDuration(rs.MaxAge)
	if err != nil {
		return 0
	}
	return d
}

// ApplyDefaults fills unset spec fields.
func (s *Spec) ApplyDefaults() {
	if s.Threshold == 0 {
		s.Threshold = DefaultThreshold
	}
}

// Validate checks the spec for unknown dimensions and malformed entries.
func (s *Spec) Validate() error {
	v := validation.New()
	v.UnitInterval("threshold", s.Threshold)
	for dim, specs := range s.Dimensions {
		if !dim.IsValid() {
			v.AddError("dimensions", fmt.Sprintf("unknown dimension %q", dim))
			continue
		}
		for i, rs := range specs {
			field := fmt.Sprintf("dimensions.%s[%d]", dim, i)
			if rs.Column == "" {
				v.AddError(field, "column is required")
			}
			if rs.MinRatio < 0 || rs.MinRatio > 1 {
				v.AddError(field, "min_ratio must be between 0 and 1")
			}
			if dim == Consistency && (rs.RefTable == "" || rs.RefColumn == "") {
				v.AddError(field, "ref_table and ref_column are required for consistency")
			}
			if dim == Timeliness && rs.maxAge() <= 0 {
				v.AddError(field, "max_age is required for timeliness and must be a valid duration")
			}
		}
	}
	return v.Validate()
}

// Rules flattens the spec into evaluatable rules, dimension by dimension in
// canonical order so rule ordering is reproducible.
func (s *Spec) Rules() []Rule {
	var rules []Rule
	for _, dim := range Dimensions() {
		for _, rs := range s.Dimensions[dim] {
			rules = append(rules, Rule{
				Name:      rs.Name,
				Dimension: dim,
				Column:    rs.Column,
				MinRatio:  rs.MinRatio,
				Min:       rs.Min,
				Max:       rs.Max,
				Pattern:   rs.Pattern,
				MaxAge:    rs.maxAge(),
				RefTable:  rs.RefTable,
				RefColumn: rs.RefColumn,
				RefMean:   rs.Mean,
				RefStdDev: rs.StdDev,
				Tolerance: rs.Tolerance,
			})
		}
	}
	return rules
}

// LoadSpec reads a rule spec document from a YAML file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSpec(data)
}

// ParseSpec parses a rule spec document from YAML bytes.
func ParseSpec(data []byte) (*Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("quality: parsing rule spec: %w", err)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
