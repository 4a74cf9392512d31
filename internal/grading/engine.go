package grading

import (
	"fmt"
	"strings"
)

// Policy selects how totals become letter grades.
type Policy string

const (
	PolicyAbsolute Policy = "absolute"
	PolicyRelative Policy = "relative"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAbsolute, PolicyRelative:
		return p, nil
	default:
		return "", fmt.Errorf("unknown grading policy %q (want absolute or relative)", s)
	}
}

// Classifier turns a whole cohort's totals into grades, index for index.
type Classifier interface {
	Classify(totals []float64) ([]string, error)
}

type absoluteClassifier struct{ scale AbsoluteScale }

func (c absoluteClassifier) Classify(totals []float64) ([]string, error) {
	out := make([]string, len(totals))
	for i, t := range totals {
		out[i] = c.scale.Classify(t)
	}
	return out, nil
}

type relativeClassifier struct{ cfg RelativeConfig }

func (c relativeClassifier) Classify(totals []float64) ([]string, error) {
	return ClassifyRelative(totals, c.cfg)
}

// Engine options

type Option func(*config)

type config struct {
	Scale    AbsoluteScale
	Relative RelativeConfig
}

func WithAbsoluteScale(s AbsoluteScale) Option   { return func(c *config) { c.Scale = s } }
func WithRelativeConfig(r RelativeConfig) Option { return func(c *config) { c.Relative = r } }

// NewClassifier builds the classifier for policy. A relative classifier
// requires WithRelativeConfig with a table that passes validation.
func NewClassifier(policy Policy, opts ...Option) (Classifier, error) {
	cfg := &config{Scale: DefaultAbsoluteScale}
	for _, o := range opts {
		o(cfg)
	}
	switch policy {
	case PolicyAbsolute:
		return absoluteClassifier{scale: cfg.Scale}, nil
	case PolicyRelative:
		if err := ValidateRelativeConfig(cfg.Relative); err != nil {
			return nil, err
		}
		return relativeClassifier{cfg: cfg.Relative}, nil
	default:
		return nil, fmt.Errorf("unknown grading policy %q", policy)
	}
}

// Grade computes every total in the cohort before classifying any of them;
// relative ranking needs the full set at once.
func Grade(cohort []StudentSheet, c Classifier) ([]GradeResult, error) {
	totals, err := ComputeTotals(cohort)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(totals))
	for i, t := range totals {
		values[i] = t.Total
	}
	grades, err := c.Classify(values)
	if err != nil {
		return nil, err
	}
	out := make([]GradeResult, len(totals))
	for i, t := range totals {
		out[i] = GradeResult{StudentID: t.StudentID, StudentName: t.StudentName, Total: t.Total, Grade: grades[i]}
	}
	return out, nil
}
