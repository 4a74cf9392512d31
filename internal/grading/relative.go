package grading

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NotApplicable is returned for a percentile no cutoff covers. A config that
// passes ValidateRelativeConfig never produces it.
const NotApplicable = "N/A"

var ErrInvalidRelativeConfig = errors.New("invalid relative grade config")

// Letters is the grade alphabet shared by both policies, best first.
var Letters = []string{"A+", "A0", "B+", "B0", "C+", "C0", "D+", "D0", "F"}

// Cutoff maps "within the top MaxPercent of the cohort" to Grade.
type Cutoff struct {
	Grade      string  `json:"grade" yaml:"grade" mapstructure:"grade"`
	MaxPercent float64 `json:"maxPercent" yaml:"max_percent" mapstructure:"max_percent"`
}

// RelativeConfig is an ordered cutoff table, ascending by MaxPercent.
type RelativeConfig []Cutoff

// DefaultRelativeConfig is the stock fallback for subjects with no stored
// table. Callers pass it in through configuration; the classifier itself
// never falls back on its own.
var DefaultRelativeConfig = RelativeConfig{
	{Grade: "A+", MaxPercent: 5},
	{Grade: "A0", MaxPercent: 20},
	{Grade: "B+", MaxPercent: 30},
	{Grade: "B0", MaxPercent: 40},
	{Grade: "C+", MaxPercent: 50},
	{Grade: "C0", MaxPercent: 60},
	{Grade: "D+", MaxPercent: 70},
	{Grade: "D0", MaxPercent: 95},
	{Grade: "F", MaxPercent: 100},
}

// EvenRelativeConfig is the editable starting table shown to an instructor
// before any cutoffs are saved: every band is 0 except the last, which is 100.
// It does not validate until the instructor fills it in.
func EvenRelativeConfig(letters []string) RelativeConfig {
	out := make(RelativeConfig, len(letters))
	for i, g := range letters {
		out[i] = Cutoff{Grade: g}
		if i == len(letters)-1 {
			out[i].MaxPercent = 100
		}
	}
	return out
}

// ValidateRelativeConfig checks that cfg is non-empty, strictly increasing in
// MaxPercent and ends at exactly 100. It never repairs the table.
func ValidateRelativeConfig(cfg RelativeConfig) error {
	if len(cfg) == 0 {
		return fmt.Errorf("%w: no cutoffs", ErrInvalidRelativeConfig)
	}
	for i := 1; i < len(cfg); i++ {
		if !(cfg[i].MaxPercent > cfg[i-1].MaxPercent) {
			return fmt.Errorf("%w: cutoff %d (%s at %v%%) does not exceed %v%%",
				ErrInvalidRelativeConfig, i, cfg[i].Grade, cfg[i].MaxPercent, cfg[i-1].MaxPercent)
		}
	}
	if last := cfg[len(cfg)-1]; last.MaxPercent != 100 {
		return fmt.Errorf("%w: last cutoff (%s) is %v%%, want 100%%",
			ErrInvalidRelativeConfig, last.Grade, last.MaxPercent)
	}
	return nil
}

func IsValidRelativeConfig(cfg RelativeConfig) bool {
	return ValidateRelativeConfig(cfg) == nil
}

// GradeFor scans the table in order and returns the first grade whose
// MaxPercent covers percent.
func (c RelativeConfig) GradeFor(percent float64) string {
	for _, cut := range c {
		if percent <= cut.MaxPercent {
			return cut.Grade
		}
	}
	return NotApplicable
}

// ClassifyRelative grades a whole cohort by percentile rank. The result has
// the same order and length as totals. Tied totals share the best rank of
// their group, and percent = rank / n * 100.
func ClassifyRelative(totals []float64, cfg RelativeConfig) ([]string, error) {
	if err := ValidateRelativeConfig(cfg); err != nil {
		return nil, err
	}
	grades := make([]string, len(totals))
	if len(totals) == 0 {
		return grades, nil
	}
	n := float64(len(totals))
	for i, rank := range MinRanks(totals) {
		grades[i] = cfg.GradeFor(float64(rank) / n * 100)
	}
	return grades, nil
}

// MinRanks ranks values in descending order starting at 0. Equal values get
// the lowest rank of their group, so [90, 90, 80] ranks as [0, 0, 2].
func MinRanks(values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})
	ranks := make([]int, len(values))
	for pos, i := range order {
		if pos > 0 && values[i] == values[order[pos-1]] {
			ranks[i] = ranks[order[pos-1]]
			continue
		}
		ranks[i] = pos
	}
	return ranks
}

// ParseRelativeConfig reads the compact "A+:5,A0:20,...,F:100" form used by
// environment variables and CLI flags. It does not validate the result.
func ParseRelativeConfig(s string) (RelativeConfig, error) {
	var out RelativeConfig
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.LastIndexByte(part, ':')
		if i <= 0 {
			return nil, fmt.Errorf("cutoff %q: want GRADE:PERCENT", part)
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(part[i+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("cutoff %q: %w", part, err)
		}
		out = append(out, Cutoff{Grade: strings.TrimSpace(part[:i]), MaxPercent: pct})
	}
	return out, nil
}

func (c RelativeConfig) String() string {
	parts := make([]string, len(c))
	for i, cut := range c {
		parts[i] = cut.Grade + ":" + strconv.FormatFloat(cut.MaxPercent, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
