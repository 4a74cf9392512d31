package grading

// Threshold awards Grade to any total >= Min.
type Threshold struct {
	Min   float64 `json:"min" yaml:"min"`
	Grade string  `json:"grade" yaml:"grade"`
}

// AbsoluteScale is a fixed cutoff table, thresholds in descending order.
type AbsoluteScale struct {
	Thresholds []Threshold
	Fallback   string
}

// DefaultAbsoluteScale is the canonical table. It uses the same nine letters
// as the relative cutoff table; there are no minus grades.
var DefaultAbsoluteScale = AbsoluteScale{
	Thresholds: []Threshold{
		{Min: 95, Grade: "A+"},
		{Min: 90, Grade: "A0"},
		{Min: 85, Grade: "B+"},
		{Min: 80, Grade: "B0"},
		{Min: 75, Grade: "C+"},
		{Min: 70, Grade: "C0"},
		{Min: 65, Grade: "D+"},
		{Min: 60, Grade: "D0"},
	},
	Fallback: "F",
}

// Classify returns the first grade whose threshold is <= total.
// Totals outside 0..100 go through the same scan.
func (s AbsoluteScale) Classify(total float64) string {
	for _, t := range s.Thresholds {
		if total >= t.Min {
			return t.Grade
		}
	}
	return s.Fallback
}

func ClassifyAbsolute(total float64) string {
	return DefaultAbsoluteScale.Classify(total)
}
