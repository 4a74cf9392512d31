package grading

import (
	"fmt"
	"math"
	"strconv"
)

const weightTolerance = 1e-9

// WeightSum summarises a subject's category weights.
type WeightSum struct {
	Total    float64 `json:"total"`
	Balanced bool    `json:"balanced"`
}

// ComputeWeightSum adds up category weights. An unbalanced sum is only
// reported; the categories stay usable.
func ComputeWeightSum(categories []Category) WeightSum {
	total := 0.0
	for _, c := range categories {
		total += c.Weight
	}
	return WeightSum{Total: total, Balanced: math.Abs(total-100) < weightTolerance}
}

// Warning is the message shown next to an unbalanced category list, or ""
// when the weights add up to 100.
func (w WeightSum) Warning() string {
	if w.Balanced {
		return ""
	}
	return fmt.Sprintf("category weights add up to %s%%, not 100%%",
		strconv.FormatFloat(Round(w.Total, 4), 'f', -1, 64))
}
