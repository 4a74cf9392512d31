package grading

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidMaxScore = errors.New("max score must be positive")
	ErrInvalidScore    = errors.New("score must be a finite number")
)

// ComputeTotal reduces one student's rows to a weighted total on a 0..100
// scale, rounded to two decimals. Ungraded rows are skipped outright.
// Scores above the category maximum are not clamped.
func ComputeTotal(rows []ScoreRow) (float64, error) {
	total := 0.0
	for _, r := range rows {
		if r.Score == nil {
			continue
		}
		if !(r.MaxScore > 0) || math.IsInf(r.MaxScore, 1) {
			return 0, fmt.Errorf("category %d (%s) for student %d: %w (got %v)",
				r.CategoryID, r.CategoryName, r.StudentID, ErrInvalidMaxScore, r.MaxScore)
		}
		s := *r.Score
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return 0, fmt.Errorf("category %d (%s) for student %d: %w",
				r.CategoryID, r.CategoryName, r.StudentID, ErrInvalidScore)
		}
		total += s / r.MaxScore * r.Weight
	}
	return Round(total, 2), nil
}

// ComputeTotals runs ComputeTotal for a whole cohort, preserving order.
func ComputeTotals(cohort []StudentSheet) ([]StudentTotal, error) {
	out := make([]StudentTotal, 0, len(cohort))
	for _, st := range cohort {
		t, err := ComputeTotal(st.Rows)
		if err != nil {
			return nil, err
		}
		out = append(out, StudentTotal{StudentID: st.StudentID, StudentName: st.StudentName, Total: t})
	}
	return out, nil
}
