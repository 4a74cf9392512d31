package grading

// ComputeCategoryAverages returns the class mean of every category, rounded
// to one decimal. Ungraded cells count as 0. A category maps to nil only when
// the cohort is empty.
func ComputeCategoryAverages(categories []Category, cohort []StudentSheet) map[int64]*float64 {
	out := make(map[int64]*float64, len(categories))
	for _, c := range categories {
		if len(cohort) == 0 {
			out[c.ID] = nil
			continue
		}
		sum := 0.0
		for _, st := range cohort {
			if s, ok := st.score(c.ID); ok {
				sum += s
			}
		}
		avg := Round(sum/float64(len(cohort)), 1)
		out[c.ID] = &avg
	}
	return out
}
