package grading

// Category is the engine's view of a weighted grade component.
// Weight is a percentage share of the final grade (0..100).
type Category struct {
	ID       int64   `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	MaxScore float64 `json:"max_score" yaml:"max_score"`
	Weight   float64 `json:"weight" yaml:"weight"`
}

// ScoreRow is one (student, category) cell of a subject's score matrix.
// A nil Score means the cell is ungraded.
type ScoreRow struct {
	StudentID    int64    `json:"student_id" yaml:"student_id"`
	StudentName  string   `json:"student_name" yaml:"student_name"`
	CategoryID   int64    `json:"category_id" yaml:"category_id"`
	CategoryName string   `json:"category_name" yaml:"category_name"`
	Score        *float64 `json:"score" yaml:"score"`
	MaxScore     float64  `json:"max_score" yaml:"max_score"`
	Weight       float64  `json:"weight" yaml:"weight"`
}

// StudentSheet holds every row of the matrix that belongs to one student.
type StudentSheet struct {
	StudentID   int64
	StudentName string
	Rows        []ScoreRow
}

func (s StudentSheet) score(categoryID int64) (float64, bool) {
	for _, r := range s.Rows {
		if r.CategoryID == categoryID && r.Score != nil {
			return *r.Score, true
		}
	}
	return 0, false
}

type StudentTotal struct {
	StudentID   int64   `json:"student_id"`
	StudentName string  `json:"student_name"`
	Total       float64 `json:"total"`
}

// GradeResult is the per-student output of a grading run.
type GradeResult struct {
	StudentID   int64   `json:"student_id"`
	StudentName string  `json:"student_name"`
	Total       float64 `json:"total"`
	Grade       string  `json:"grade"`
}

// GroupByStudent splits a score matrix into per-student sheets, keeping the
// order in which students first appear.
func GroupByStudent(rows []ScoreRow) []StudentSheet {
	index := map[int64]int{}
	var out []StudentSheet
	for _, r := range rows {
		i, ok := index[r.StudentID]
		if !ok {
			i = len(out)
			index[r.StudentID] = i
			out = append(out, StudentSheet{StudentID: r.StudentID, StudentName: r.StudentName})
		}
		out[i].Rows = append(out[i].Rows, r)
	}
	return out
}
