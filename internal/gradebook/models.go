package gradebook

import "github.com/Hansol916/OSSFinal/internal/grading"

type Subject struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	ClassNumber  string         `json:"class_number"`
	GradingType  grading.Policy `json:"grading_type"`
	StudentCount int            `json:"student_count"`
	CreatedAt    int64          `json:"created_at"`
}

// Category is a weighted grade component owned by one subject.
type Category struct {
	ID        int64   `json:"id"`
	SubjectID int64   `json:"subject_id"`
	Name      string  `json:"name"`
	MaxScore  float64 `json:"max_score"`
	Weight    float64 `json:"weight"`
	CreatedAt int64   `json:"created_at"`
}

func (c Category) engine() grading.Category {
	return grading.Category{ID: c.ID, Name: c.Name, MaxScore: c.MaxScore, Weight: c.Weight}
}

// Student records are shared between subjects; (StudentNumber, ClassNumber)
// identifies one.
type Student struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	StudentNumber string `json:"student_number"`
	ClassNumber   string `json:"class_number"`
	CreatedAt     int64  `json:"created_at"`
}

// Score is one stored cell. A nil Value means the cell was cleared.
type Score struct {
	ID         int64    `json:"id"`
	CategoryID int64    `json:"category_id"`
	StudentID  int64    `json:"student_id"`
	Value      *float64 `json:"score"`
	UpdatedAt  int64    `json:"updated_at"`
}

type Instructor struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	CreatedAt    int64  `json:"created_at"`
}
