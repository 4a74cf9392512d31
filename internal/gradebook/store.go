package gradebook

import (
	"context"

	"github.com/Hansol916/OSSFinal/internal/grading"
)

// Store persists the gradebook. Every subject-scoped call returns
// ErrNotFound when the subject does not exist. Inputs are validated by the
// caller.
type Store interface {
	CreateSubject(ctx context.Context, in SubjectInput) (Subject, error)
	ListSubjects(ctx context.Context) ([]Subject, error)
	GetSubject(ctx context.Context, id int64) (Subject, error)
	UpdateSubject(ctx context.Context, id int64, in SubjectInput) (Subject, error)
	SetGradingType(ctx context.Context, id int64, p grading.Policy) (Subject, error)
	DeleteSubject(ctx context.Context, id int64) error

	ListCategories(ctx context.Context, subjectID int64) ([]Category, error)
	CreateCategory(ctx context.Context, subjectID int64, in CategoryInput) (Category, error)
	UpdateCategory(ctx context.Context, subjectID, categoryID int64, in CategoryInput) (Category, error)
	DeleteCategory(ctx context.Context, subjectID, categoryID int64) error

	ListStudents(ctx context.Context, subjectID int64) ([]Student, error)
	// EnrollStudent reuses the student with the same number and class, or
	// creates one, then links it to the subject. enrolled is false when the
	// link already existed.
	EnrollStudent(ctx context.Context, subjectID int64, in StudentInput) (st Student, enrolled bool, err error)
	UnenrollStudent(ctx context.Context, subjectID, studentID int64) error

	UpsertScore(ctx context.Context, subjectID int64, in ScoreInput) (Score, error)
	// ScoreMatrix returns one row per (enrolled student, category), students
	// by id and categories by creation, with a nil Score for ungraded cells.
	ScoreMatrix(ctx context.Context, subjectID int64) ([]grading.ScoreRow, error)

	// RelativeConfig returns the stored cutoff table, empty when none is saved.
	RelativeConfig(ctx context.Context, subjectID int64) (grading.RelativeConfig, error)
	SaveRelativeConfig(ctx context.Context, subjectID int64, cfg grading.RelativeConfig) error

	GetInstructor(ctx context.Context, username string) (Instructor, error)
	UpsertInstructor(ctx context.Context, in Instructor) error
}
