package gradebook

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hansol916/OSSFinal/internal/db"
	"github.com/Hansol916/OSSFinal/internal/grading"
)

func f(v float64) *float64 { return &v }

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })
	return NewSQLStore(dbh)
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(*testing.T) Store { return NewInMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, newSQLiteStore)
}

func runStoreSuite(t *testing.T, newStore func(*testing.T) Store) {
	t.Run("subjects", func(t *testing.T) { testSubjects(t, newStore(t)) })
	t.Run("categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("enrollment", func(t *testing.T) { testEnrollment(t, newStore(t)) })
	t.Run("scores", func(t *testing.T) { testScores(t, newStore(t)) })
	t.Run("cutoffs", func(t *testing.T) { testCutoffs(t, newStore(t)) })
	t.Run("instructors", func(t *testing.T) { testInstructors(t, newStore(t)) })
	t.Run("delete subject", func(t *testing.T) { testDeleteSubject(t, newStore(t)) })
}

func testSubjects(t *testing.T, s Store) {
	ctx := context.Background()
	a, err := s.CreateSubject(ctx, SubjectInput{Name: "Algorithms", ClassNumber: "01"})
	require.NoError(t, err)
	assert.Equal(t, grading.PolicyAbsolute, a.GradingType)
	b, err := s.CreateSubject(ctx, SubjectInput{Name: "Networks", ClassNumber: "02"})
	require.NoError(t, err)

	list, err := s.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID, "newest first")

	u, err := s.UpdateSubject(ctx, a.ID, SubjectInput{Name: "Algorithms II", ClassNumber: "03"})
	require.NoError(t, err)
	assert.Equal(t, "Algorithms II", u.Name)
	assert.Equal(t, "03", u.ClassNumber)

	u, err = s.SetGradingType(ctx, a.ID, grading.PolicyRelative)
	require.NoError(t, err)
	assert.Equal(t, grading.PolicyRelative, u.GradingType)

	_, err = s.GetSubject(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateSubject(ctx, 9999, SubjectInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.SetGradingType(ctx, 9999, grading.PolicyRelative)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testCategories(t *testing.T, s Store) {
	ctx := context.Background()
	sub, err := s.CreateSubject(ctx, SubjectInput{Name: "Algorithms"})
	require.NoError(t, err)

	mid, err := s.CreateCategory(ctx, sub.ID, CategoryInput{Name: "midterm", MaxScore: 100, Weight: 40})
	require.NoError(t, err)
	fin, err := s.CreateCategory(ctx, sub.ID, CategoryInput{Name: "final", MaxScore: 50, Weight: 60})
	require.NoError(t, err)

	cats, err := s.ListCategories(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, mid.ID, cats[0].ID)
	assert.Equal(t, fin.ID, cats[1].ID)

	up, err := s.UpdateCategory(ctx, sub.ID, fin.ID, CategoryInput{Name: "final exam", MaxScore: 80, Weight: 55})
	require.NoError(t, err)
	assert.Equal(t, "final exam", up.Name)
	assert.Equal(t, 80.0, up.MaxScore)

	other, err := s.CreateSubject(ctx, SubjectInput{Name: "Other"})
	require.NoError(t, err)
	_, err = s.UpdateCategory(ctx, other.ID, fin.ID, CategoryInput{Name: "x", MaxScore: 1})
	assert.ErrorIs(t, err, ErrNotFound, "category belongs to another subject")

	require.NoError(t, s.DeleteCategory(ctx, sub.ID, mid.ID))
	assert.ErrorIs(t, s.DeleteCategory(ctx, sub.ID, mid.ID), ErrNotFound)

	cats, err = s.ListCategories(ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, cats, 1)

	_, err = s.ListCategories(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.CreateCategory(ctx, 9999, CategoryInput{Name: "x", MaxScore: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func testEnrollment(t *testing.T, s Store) {
	ctx := context.Background()
	a, err := s.CreateSubject(ctx, SubjectInput{Name: "A", ClassNumber: "01"})
	require.NoError(t, err)
	b, err := s.CreateSubject(ctx, SubjectInput{Name: "B", ClassNumber: "01"})
	require.NoError(t, err)

	kim := StudentInput{Name: "Kim", StudentNumber: "2024001", ClassNumber: "01"}
	st, enrolled, err := s.EnrollStudent(ctx, a.ID, kim)
	require.NoError(t, err)
	assert.True(t, enrolled)

	again, enrolled, err := s.EnrollStudent(ctx, a.ID, kim)
	require.NoError(t, err)
	assert.False(t, enrolled)
	assert.Equal(t, st.ID, again.ID)

	// same student record is reused by another subject
	shared, enrolled, err := s.EnrollStudent(ctx, b.ID, kim)
	require.NoError(t, err)
	assert.True(t, enrolled)
	assert.Equal(t, st.ID, shared.ID)

	// same number in another class is a different student
	other, _, err := s.EnrollStudent(ctx, a.ID, StudentInput{Name: "Kim", StudentNumber: "2024001", ClassNumber: "02"})
	require.NoError(t, err)
	assert.NotEqual(t, st.ID, other.ID)

	list, err := s.ListStudents(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := s.GetSubject(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StudentCount)

	require.NoError(t, s.UnenrollStudent(ctx, a.ID, st.ID))
	assert.ErrorIs(t, s.UnenrollStudent(ctx, a.ID, st.ID), ErrNotFound)

	list, err = s.ListStudents(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1, "unenrolling from A leaves B alone")

	_, _, err = s.EnrollStudent(ctx, 9999, kim)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testScores(t *testing.T, s Store) {
	ctx := context.Background()
	sub, err := s.CreateSubject(ctx, SubjectInput{Name: "Algorithms"})
	require.NoError(t, err)
	mid, err := s.CreateCategory(ctx, sub.ID, CategoryInput{Name: "midterm", MaxScore: 100, Weight: 40})
	require.NoError(t, err)
	fin, err := s.CreateCategory(ctx, sub.ID, CategoryInput{Name: "final", MaxScore: 50, Weight: 60})
	require.NoError(t, err)
	kim, _, err := s.EnrollStudent(ctx, sub.ID, StudentInput{Name: "Kim", StudentNumber: "1"})
	require.NoError(t, err)
	lee, _, err := s.EnrollStudent(ctx, sub.ID, StudentInput{Name: "Lee", StudentNumber: "2"})
	require.NoError(t, err)

	first, err := s.UpsertScore(ctx, sub.ID, ScoreInput{StudentID: kim.ID, CategoryID: mid.ID, Score: f(70)})
	require.NoError(t, err)
	second, err := s.UpsertScore(ctx, sub.ID, ScoreInput{StudentID: kim.ID, CategoryID: mid.ID, Score: f(80)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "upsert keys on (category, student)")
	require.NotNil(t, second.Value)
	assert.Equal(t, 80.0, *second.Value)

	_, err = s.UpsertScore(ctx, sub.ID, ScoreInput{StudentID: kim.ID, CategoryID: fin.ID, Score: f(40)})
	require.NoError(t, err)
	cleared, err := s.UpsertScore(ctx, sub.ID, ScoreInput{StudentID: lee.ID, CategoryID: fin.ID, Score: nil})
	require.NoError(t, err)
	assert.Nil(t, cleared.Value)

	rows, err := s.ScoreMatrix(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, rows, 4, "every student x category")
	assert.Equal(t, kim.ID, rows[0].StudentID)
	assert.Equal(t, mid.ID, rows[0].CategoryID)
	assert.Equal(t, "midterm", rows[0].CategoryName)
	assert.Equal(t, 80.0, *rows[0].Score)
	assert.Equal(t, 40.0, *rows[1].Score)
	assert.Equal(t, lee.ID, rows[2].StudentID)
	assert.Nil(t, rows[2].Score)
	assert.Nil(t, rows[3].Score)
	assert.Equal(t, 50.0, rows[3].MaxScore)
	assert.Equal(t, 60.0, rows[3].Weight)

	total, err := grading.ComputeTotal(grading.GroupByStudent(rows)[0].Rows)
	require.NoError(t, err)
	assert.Equal(t, 80.0, total)

	// the cell must belong to this subject
	other, err := s.CreateSubject(ctx, SubjectInput{Name: "Other"})
	require.NoError(t, err)
	_, err = s.UpsertScore(ctx, other.ID, ScoreInput{StudentID: kim.ID, CategoryID: mid.ID, Score: f(1)})
	assert.ErrorIs(t, err, ErrNotFound)
	outsider, _, err := s.EnrollStudent(ctx, other.ID, StudentInput{Name: "Park", StudentNumber: "3"})
	require.NoError(t, err)
	_, err = s.UpsertScore(ctx, sub.ID, ScoreInput{StudentID: outsider.ID, CategoryID: mid.ID, Score: f(1)})
	assert.ErrorIs(t, err, ErrNotFound)

	// unenrolling drops the student's cells
	require.NoError(t, s.UnenrollStudent(ctx, sub.ID, kim.ID))
	rows, err = s.ScoreMatrix(ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func testCutoffs(t *testing.T, s Store) {
	ctx := context.Background()
	sub, err := s.CreateSubject(ctx, SubjectInput{Name: "Algorithms"})
	require.NoError(t, err)

	cfg, err := s.RelativeConfig(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, cfg)

	require.NoError(t, s.SaveRelativeConfig(ctx, sub.ID, grading.DefaultRelativeConfig))
	cfg, err = s.RelativeConfig(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, grading.DefaultRelativeConfig, cfg)

	short := grading.RelativeConfig{{Grade: "P", MaxPercent: 60}, {Grade: "F", MaxPercent: 100}}
	require.NoError(t, s.SaveRelativeConfig(ctx, sub.ID, short))
	cfg, err = s.RelativeConfig(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, short, cfg, "save replaces the whole table")

	assert.ErrorIs(t, s.SaveRelativeConfig(ctx, 9999, short), ErrNotFound)
}

func testInstructors(t *testing.T, s Store) {
	ctx := context.Background()
	_, err := s.GetInstructor(ctx, "prof")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertInstructor(ctx, Instructor{Username: "prof", PasswordHash: "h1", Role: "instructor"}))
	require.NoError(t, s.UpsertInstructor(ctx, Instructor{Username: "prof", PasswordHash: "h2", Role: "admin"}))
	in, err := s.GetInstructor(ctx, "prof")
	require.NoError(t, err)
	assert.Equal(t, "h2", in.PasswordHash)
	assert.Equal(t, "admin", in.Role)
}

func testDeleteSubject(t *testing.T, s Store) {
	ctx := context.Background()
	sub, err := s.CreateSubject(ctx, SubjectInput{Name: "Algorithms"})
	require.NoError(t, err)
	c, err := s.CreateCategory(ctx, sub.ID, CategoryInput{Name: "hw", MaxScore: 10, Weight: 100})
	require.NoError(t, err)
	st, _, err := s.EnrollStudent(ctx, sub.ID, StudentInput{Name: "Kim", StudentNumber: "1"})
	require.NoError(t, err)
	_, err = s.UpsertScore(ctx, sub.ID, ScoreInput{StudentID: st.ID, CategoryID: c.ID, Score: f(9)})
	require.NoError(t, err)
	require.NoError(t, s.SaveRelativeConfig(ctx, sub.ID, grading.DefaultRelativeConfig))

	require.NoError(t, s.DeleteSubject(ctx, sub.ID))
	_, err = s.GetSubject(ctx, sub.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteSubject(ctx, sub.ID), ErrNotFound)

	// the student record outlives the subject
	again, err := s.CreateSubject(ctx, SubjectInput{Name: "Again"})
	require.NoError(t, err)
	same, enrolled, err := s.EnrollStudent(ctx, again.ID, StudentInput{Name: "Kim", StudentNumber: "1"})
	require.NoError(t, err)
	assert.True(t, enrolled)
	assert.Equal(t, st.ID, same.ID)
}
