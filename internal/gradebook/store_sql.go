package gradebook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Hansol916/OSSFinal/internal/grading"
)

// queryer is satisfied by both *sql.DB and *sql.Tx. Helpers that run inside
// a transaction take one so they never reach for a second connection; the
// sqlite handle is capped at one open connection.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func subjectExists(ctx context.Context, q queryer, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("subject %d: %w", id, ErrNotFound)
	}
	return err
}

func mustAffect(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// ---- subjects ----

const subjectColumns = `s.id, s.name, s.class_number, s.grading_type, s.created_at,
	(SELECT COUNT(*) FROM subject_students ss WHERE ss.subject_id = s.id)`

func scanSubject(sc interface{ Scan(...any) error }) (Subject, error) {
	var sub Subject
	var policy string
	if err := sc.Scan(&sub.ID, &sub.Name, &sub.ClassNumber, &policy, &sub.CreatedAt, &sub.StudentCount); err != nil {
		return Subject{}, err
	}
	sub.GradingType = grading.Policy(policy)
	return sub, nil
}

func (s *SQLStore) CreateSubject(ctx context.Context, in SubjectInput) (Subject, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO subjects (name, class_number, grading_type, created_at)
		 VALUES ($1,$2,$3,$4) RETURNING id`,
		in.Name, in.ClassNumber, string(grading.PolicyAbsolute), time.Now().Unix()).Scan(&id)
	if err != nil {
		return Subject{}, err
	}
	return s.GetSubject(ctx, id)
}

func (s *SQLStore) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subjectColumns+` FROM subjects s ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Subject{}
	for rows.Next() {
		sub, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetSubject(ctx context.Context, id int64) (Subject, error) {
	sub, err := scanSubject(s.db.QueryRowContext(ctx,
		`SELECT `+subjectColumns+` FROM subjects s WHERE s.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, fmt.Errorf("subject %d: %w", id, ErrNotFound)
	}
	return sub, err
}

func (s *SQLStore) UpdateSubject(ctx context.Context, id int64, in SubjectInput) (Subject, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subjects SET name=$1, class_number=$2 WHERE id=$3`, in.Name, in.ClassNumber, id)
	if err != nil {
		return Subject{}, err
	}
	if err := mustAffect(res, fmt.Sprintf("subject %d", id)); err != nil {
		return Subject{}, err
	}
	return s.GetSubject(ctx, id)
}

func (s *SQLStore) SetGradingType(ctx context.Context, id int64, p grading.Policy) (Subject, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE subjects SET grading_type=$1 WHERE id=$2`, string(p), id)
	if err != nil {
		return Subject{}, err
	}
	if err := mustAffect(res, fmt.Sprintf("subject %d", id)); err != nil {
		return Subject{}, err
	}
	return s.GetSubject(ctx, id)
}

func (s *SQLStore) DeleteSubject(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := subjectExists(ctx, tx, id); err != nil {
			return err
		}
		for _, q := range []string{
			`DELETE FROM scores WHERE category_id IN (SELECT id FROM categories WHERE subject_id=$1)`,
			`DELETE FROM categories WHERE subject_id=$1`,
			`DELETE FROM relative_grade_configs WHERE subject_id=$1`,
			`DELETE FROM subject_students WHERE subject_id=$1`,
			`DELETE FROM subjects WHERE id=$1`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// ---- categories ----

func (s *SQLStore) ListCategories(ctx context.Context, subjectID int64) ([]Category, error) {
	if err := subjectExists(ctx, s.db, subjectID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject_id, name, max_score, weight, created_at
		 FROM categories WHERE subject_id=$1 ORDER BY created_at, id`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.SubjectID, &c.Name, &c.MaxScore, &c.Weight, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateCategory(ctx context.Context, subjectID int64, in CategoryInput) (Category, error) {
	if err := subjectExists(ctx, s.db, subjectID); err != nil {
		return Category{}, err
	}
	c := Category{SubjectID: subjectID, Name: in.Name, MaxScore: in.MaxScore, Weight: in.Weight, CreatedAt: time.Now().Unix()}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO categories (subject_id, name, max_score, weight, created_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		c.SubjectID, c.Name, c.MaxScore, c.Weight, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *SQLStore) UpdateCategory(ctx context.Context, subjectID, categoryID int64, in CategoryInput) (Category, error) {
	var c Category
	err := s.db.QueryRowContext(ctx,
		`UPDATE categories SET name=$1, max_score=$2, weight=$3
		 WHERE id=$4 AND subject_id=$5
		 RETURNING id, subject_id, name, max_score, weight, created_at`,
		in.Name, in.MaxScore, in.Weight, categoryID, subjectID).
		Scan(&c.ID, &c.SubjectID, &c.Name, &c.MaxScore, &c.Weight, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, fmt.Errorf("category %d: %w", categoryID, ErrNotFound)
	}
	return c, err
}

func (s *SQLStore) DeleteCategory(ctx context.Context, subjectID, categoryID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM categories WHERE id=$1 AND subject_id=$2`, categoryID, subjectID)
		if err != nil {
			return err
		}
		if err := mustAffect(res, fmt.Sprintf("category %d", categoryID)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM scores WHERE category_id=$1`, categoryID)
		return err
	})
}

// ---- students ----

func (s *SQLStore) ListStudents(ctx context.Context, subjectID int64) ([]Student, error) {
	if err := subjectExists(ctx, s.db, subjectID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT st.id, st.name, st.student_number, st.class_number, st.created_at
		 FROM subject_students ss JOIN students st ON st.id = ss.student_id
		 WHERE ss.subject_id=$1 ORDER BY st.id`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Student{}
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.Name, &st.StudentNumber, &st.ClassNumber, &st.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLStore) EnrollStudent(ctx context.Context, subjectID int64, in StudentInput) (Student, bool, error) {
	var st Student
	var enrolled bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := subjectExists(ctx, tx, subjectID); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx,
			`SELECT id, name, student_number, class_number, created_at
			 FROM students WHERE student_number=$1 AND class_number=$2`,
			in.StudentNumber, in.ClassNumber).
			Scan(&st.ID, &st.Name, &st.StudentNumber, &st.ClassNumber, &st.CreatedAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			st = Student{Name: in.Name, StudentNumber: in.StudentNumber, ClassNumber: in.ClassNumber, CreatedAt: time.Now().Unix()}
			if err := tx.QueryRowContext(ctx,
				`INSERT INTO students (name, student_number, class_number, created_at)
				 VALUES ($1,$2,$3,$4) RETURNING id`,
				st.Name, st.StudentNumber, st.ClassNumber, st.CreatedAt).Scan(&st.ID); err != nil {
				return err
			}
		case err != nil:
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO subject_students (subject_id, student_id) VALUES ($1,$2)
			 ON CONFLICT (subject_id, student_id) DO NOTHING`, subjectID, st.ID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		enrolled = n > 0
		return err
	})
	if err != nil {
		return Student{}, false, err
	}
	return st, enrolled, nil
}

func (s *SQLStore) UnenrollStudent(ctx context.Context, subjectID, studentID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := subjectExists(ctx, tx, subjectID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM subject_students WHERE subject_id=$1 AND student_id=$2`, subjectID, studentID)
		if err != nil {
			return err
		}
		if err := mustAffect(res, fmt.Sprintf("student %d in subject %d", studentID, subjectID)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM scores WHERE student_id=$1
			 AND category_id IN (SELECT id FROM categories WHERE subject_id=$2)`, studentID, subjectID)
		return err
	})
}

// ---- scores ----

func (s *SQLStore) UpsertScore(ctx context.Context, subjectID int64, in ScoreInput) (Score, error) {
	var sc Score
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := subjectExists(ctx, tx, subjectID); err != nil {
			return err
		}
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM categories WHERE id=$1 AND subject_id=$2`, in.CategoryID, subjectID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("category %d: %w", in.CategoryID, ErrNotFound)
		} else if err != nil {
			return err
		}
		err = tx.QueryRowContext(ctx,
			`SELECT 1 FROM subject_students WHERE subject_id=$1 AND student_id=$2`, subjectID, in.StudentID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("student %d in subject %d: %w", in.StudentID, subjectID, ErrNotFound)
		} else if err != nil {
			return err
		}

		v := toNull(in.Score)
		err = tx.QueryRowContext(ctx,
			`INSERT INTO scores (category_id, student_id, score, updated_at)
			 VALUES ($1,$2,$3,$4)
			 ON CONFLICT (category_id, student_id) DO UPDATE SET score=EXCLUDED.score, updated_at=EXCLUDED.updated_at
			 RETURNING id, category_id, student_id, score, updated_at`,
			in.CategoryID, in.StudentID, v, time.Now().Unix()).
			Scan(&sc.ID, &sc.CategoryID, &sc.StudentID, &v, &sc.UpdatedAt)
		if err != nil {
			return err
		}
		sc.Value = nullable(v)
		return nil
	})
	return sc, err
}

func toNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (s *SQLStore) ScoreMatrix(ctx context.Context, subjectID int64) ([]grading.ScoreRow, error) {
	if err := subjectExists(ctx, s.db, subjectID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT st.id, st.name, c.id, c.name, sc.score, c.max_score, c.weight
		 FROM subject_students ss
		 JOIN students st ON st.id = ss.student_id
		 JOIN categories c ON c.subject_id = ss.subject_id
		 LEFT JOIN scores sc ON sc.category_id = c.id AND sc.student_id = st.id
		 WHERE ss.subject_id=$1
		 ORDER BY st.id, c.created_at, c.id`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []grading.ScoreRow
	for rows.Next() {
		var r grading.ScoreRow
		var v sql.NullFloat64
		if err := rows.Scan(&r.StudentID, &r.StudentName, &r.CategoryID, &r.CategoryName, &v, &r.MaxScore, &r.Weight); err != nil {
			return nil, err
		}
		r.Score = nullable(v)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- relative cutoffs ----

func (s *SQLStore) RelativeConfig(ctx context.Context, subjectID int64) (grading.RelativeConfig, error) {
	if err := subjectExists(ctx, s.db, subjectID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT grade, max_percent FROM relative_grade_configs
		 WHERE subject_id=$1 ORDER BY position`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := grading.RelativeConfig{}
	for rows.Next() {
		var c grading.Cutoff
		if err := rows.Scan(&c.Grade, &c.MaxPercent); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveRelativeConfig replaces the subject's table in one transaction, so a
// reader never sees a half-written table.
func (s *SQLStore) SaveRelativeConfig(ctx context.Context, subjectID int64, cfg grading.RelativeConfig) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := subjectExists(ctx, tx, subjectID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM relative_grade_configs WHERE subject_id=$1`, subjectID); err != nil {
			return err
		}
		for i, c := range cfg {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO relative_grade_configs (subject_id, position, grade, max_percent)
				 VALUES ($1,$2,$3,$4)`, subjectID, i, c.Grade, c.MaxPercent); err != nil {
				return err
			}
		}
		return nil
	})
}

// ---- instructors ----

func (s *SQLStore) GetInstructor(ctx context.Context, username string) (Instructor, error) {
	var in Instructor
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, role, created_at FROM instructors WHERE username=$1`, username).
		Scan(&in.Username, &in.PasswordHash, &in.Role, &in.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Instructor{}, fmt.Errorf("instructor %q: %w", username, ErrNotFound)
	}
	return in, err
}

func (s *SQLStore) UpsertInstructor(ctx context.Context, in Instructor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO instructors (username, password_hash, role, created_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (username) DO UPDATE SET password_hash=EXCLUDED.password_hash, role=EXCLUDED.role`,
		in.Username, in.PasswordHash, in.Role, time.Now().Unix())
	return err
}
