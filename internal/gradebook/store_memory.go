package gradebook

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Hansol916/OSSFinal/internal/grading"
)

type cell struct{ category, student int64 }

type memoryStore struct {
	mu sync.RWMutex

	nextID      int64
	subjects    map[int64]Subject
	categories  map[int64]Category
	students    map[int64]Student
	enrollments map[int64]map[int64]bool // subject -> student set
	scores      map[cell]Score
	cutoffs     map[int64]grading.RelativeConfig
	instructors map[string]Instructor
}

// NewInMemoryStore returns a Store that lives only as long as the process.
// Used by tests and by `compute` runs that never touch a database.
func NewInMemoryStore() Store {
	return &memoryStore{
		subjects:    map[int64]Subject{},
		categories:  map[int64]Category{},
		students:    map[int64]Student{},
		enrollments: map[int64]map[int64]bool{},
		scores:      map[cell]Score{},
		cutoffs:     map[int64]grading.RelativeConfig{},
		instructors: map[string]Instructor{},
	}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) subject(id int64) (Subject, error) {
	s, ok := m.subjects[id]
	if !ok {
		return Subject{}, fmt.Errorf("subject %d: %w", id, ErrNotFound)
	}
	s.StudentCount = len(m.enrollments[id])
	return s, nil
}

func (m *memoryStore) CreateSubject(_ context.Context, in SubjectInput) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Subject{
		ID:          m.id(),
		Name:        in.Name,
		ClassNumber: in.ClassNumber,
		GradingType: grading.PolicyAbsolute,
		CreatedAt:   time.Now().Unix(),
	}
	m.subjects[s.ID] = s
	m.enrollments[s.ID] = map[int64]bool{}
	return s, nil
}

func (m *memoryStore) ListSubjects(_ context.Context) ([]Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Subject, 0, len(m.subjects))
	for id := range m.subjects {
		s, _ := m.subject(id)
		out = append(out, s)
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryStore) GetSubject(_ context.Context, id int64) (Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subject(id)
}

func (m *memoryStore) UpdateSubject(_ context.Context, id int64, in SubjectInput) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.subject(id)
	if err != nil {
		return Subject{}, err
	}
	s.Name, s.ClassNumber = in.Name, in.ClassNumber
	m.subjects[id] = s
	return s, nil
}

func (m *memoryStore) SetGradingType(_ context.Context, id int64, p grading.Policy) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.subject(id)
	if err != nil {
		return Subject{}, err
	}
	s.GradingType = p
	m.subjects[id] = s
	return s, nil
}

func (m *memoryStore) DeleteSubject(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.subject(id); err != nil {
		return err
	}
	for cid, c := range m.categories {
		if c.SubjectID == id {
			m.dropCategory(cid)
		}
	}
	delete(m.subjects, id)
	delete(m.enrollments, id)
	delete(m.cutoffs, id)
	return nil
}

func (m *memoryStore) dropCategory(id int64) {
	delete(m.categories, id)
	for k := range m.scores {
		if k.category == id {
			delete(m.scores, k)
		}
	}
}

func (m *memoryStore) ListCategories(_ context.Context, subjectID int64) ([]Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, err := m.subject(subjectID); err != nil {
		return nil, err
	}
	return m.categoriesOf(subjectID), nil
}

func (m *memoryStore) categoriesOf(subjectID int64) []Category {
	out := []Category{}
	for _, c := range m.categories {
		if c.SubjectID == subjectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryStore) category(subjectID, id int64) (Category, error) {
	c, ok := m.categories[id]
	if !ok || c.SubjectID != subjectID {
		return Category{}, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return c, nil
}

func (m *memoryStore) CreateCategory(_ context.Context, subjectID int64, in CategoryInput) (Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.subject(subjectID); err != nil {
		return Category{}, err
	}
	c := Category{
		ID:        m.id(),
		SubjectID: subjectID,
		Name:      in.Name,
		MaxScore:  in.MaxScore,
		Weight:    in.Weight,
		CreatedAt: time.Now().Unix(),
	}
	m.categories[c.ID] = c
	return c, nil
}

func (m *memoryStore) UpdateCategory(_ context.Context, subjectID, categoryID int64, in CategoryInput) (Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.category(subjectID, categoryID)
	if err != nil {
		return Category{}, err
	}
	c.Name, c.MaxScore, c.Weight = in.Name, in.MaxScore, in.Weight
	m.categories[c.ID] = c
	return c, nil
}

func (m *memoryStore) DeleteCategory(_ context.Context, subjectID, categoryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.category(subjectID, categoryID); err != nil {
		return err
	}
	m.dropCategory(categoryID)
	return nil
}

func (m *memoryStore) ListStudents(_ context.Context, subjectID int64) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, err := m.subject(subjectID); err != nil {
		return nil, err
	}
	return m.enrolled(subjectID), nil
}

func (m *memoryStore) enrolled(subjectID int64) []Student {
	out := []Student{}
	for sid := range m.enrollments[subjectID] {
		out = append(out, m.students[sid])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryStore) EnrollStudent(_ context.Context, subjectID int64, in StudentInput) (Student, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.subject(subjectID); err != nil {
		return Student{}, false, err
	}
	var st Student
	found := false
	for _, s := range m.students {
		if s.StudentNumber == in.StudentNumber && s.ClassNumber == in.ClassNumber {
			st, found = s, true
			break
		}
	}
	if !found {
		st = Student{
			ID:            m.id(),
			Name:          in.Name,
			StudentNumber: in.StudentNumber,
			ClassNumber:   in.ClassNumber,
			CreatedAt:     time.Now().Unix(),
		}
		m.students[st.ID] = st
	}
	if m.enrollments[subjectID][st.ID] {
		return st, false, nil
	}
	m.enrollments[subjectID][st.ID] = true
	return st, true, nil
}

func (m *memoryStore) UnenrollStudent(_ context.Context, subjectID, studentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.subject(subjectID); err != nil {
		return err
	}
	if !m.enrollments[subjectID][studentID] {
		return fmt.Errorf("student %d in subject %d: %w", studentID, subjectID, ErrNotFound)
	}
	delete(m.enrollments[subjectID], studentID)
	for _, c := range m.categoriesOf(subjectID) {
		delete(m.scores, cell{c.ID, studentID})
	}
	return nil
}

func (m *memoryStore) UpsertScore(_ context.Context, subjectID int64, in ScoreInput) (Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.subject(subjectID); err != nil {
		return Score{}, err
	}
	if _, err := m.category(subjectID, in.CategoryID); err != nil {
		return Score{}, err
	}
	if !m.enrollments[subjectID][in.StudentID] {
		return Score{}, fmt.Errorf("student %d in subject %d: %w", in.StudentID, subjectID, ErrNotFound)
	}
	k := cell{in.CategoryID, in.StudentID}
	sc, ok := m.scores[k]
	if !ok {
		sc = Score{ID: m.id(), CategoryID: in.CategoryID, StudentID: in.StudentID}
	}
	sc.Value = copyScore(in.Score)
	sc.UpdatedAt = time.Now().Unix()
	m.scores[k] = sc
	return sc, nil
}

func copyScore(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (m *memoryStore) ScoreMatrix(_ context.Context, subjectID int64) ([]grading.ScoreRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, err := m.subject(subjectID); err != nil {
		return nil, err
	}
	cats := m.categoriesOf(subjectID)
	var rows []grading.ScoreRow
	for _, st := range m.enrolled(subjectID) {
		for _, c := range cats {
			rows = append(rows, grading.ScoreRow{
				StudentID:    st.ID,
				StudentName:  st.Name,
				CategoryID:   c.ID,
				CategoryName: c.Name,
				Score:        copyScore(m.scores[cell{c.ID, st.ID}].Value),
				MaxScore:     c.MaxScore,
				Weight:       c.Weight,
			})
		}
	}
	return rows, nil
}

func (m *memoryStore) RelativeConfig(_ context.Context, subjectID int64) (grading.RelativeConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, err := m.subject(subjectID); err != nil {
		return nil, err
	}
	return append(grading.RelativeConfig{}, m.cutoffs[subjectID]...), nil
}

func (m *memoryStore) SaveRelativeConfig(_ context.Context, subjectID int64, cfg grading.RelativeConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.subject(subjectID); err != nil {
		return err
	}
	m.cutoffs[subjectID] = append(grading.RelativeConfig{}, cfg...)
	return nil
}

func (m *memoryStore) GetInstructor(_ context.Context, username string) (Instructor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.instructors[username]
	if !ok {
		return Instructor{}, fmt.Errorf("instructor %q: %w", username, ErrNotFound)
	}
	return in, nil
}

func (m *memoryStore) UpsertInstructor(_ context.Context, in Instructor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.instructors[in.Username]; ok {
		in.CreatedAt = old.CreatedAt
	} else {
		in.CreatedAt = time.Now().Unix()
	}
	m.instructors[in.Username] = in
	return nil
}
