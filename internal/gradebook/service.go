package gradebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Hansol916/OSSFinal/internal/grading"
)

// Audit event types.
const (
	EventScoreUpserted        = "ScoreUpserted"
	EventRelativeCutoffsSaved = "RelativeCutoffsSaved"
	EventGradesRecomputed     = "GradesRecomputed"
)

// Notifier receives audit events. key is the subject id.
type Notifier interface {
	Emit(ctx context.Context, typ, key string, payload any) error
}

// Observer is told about every grading run and score write.
type Observer interface {
	ObserveRecompute(policy grading.Policy, students int, elapsed time.Duration, err error)
	ObserveScoreWrite()
}

type Service struct {
	Store Store

	defaultRelative grading.RelativeConfig
	notifier        Notifier
	observer        Observer
	log             *slog.Logger
}

type ServiceOption func(*Service)

// WithDefaultRelative sets the table used by relative subjects that never
// saved their own.
func WithDefaultRelative(cfg grading.RelativeConfig) ServiceOption {
	return func(s *Service) { s.defaultRelative = cfg }
}
func WithNotifier(n Notifier) ServiceOption { return func(s *Service) { s.notifier = n } }
func WithObserver(o Observer) ServiceOption { return func(s *Service) { s.observer = o } }
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{Store: store, defaultRelative: grading.DefaultRelativeConfig, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) emit(ctx context.Context, typ string, subjectID int64, payload any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Emit(ctx, typ, strconv.FormatInt(subjectID, 10), payload); err != nil {
		s.log.WarnContext(ctx, "audit event dropped", "type", typ, "subject_id", subjectID, "err", err)
	}
}

// ---- subjects ----

func (s *Service) CreateSubject(ctx context.Context, in SubjectInput) (Subject, error) {
	if err := in.Validate(); err != nil {
		return Subject{}, err
	}
	return s.Store.CreateSubject(ctx, in)
}

func (s *Service) UpdateSubject(ctx context.Context, id int64, in SubjectInput) (Subject, error) {
	if err := in.Validate(); err != nil {
		return Subject{}, err
	}
	return s.Store.UpdateSubject(ctx, id, in)
}

func (s *Service) UpdateSettings(ctx context.Context, id int64, in SettingsInput) (Subject, error) {
	p, err := in.Policy()
	if err != nil {
		return Subject{}, err
	}
	return s.Store.SetGradingType(ctx, id, p)
}

// ---- categories ----

// CategorySummary is a subject's category list with its weight check.
// An unbalanced sum only produces Warning.
type CategorySummary struct {
	Categories []Category        `json:"categories"`
	Weights    grading.WeightSum `json:"weights"`
	Warning    string            `json:"warning,omitempty"`
}

func summarize(cats []Category) CategorySummary {
	ec := make([]grading.Category, len(cats))
	for i, c := range cats {
		ec[i] = c.engine()
	}
	w := grading.ComputeWeightSum(ec)
	return CategorySummary{Categories: cats, Weights: w, Warning: w.Warning()}
}

func (s *Service) Categories(ctx context.Context, subjectID int64) (CategorySummary, error) {
	cats, err := s.Store.ListCategories(ctx, subjectID)
	if err != nil {
		return CategorySummary{}, err
	}
	return summarize(cats), nil
}

func (s *Service) AddCategory(ctx context.Context, subjectID int64, in CategoryInput) (CategorySummary, error) {
	if err := in.Validate(); err != nil {
		return CategorySummary{}, err
	}
	if _, err := s.Store.CreateCategory(ctx, subjectID, in); err != nil {
		return CategorySummary{}, err
	}
	return s.Categories(ctx, subjectID)
}

func (s *Service) EditCategory(ctx context.Context, subjectID, categoryID int64, in CategoryInput) (CategorySummary, error) {
	if err := in.Validate(); err != nil {
		return CategorySummary{}, err
	}
	if _, err := s.Store.UpdateCategory(ctx, subjectID, categoryID, in); err != nil {
		return CategorySummary{}, err
	}
	return s.Categories(ctx, subjectID)
}

func (s *Service) RemoveCategory(ctx context.Context, subjectID, categoryID int64) (CategorySummary, error) {
	if err := s.Store.DeleteCategory(ctx, subjectID, categoryID); err != nil {
		return CategorySummary{}, err
	}
	return s.Categories(ctx, subjectID)
}

// ---- students ----

func (s *Service) Enroll(ctx context.Context, subjectID int64, in StudentInput) (Student, error) {
	sub, err := s.Store.GetSubject(ctx, subjectID)
	if err != nil {
		return Student{}, err
	}
	if err := in.Validate(); err != nil {
		return Student{}, err
	}
	if in.ClassNumber == "" {
		in.ClassNumber = sub.ClassNumber
	}
	st, _, err := s.Store.EnrollStudent(ctx, subjectID, in)
	return st, err
}

type BulkResult struct {
	Added    int       `json:"added"`
	Skipped  int       `json:"skipped"`
	Students []Student `json:"students"`
}

// BulkEnroll validates every row before writing any of them. Students that
// were already enrolled are counted as skipped.
func (s *Service) BulkEnroll(ctx context.Context, subjectID int64, ins []StudentInput) (BulkResult, error) {
	sub, err := s.Store.GetSubject(ctx, subjectID)
	if err != nil {
		return BulkResult{}, err
	}
	for i := range ins {
		if err := ins[i].Validate(); err != nil {
			return BulkResult{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		if ins[i].ClassNumber == "" {
			ins[i].ClassNumber = sub.ClassNumber
		}
	}
	res := BulkResult{Students: []Student{}}
	for _, in := range ins {
		st, enrolled, err := s.Store.EnrollStudent(ctx, subjectID, in)
		if err != nil {
			return res, err
		}
		if !enrolled {
			res.Skipped++
			continue
		}
		res.Added++
		res.Students = append(res.Students, st)
	}
	s.log.InfoContext(ctx, "bulk enrollment", "subject_id", subjectID, "added", res.Added, "skipped", res.Skipped)
	return res, nil
}

// ---- scores ----

type ScoreUpdate struct {
	Score  Score                 `json:"score"`
	Grades []grading.GradeResult `json:"grades"`
	// Warning is set when the score was saved but the subject could not be
	// graded (bad cutoff table or category data); Grades is then empty.
	Warning string `json:"warning,omitempty"`
}

// gradingFailure reports errors that come from the subject's grading setup
// rather than from the store.
func gradingFailure(err error) bool {
	return errors.Is(err, grading.ErrInvalidRelativeConfig) ||
		errors.Is(err, grading.ErrInvalidMaxScore) ||
		errors.Is(err, grading.ErrInvalidScore)
}

// SaveScore writes one cell and returns the subject's freshly computed
// grades. A grading failure after the write is reported in Warning.
func (s *Service) SaveScore(ctx context.Context, subjectID int64, in ScoreInput) (ScoreUpdate, error) {
	if err := in.Validate(); err != nil {
		return ScoreUpdate{}, err
	}
	sc, err := s.Store.UpsertScore(ctx, subjectID, in)
	if err != nil {
		return ScoreUpdate{}, err
	}
	if s.observer != nil {
		s.observer.ObserveScoreWrite()
	}
	s.emit(ctx, EventScoreUpserted, subjectID, sc)

	grades, err := s.RecomputeGrades(ctx, subjectID)
	switch {
	case gradingFailure(err):
		return ScoreUpdate{Score: sc, Grades: []grading.GradeResult{}, Warning: err.Error()}, nil
	case err != nil:
		return ScoreUpdate{Score: sc}, err
	}
	return ScoreUpdate{Score: sc, Grades: grades}, nil
}

// ---- relative cutoffs ----

type CutoffTable struct {
	Cutoffs grading.RelativeConfig `json:"cutoffs"`
	Stored  bool                   `json:"stored"`
}

// Cutoffs returns the subject's saved table, or the even starting table for
// the instructor to fill in.
func (s *Service) Cutoffs(ctx context.Context, subjectID int64) (CutoffTable, error) {
	cfg, err := s.Store.RelativeConfig(ctx, subjectID)
	if err != nil {
		return CutoffTable{}, err
	}
	if len(cfg) == 0 {
		return CutoffTable{Cutoffs: grading.EvenRelativeConfig(grading.Letters)}, nil
	}
	return CutoffTable{Cutoffs: cfg, Stored: true}, nil
}

func (s *Service) SaveCutoffs(ctx context.Context, subjectID int64, cfg grading.RelativeConfig) error {
	if err := grading.ValidateRelativeConfig(cfg); err != nil {
		return err
	}
	if err := s.Store.SaveRelativeConfig(ctx, subjectID, cfg); err != nil {
		return err
	}
	s.emit(ctx, EventRelativeCutoffsSaved, subjectID, cfg)
	return nil
}

// ---- grades ----

func (s *Service) classifier(ctx context.Context, sub Subject) (grading.Classifier, error) {
	if sub.GradingType != grading.PolicyRelative {
		return grading.NewClassifier(grading.PolicyAbsolute)
	}
	cfg, err := s.Store.RelativeConfig(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if len(cfg) == 0 {
		cfg = s.defaultRelative
	}
	return grading.NewClassifier(grading.PolicyRelative, grading.WithRelativeConfig(cfg))
}

// cohort pairs every enrolled student with their matrix rows, so students
// in a subject without categories still get a (zero) total.
func cohort(students []Student, rows []grading.ScoreRow) []grading.StudentSheet {
	byID := map[int64]grading.StudentSheet{}
	for _, sh := range grading.GroupByStudent(rows) {
		byID[sh.StudentID] = sh
	}
	out := make([]grading.StudentSheet, len(students))
	for i, st := range students {
		sh, ok := byID[st.ID]
		if !ok {
			sh = grading.StudentSheet{StudentID: st.ID, StudentName: st.Name}
		}
		out[i] = sh
	}
	return out
}

func (s *Service) grade(ctx context.Context, sub Subject) ([]grading.GradeResult, []grading.StudentSheet, error) {
	start := time.Now()
	students, err := s.Store.ListStudents(ctx, sub.ID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.Store.ScoreMatrix(ctx, sub.ID)
	if err != nil {
		return nil, nil, err
	}
	sheets := cohort(students, rows)

	results, err := s.classify(ctx, sub, sheets)
	if s.observer != nil {
		s.observer.ObserveRecompute(sub.GradingType, len(sheets), time.Since(start), err)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("grade subject %d: %w", sub.ID, err)
	}
	return results, sheets, nil
}

func (s *Service) classify(ctx context.Context, sub Subject, sheets []grading.StudentSheet) ([]grading.GradeResult, error) {
	c, err := s.classifier(ctx, sub)
	if err != nil {
		return nil, err
	}
	return grading.Grade(sheets, c)
}

// RecomputeGrades recomputes every student's total and grade for one
// subject. It is called explicitly after each score write and on demand.
func (s *Service) RecomputeGrades(ctx context.Context, subjectID int64) ([]grading.GradeResult, error) {
	sub, err := s.Store.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	results, _, err := s.grade(ctx, sub)
	if err != nil {
		s.log.ErrorContext(ctx, "grade computation failed", "subject_id", subjectID, "policy", sub.GradingType, "err", err)
		return nil, err
	}
	s.log.InfoContext(ctx, "grades recomputed", "subject_id", subjectID, "students", len(results), "policy", sub.GradingType)
	s.emit(ctx, EventGradesRecomputed, subjectID, map[string]any{
		"policy":   sub.GradingType,
		"students": len(results),
	})
	return results, nil
}

// Report is the full grade sheet of a subject.
type Report struct {
	Subject    Subject               `json:"subject"`
	Categories []Category            `json:"categories"`
	Results    []grading.GradeResult `json:"results"`
	Averages   map[int64]*float64    `json:"averages"`
	Weights    grading.WeightSum     `json:"weights"`
	Warning    string                `json:"warning,omitempty"`
}

func (s *Service) Report(ctx context.Context, subjectID int64) (Report, error) {
	sub, err := s.Store.GetSubject(ctx, subjectID)
	if err != nil {
		return Report{}, err
	}
	cats, err := s.Store.ListCategories(ctx, subjectID)
	if err != nil {
		return Report{}, err
	}
	results, sheets, err := s.grade(ctx, sub)
	if err != nil {
		return Report{}, err
	}
	sum := summarize(cats)
	ec := make([]grading.Category, len(cats))
	for i, c := range cats {
		ec[i] = c.engine()
	}
	return Report{
		Subject:    sub,
		Categories: cats,
		Results:    results,
		Averages:   grading.ComputeCategoryAverages(ec, sheets),
		Weights:    sum.Weights,
		Warning:    sum.Warning,
	}, nil
}
