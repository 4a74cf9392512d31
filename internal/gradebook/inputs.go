package gradebook

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Hansol916/OSSFinal/internal/grading"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

type SubjectInput struct {
	Name        string `json:"name"`
	ClassNumber string `json:"class_number"`
}

func (in *SubjectInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.ClassNumber = strings.TrimSpace(in.ClassNumber)
	if in.Name == "" {
		return invalid("subject name is required")
	}
	return nil
}

type SettingsInput struct {
	GradingType string `json:"grading_type"`
}

func (in SettingsInput) Policy() (grading.Policy, error) {
	p, err := grading.ParsePolicy(in.GradingType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return p, nil
}

type CategoryInput struct {
	Name     string  `json:"name"`
	MaxScore float64 `json:"max_score"`
	Weight   float64 `json:"weight"`
}

func (in *CategoryInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return invalid("category name is required")
	case !(in.MaxScore > 0) || math.IsInf(in.MaxScore, 0):
		return invalid("max_score must be a positive number")
	case !(in.Weight >= 0 && in.Weight <= 100):
		return invalid("weight must be between 0 and 100")
	}
	return nil
}

type StudentInput struct {
	Name          string `json:"name"`
	StudentNumber string `json:"student_number"`
	ClassNumber   string `json:"class_number"`
}

func (in *StudentInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.StudentNumber = strings.TrimSpace(in.StudentNumber)
	in.ClassNumber = strings.TrimSpace(in.ClassNumber)
	if in.Name == "" || in.StudentNumber == "" {
		return invalid("student name and student_number are required")
	}
	return nil
}

// ScoreInput sets or clears (Score == nil) one cell of the matrix.
type ScoreInput struct {
	StudentID  int64    `json:"student_id"`
	CategoryID int64    `json:"category_id"`
	Score      *float64 `json:"score"`
}

func (in ScoreInput) Validate() error {
	if in.StudentID <= 0 || in.CategoryID <= 0 {
		return invalid("student_id and category_id are required")
	}
	if in.Score != nil {
		s := *in.Score
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			return invalid("score must be a non-negative number")
		}
	}
	return nil
}
