// Package export reads and writes gradebook spreadsheets.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Hansol916/OSSFinal/internal/gradebook"
)

const (
	gradesSheet     = "Grades"
	categoriesSheet = "Categories"
)

var ErrNoRosterColumns = errors.New("roster needs a name and a student number column")

// WriteReport renders a subject report as an XLSX workbook with one sheet
// for student grades and one for the category breakdown.
func WriteReport(w io.Writer, rep gradebook.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), gradesSheet); err != nil {
		return err
	}
	if err := setRow(f, gradesSheet, 1, []any{"Student ID", "Name", "Total", "Grade"}); err != nil {
		return err
	}
	for i, r := range rep.Results {
		if err := setRow(f, gradesSheet, i+2, []any{r.StudentID, r.StudentName, r.Total, r.Grade}); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(categoriesSheet); err != nil {
		return err
	}
	if err := setRow(f, categoriesSheet, 1, []any{"Category", "Max score", "Weight (%)", "Class average"}); err != nil {
		return err
	}
	row := 2
	for _, c := range rep.Categories {
		var avg any = "-"
		if a := rep.Averages[c.ID]; a != nil {
			avg = *a
		}
		if err := setRow(f, categoriesSheet, row, []any{c.Name, c.MaxScore, c.Weight, avg}); err != nil {
			return err
		}
		row++
	}
	if err := setRow(f, categoriesSheet, row, []any{"Total weight", nil, rep.Weights.Total, nil}); err != nil {
		return err
	}
	if rep.Warning != "" {
		if err := f.SetCellStr(categoriesSheet, cell(1, row+1), rep.Warning); err != nil {
			return err
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   rep.Subject.Name,
		Subject: fmt.Sprintf("%s (%s)", rep.Subject.Name, rep.Subject.GradingType),
		Creator: "gradebook",
	}); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, row int, vals []any) error {
	return f.SetSheetRow(sheet, cell(1, row), &vals)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

var (
	nameHeaders   = []string{"이름", "name"}
	numberHeaders = []string{"학번", "student_number"}
)

// ReadRoster parses the first sheet of an uploaded roster. The header row is
// the first row that names both a name and a student number column; rows
// missing either value are dropped.
func ReadRoster(r io.Reader) ([]gradebook.StudentInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}

	header, nameCol, numCol := -1, -1, -1
	for i, row := range rows {
		nameCol, numCol = column(row, nameHeaders), column(row, numberHeaders)
		if nameCol >= 0 && numCol >= 0 {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, ErrNoRosterColumns
	}

	out := []gradebook.StudentInput{}
	for _, row := range rows[header+1:] {
		name, num := at(row, nameCol), at(row, numCol)
		if name == "" || num == "" {
			continue
		}
		out = append(out, gradebook.StudentInput{Name: name, StudentNumber: num})
	}
	return out, nil
}

func column(row []string, names []string) int {
	for i, v := range row {
		v = strings.ToLower(strings.TrimSpace(v))
		for _, n := range names {
			if v == n {
				return i
			}
		}
	}
	return -1
}

func at(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
