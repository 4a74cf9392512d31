package http

import (
	"fmt"
	"net/http"

	"github.com/Hansol916/OSSFinal/internal/export"
	"github.com/Hansol916/OSSFinal/internal/gradebook"
)

const maxRosterUpload = 8 << 20

func ListStudentsHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		sts, err := svc.Store.ListStudents(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sts)
	}
}

func EnrollStudentHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		var in gradebook.StudentInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		st, err := svc.Enroll(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, st)
	}
}

// BulkEnrollHandler takes a JSON array of students.
func BulkEnrollHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		var ins []gradebook.StudentInput
		if err := decodeJSON(r, &ins); err != nil {
			writeError(w, r, err)
			return
		}
		res, err := svc.BulkEnroll(r.Context(), id, ins)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ImportRosterHandler enrolls the students listed in an uploaded XLSX file
// (multipart field "file").
func ImportRosterHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRosterUpload)
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		ins, err := export.ReadRoster(f)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", gradebook.ErrInvalidInput, err))
			return
		}
		res, err := svc.BulkEnroll(r.Context(), id, ins)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func UnenrollStudentHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		sid, err := pathID(r, "sid")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := svc.Store.UnenrollStudent(r.Context(), id, sid); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
