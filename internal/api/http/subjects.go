package http

import (
	"net/http"

	"github.com/Hansol916/OSSFinal/internal/gradebook"
)

func CreateSubjectHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in gradebook.SubjectInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		sub, err := svc.CreateSubject(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	}
}

func ListSubjectsHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := svc.Store.ListSubjects(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, subs)
	}
}

func GetSubjectHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		sub, err := svc.Store.GetSubject(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

func UpdateSubjectHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		var in gradebook.SubjectInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		sub, err := svc.UpdateSubject(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

func DeleteSubjectHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		if err := svc.Store.DeleteSubject(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// UpdateSettingsHandler switches a subject between absolute and relative
// grading.
func UpdateSettingsHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		var in gradebook.SettingsInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		sub, err := svc.UpdateSettings(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}
