package http

import (
	"net/http"

	"github.com/Hansol916/OSSFinal/internal/gradebook"
)

// Every category response carries the weight summary; an unbalanced sum is
// reported in "warning" and never rejected.

func ListCategoriesHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		sum, err := svc.Categories(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func CreateCategoryHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		var in gradebook.CategoryInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		sum, err := svc.AddCategory(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, sum)
	}
}

func UpdateCategoryHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		cid, err := pathID(r, "cid")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var in gradebook.CategoryInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		sum, err := svc.EditCategory(r.Context(), id, cid, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func DeleteCategoryHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		cid, err := pathID(r, "cid")
		if err != nil {
			writeError(w, r, err)
			return
		}
		sum, err := svc.RemoveCategory(r.Context(), id, cid)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}
