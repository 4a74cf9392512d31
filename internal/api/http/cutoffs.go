package http

import (
	"net/http"

	"github.com/Hansol916/OSSFinal/internal/gradebook"
	"github.com/Hansol916/OSSFinal/internal/grading"
)

type cutoffsRequest struct {
	Cutoffs grading.RelativeConfig `json:"cutoffs"`
}

func GetCutoffsHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		tbl, err := svc.Cutoffs(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tbl)
	}
}

// SaveCutoffsHandler replaces the subject's relative cutoff table.
func SaveCutoffsHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		var req cutoffsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := svc.SaveCutoffs(r.Context(), id, req.Cutoffs); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, gradebook.CutoffTable{Cutoffs: req.Cutoffs, Stored: true})
	}
}
