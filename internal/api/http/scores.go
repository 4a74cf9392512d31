package http

import (
	"net/http"

	"github.com/Hansol916/OSSFinal/internal/gradebook"
	"github.com/Hansol916/OSSFinal/internal/grading"
)

// ListScoresHandler returns the raw score matrix, one row per enrolled
// student and category.
func ListScoresHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		rows, err := svc.Store.ScoreMatrix(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if rows == nil {
			rows = []grading.ScoreRow{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// SaveScoreHandler upserts one cell. A null score clears it. The response
// carries the subject's recomputed grades.
func SaveScoreHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		var in gradebook.ScoreInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		up, err := svc.SaveScore(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, up)
	}
}
