package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Hansol916/OSSFinal/internal/events"
	"github.com/Hansol916/OSSFinal/internal/gradebook"
)

type EventLister interface {
	List(ctx context.Context, key string, limit int) ([]events.Event, error)
}

// ListEventsHandler shows the audit trail of one subject, newest first.
func ListEventsHandler(svc *gradebook.Service, el EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		if _, err := svc.Store.GetSubject(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		evs, err := el.List(r.Context(), strconv.FormatInt(id, 10), limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if evs == nil {
			evs = []events.Event{}
		}
		writeJSON(w, http.StatusOK, evs)
	}
}
