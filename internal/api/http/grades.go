package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Hansol916/OSSFinal/internal/export"
	"github.com/Hansol916/OSSFinal/internal/gradebook"
	"github.com/Hansol916/OSSFinal/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func CalculateGradesHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		res, err := svc.RecomputeGrades(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func ReportHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		rep, err := svc.Report(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func renderReport(r *http.Request, svc *gradebook.Service, id int64) (*bytes.Buffer, gradebook.Report, error) {
	rep, err := svc.Report(r.Context(), id)
	if err != nil {
		return nil, rep, err
	}
	var buf bytes.Buffer
	if err := export.WriteReport(&buf, rep); err != nil {
		return nil, rep, fmt.Errorf("render xlsx: %w", err)
	}
	return &buf, rep, nil
}

// ExportHandler streams the grade sheet as an XLSX workbook.
func ExportHandler(svc *gradebook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		buf, _, err := renderReport(r, svc, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="subject-%d-grades.xlsx"`, id))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		_, _ = buf.WriteTo(w)
	}
}

func archivePrefix(id int64) string { return path.Join("grades", strconv.FormatInt(id, 10)) }

type archiveEntry struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ArchiveHandler writes the current grade sheet to the blob store.
func ArchiveHandler(svc *gradebook.Service, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		buf, _, err := renderReport(r, svc, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		name := time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString() + ".xlsx"
		key, err := bs.Put(path.Join(archivePrefix(id), name), buf)
		if err != nil {
			writeError(w, r, fmt.Errorf("archive subject %d: %w", id, err))
			return
		}
		url, err := bs.SignedURL(key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, archiveEntry{Key: key, URL: url})
	}
}

func ListArchivesHandler(svc *gradebook.Service, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		if _, err := svc.Store.GetSubject(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		keys, err := bs.List(archivePrefix(id))
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]archiveEntry, 0, len(keys))
		for _, k := range keys {
			u, err := bs.SignedURL(k)
			if err != nil {
				writeError(w, r, err)
				return
			}
			out = append(out, archiveEntry{Key: k, URL: u})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DownloadArchiveHandler streams one archived workbook back.
func DownloadArchiveHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := subjectID(w, r)
		if !ok {
			return
		}
		name := chi.URLParam(r, "name")
		if name == "" || path.Base(name) != name || path.Ext(name) != ".xlsx" {
			http.Error(w, "bad archive name", http.StatusBadRequest)
			return
		}
		rc, err := bs.Get(path.Join(archivePrefix(id), name))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			http.Error(w, "archive not found", http.StatusNotFound)
			return
		case err != nil:
			writeError(w, r, err)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		_, _ = io.Copy(w, rc)
	}
}
