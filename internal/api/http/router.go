package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/Hansol916/OSSFinal/internal/auth/middleware"
	"github.com/Hansol916/OSSFinal/internal/gradebook"
	"github.com/Hansol916/OSSFinal/internal/metrics"
	"github.com/Hansol916/OSSFinal/internal/rbac"
	"github.com/Hansol916/OSSFinal/internal/storage"
)

// Deps are the collaborators the HTTP surface is built from. Events and
// Metrics are optional.
type Deps struct {
	Service *gradebook.Service
	Auth    *auth.AuthService
	Users   Accounts
	Blobs   storage.BlobStore
	Events  EventLister
	Metrics *metrics.Metrics

	CORSOrigins []string
	// Ready reports whether backing services are reachable.
	Ready func(context.Context) error
	// AccessLog toggles chi's request logger.
	AccessLog bool
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	if d.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	// Protected API (JWT → stored role → RBAC)
	r.Route("/api", func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		pr.Use(auth.AttachRoleFromStore(d.Users, false))
		pr.Post("/account/password", ChangePasswordHandler(d.Users))
		pr.With(rbac.Require("instructor:manage")).Put("/instructors/{username}/role", UpdateRoleHandler(d.Users))
		mountSubjects(pr, d)
	})
	return r
}

func mountSubjects(pr chi.Router, d Deps) {
	svc := d.Service

	pr.With(rbac.Require("subject:view")).Get("/subjects", ListSubjectsHandler(svc))
	pr.With(rbac.Require("subject:write")).Post("/subjects", CreateSubjectHandler(svc))

	pr.Route("/subjects/{id}", func(sr chi.Router) {
		sr.With(rbac.Require("subject:view")).Get("/", GetSubjectHandler(svc))
		sr.With(rbac.Require("subject:write")).Patch("/", UpdateSubjectHandler(svc))
		sr.With(rbac.Require("subject:delete")).Delete("/", DeleteSubjectHandler(svc))
		sr.With(rbac.Require("subject:write")).Patch("/settings", UpdateSettingsHandler(svc))

		sr.With(rbac.Require("category:view")).Get("/categories", ListCategoriesHandler(svc))
		sr.With(rbac.Require("category:write")).Post("/categories", CreateCategoryHandler(svc))
		sr.With(rbac.Require("category:write")).Put("/categories/{cid}", UpdateCategoryHandler(svc))
		sr.With(rbac.Require("category:write")).Delete("/categories/{cid}", DeleteCategoryHandler(svc))

		sr.With(rbac.Require("student:view")).Get("/students", ListStudentsHandler(svc))
		sr.With(rbac.Require("student:write")).Post("/students", EnrollStudentHandler(svc))
		sr.With(rbac.Require("student:write")).Post("/students/bulk", BulkEnrollHandler(svc))
		sr.With(rbac.Require("student:write")).Post("/students/import", ImportRosterHandler(svc))
		sr.With(rbac.Require("student:write")).Delete("/students/{sid}", UnenrollStudentHandler(svc))

		sr.With(rbac.Require("score:view")).Get("/scores", ListScoresHandler(svc))
		sr.With(rbac.Require("score:write")).Put("/scores", SaveScoreHandler(svc))

		sr.With(rbac.Require("cutoff:view")).Get("/relative-grade", GetCutoffsHandler(svc))
		sr.With(rbac.Require("cutoff:write")).Put("/relative-grade", SaveCutoffsHandler(svc))

		// recompute appends to the event log
		sr.With(rbac.RequireAny("grades:compute", "score:write")).Post("/grades/calculate", CalculateGradesHandler(svc))
		sr.With(rbac.Require("grades:view")).Get("/grades/report", ReportHandler(svc))
		sr.With(rbac.Require("grades:export")).Get("/grades/export.xlsx", ExportHandler(svc))
		if d.Blobs != nil {
			sr.With(rbac.Require("grades:archive")).Post("/grades/archive", ArchiveHandler(svc, d.Blobs))
			sr.With(rbac.Require("grades:view")).Get("/grades/archives", ListArchivesHandler(svc, d.Blobs))
			sr.With(rbac.Require("grades:view")).Get("/grades/archives/{name}", DownloadArchiveHandler(d.Blobs))
		}

		if d.Events != nil {
			sr.With(rbac.Require("events:view")).Get("/events", ListEventsHandler(svc, d.Events))
		}
	})
}
