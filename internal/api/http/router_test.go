package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	auth "github.com/Hansol916/OSSFinal/internal/auth/middleware"
	"github.com/Hansol916/OSSFinal/internal/events"
	"github.com/Hansol916/OSSFinal/internal/gradebook"
	"github.com/Hansol916/OSSFinal/internal/grading"
	"github.com/Hansol916/OSSFinal/internal/metrics"
	"github.com/Hansol916/OSSFinal/internal/rbac"
	"github.com/Hansol916/OSSFinal/internal/storage"
)

type fakeEvents struct{ key string }

func (f *fakeEvents) List(_ context.Context, key string, limit int) ([]events.Event, error) {
	f.key = key
	return []events.Event{{Seq: 1, Type: gradebook.EventScoreUpserted, Key: key}}, nil
}

type server struct {
	t       *testing.T
	h       http.Handler
	a       *auth.AuthService
	token   string
	assist  string
	events  *fakeEvents
	users   gradebook.Store
	metrics *metrics.Metrics
}

func newServer(t *testing.T) *server {
	t.Helper()
	store := gradebook.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertInstructor(ctx, gradebook.Instructor{Username: "prof", Role: rbac.RoleInstructor}))
	require.NoError(t, store.UpsertInstructor(ctx, gradebook.Instructor{Username: "ta", Role: rbac.RoleAssistant}))

	bs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	s := &server{t: t, a: auth.NewAuthService("test-secret-that-is-long-enough", time.Hour), events: &fakeEvents{}, users: store, metrics: metrics.New()}
	svc := gradebook.NewService(store,
		gradebook.WithObserver(s.metrics),
		gradebook.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
	)
	s.h = NewRouter(Deps{
		Service: svc,
		Auth:    s.a,
		Users:   store,
		Blobs:   bs,
		Events:  s.events,
		Metrics: s.metrics,
	})
	s.token, err = s.a.IssueJWT("prof", rbac.RoleInstructor)
	require.NoError(t, err)
	s.assist, err = s.a.IssueJWT("ta", rbac.RoleAssistant)
	require.NoError(t, err)
	return s
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func f(v float64) *float64 { return &v }

// seed builds a subject with two balanced categories and two students.
func (s *server) seed() (gradebook.Subject, gradebook.CategorySummary, []gradebook.Student) {
	t := s.t
	rr := s.do(http.MethodPost, "/api/subjects", s.token, gradebook.SubjectInput{Name: "Algorithms", ClassNumber: "01"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sub := decode[gradebook.Subject](t, rr)
	base := "/api/subjects/" + itoa(sub.ID)

	rr = s.do(http.MethodPost, base+"/categories", s.token, gradebook.CategoryInput{Name: "Midterm", MaxScore: 100, Weight: 40})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sum := decode[gradebook.CategorySummary](t, rr)
	assert.False(t, sum.Weights.Balanced)
	assert.Equal(t, "category weights add up to 40%, not 100%", sum.Warning)

	rr = s.do(http.MethodPost, base+"/categories", s.token, gradebook.CategoryInput{Name: "Final", MaxScore: 50, Weight: 60})
	require.Equal(t, http.StatusCreated, rr.Code)
	sum = decode[gradebook.CategorySummary](t, rr)
	assert.True(t, sum.Weights.Balanced)
	assert.Empty(t, sum.Warning)

	rr = s.do(http.MethodPost, base+"/students/bulk", s.token, []gradebook.StudentInput{
		{Name: "Kim", StudentNumber: "2024001"},
		{Name: "Lee", StudentNumber: "2024002"},
		{Name: "Kim", StudentNumber: "2024001"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	bulk := decode[gradebook.BulkResult](t, rr)
	assert.Equal(t, 2, bulk.Added)
	assert.Equal(t, 1, bulk.Skipped)
	return sub, sum, bulk.Students
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestRequiresBearer(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/subjects", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil).Code)
}

func TestGradingFlow(t *testing.T) {
	s := newServer(t)
	sub, sum, sts := s.seed()
	base := "/api/subjects/" + itoa(sub.ID)
	mid, fin := sum.Categories[0], sum.Categories[1]
	kim, lee := sts[0], sts[1]

	put := func(st gradebook.Student, c gradebook.Category, v *float64) gradebook.ScoreUpdate {
		rr := s.do(http.MethodPut, base+"/scores", s.assist, gradebook.ScoreInput{StudentID: st.ID, CategoryID: c.ID, Score: v})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		return decode[gradebook.ScoreUpdate](t, rr)
	}
	put(kim, mid, f(90))
	put(kim, fin, f(45))
	up := put(lee, mid, f(50))
	require.Len(t, up.Grades, 2)
	assert.Equal(t, grading.GradeResult{StudentID: kim.ID, StudentName: "Kim", Total: 90, Grade: "A0"}, up.Grades[0])
	assert.Equal(t, grading.GradeResult{StudentID: lee.ID, StudentName: "Lee", Total: 20, Grade: "F"}, up.Grades[1])

	rr := s.do(http.MethodPut, base+"/scores", s.token, map[string]any{"student_id": kim.ID, "category_id": mid.ID, "score": -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodGet, base+"/grades/report", s.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rep := decode[gradebook.Report](t, rr)
	require.NotNil(t, rep.Averages[mid.ID])
	assert.Equal(t, 70.0, *rep.Averages[mid.ID])
	assert.Equal(t, 22.5, *rep.Averages[fin.ID])

	// relative grading
	rr = s.do(http.MethodPatch, base+"/settings", s.token, gradebook.SettingsInput{GradingType: "relative"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, base+"/relative-grade", s.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[gradebook.CutoffTable](t, rr).Stored)

	bad := cutoffsRequest{Cutoffs: grading.RelativeConfig{{Grade: "A", MaxPercent: 60}, {Grade: "F", MaxPercent: 40}}}
	rr = s.do(http.MethodPut, base+"/relative-grade", s.token, bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, msgInvalidCutoffs+"\n", rr.Body.String())

	good := cutoffsRequest{Cutoffs: grading.RelativeConfig{{Grade: "A", MaxPercent: 49}, {Grade: "F", MaxPercent: 100}}}
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, base+"/relative-grade", s.assist, good).Code)
	rr = s.do(http.MethodPut, base+"/relative-grade", s.token, good)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, base+"/grades/calculate", s.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	grades := decode[[]grading.GradeResult](t, rr)
	require.Len(t, grades, 2)
	assert.Equal(t, "A", grades[0].Grade)
	assert.Equal(t, "F", grades[1].Grade)

	rr = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, rr.Body.String(), `gradebook_score_writes_total 3`)
}

func TestViewerReadsButCannotRecompute(t *testing.T) {
	s := newServer(t)
	sub, _, _ := s.seed()
	base := "/api/subjects/" + itoa(sub.ID)

	require.NoError(t, s.users.UpsertInstructor(context.Background(), gradebook.Instructor{Username: "auditor", Role: rbac.RoleViewer}))
	viewer, err := s.a.IssueJWT("auditor", rbac.RoleViewer)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, base+"/grades/report", viewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, base+"/grades/calculate", viewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, base+"/scores", viewer, gradebook.ScoreInput{}).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, base+"/grades/calculate", s.assist, nil).Code)
}

func TestScoreWriteSurvivesBrokenCutoffs(t *testing.T) {
	s := newServer(t)
	sub, sum, sts := s.seed()
	base := "/api/subjects/" + itoa(sub.ID)

	rr := s.do(http.MethodPatch, base+"/settings", s.token, gradebook.SettingsInput{GradingType: "relative"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, s.users.SaveRelativeConfig(context.Background(), sub.ID, grading.RelativeConfig{
		{Grade: "A", MaxPercent: 100}, {Grade: "F", MaxPercent: 50},
	}))

	rr = s.do(http.MethodPut, base+"/scores", s.assist, gradebook.ScoreInput{StudentID: sts[0].ID, CategoryID: sum.Categories[0].ID, Score: f(88)})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	up := decode[gradebook.ScoreUpdate](t, rr)
	assert.Empty(t, up.Grades)
	assert.Contains(t, up.Warning, "invalid relative grade config")

	rr = s.do(http.MethodGet, base+"/scores", s.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"score":88`)

	rr = s.do(http.MethodPost, base+"/grades/calculate", s.token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestNotFoundAndBadIDs(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/subjects/999", s.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/subjects/999/grades/calculate", s.token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/subjects/abc", s.token, nil).Code)

	sub, _, sts := s.seed()
	base := "/api/subjects/" + itoa(sub.ID)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, base+"/students/"+itoa(sts[0].ID), s.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, base+"/students/"+itoa(sts[0].ID), s.token, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, base, s.assist, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, base, s.token, nil).Code)
}

func TestExportAndArchive(t *testing.T) {
	s := newServer(t)
	sub, _, _ := s.seed()
	base := "/api/subjects/" + itoa(sub.ID)

	rr := s.do(http.MethodGet, base+"/grades/export.xlsx", s.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))
	x, err := excelize.OpenReader(rr.Body)
	require.NoError(t, err)
	rows, err := x.GetRows("Grades")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	require.NoError(t, x.Close())

	rr = s.do(http.MethodPost, base+"/grades/archive", s.token, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	entry := decode[archiveEntry](t, rr)
	assert.Contains(t, entry.Key, "grades/"+itoa(sub.ID)+"/")

	rr = s.do(http.MethodGet, base+"/grades/archives", s.assist, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []archiveEntry{entry}, decode[[]archiveEntry](t, rr))

	rr = s.do(http.MethodGet, base+"/grades/archives/"+path.Base(entry.Key), s.assist, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))
	assert.NotZero(t, rr.Body.Len())
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, base+"/grades/archives/missing.xlsx", s.token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, base+"/grades/archives/notes.txt", s.token, nil).Code)
}

func TestImportRoster(t *testing.T) {
	s := newServer(t)
	sub, _, _ := s.seed()

	x := excelize.NewFile()
	sheet := x.GetSheetName(0)
	for i, row := range [][]any{{"학번", "이름"}, {"2024002", "Lee"}, {"2024003", "Park"}, {"", "Nobody"}} {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, x.SetSheetRow(sheet, cell, &row))
	}
	var file bytes.Buffer
	_, err := x.WriteTo(&file)
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "roster.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(file.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/subjects/"+itoa(sub.ID)+"/students/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	res := decode[gradebook.BulkResult](t, rr)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Students, 1)
	assert.Equal(t, "Park", res.Students[0].Name)
	assert.Equal(t, "01", res.Students[0].ClassNumber)
}

func TestEvents(t *testing.T) {
	s := newServer(t)
	sub, _, _ := s.seed()
	path := "/api/subjects/" + itoa(sub.ID) + "/events?limit=5"

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, path, s.assist, nil).Code)
	rr := s.do(http.MethodGet, path, s.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	evs := decode[[]events.Event](t, rr)
	require.Len(t, evs, 1)
	assert.Equal(t, itoa(sub.ID), s.events.key)
}

func TestAccounts(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	hash, err := auth.HashPassword("first-password")
	require.NoError(t, err)
	require.NoError(t, s.users.UpsertInstructor(ctx, gradebook.Instructor{Username: "prof", PasswordHash: hash, Role: rbac.RoleInstructor}))

	login := func(pw string) int {
		return s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "prof", "password": pw}).Code
	}
	assert.Equal(t, http.StatusOK, login("first-password"))

	rr := s.do(http.MethodPost, "/api/account/password", s.token, changePasswordReq{OldPassword: "wrong", NewPassword: "second-password"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = s.do(http.MethodPost, "/api/account/password", s.token, changePasswordReq{OldPassword: "first-password", NewPassword: "second-password"})
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, http.StatusUnauthorized, login("first-password"))
	assert.Equal(t, http.StatusOK, login("second-password"))

	// role management is admin only
	require.NoError(t, s.users.UpsertInstructor(ctx, gradebook.Instructor{Username: "root", Role: rbac.RoleAdmin}))
	admin, err := s.a.IssueJWT("root", rbac.RoleAdmin)
	require.NoError(t, err)

	promote := updateRoleReq{Role: rbac.RoleInstructor}
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, "/api/instructors/ta/role", s.token, promote).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPut, "/api/instructors/ta/role", admin, promote).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/api/instructors/root/role", admin, promote).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, "/api/instructors/ghost/role", admin, promote).Code)

	// the stored role wins over the one in an older token
	sub, _, _ := s.seed()
	good := cutoffsRequest{Cutoffs: grading.RelativeConfig{{Grade: "A", MaxPercent: 100}}}
	rr = s.do(http.MethodPut, "/api/subjects/"+itoa(sub.ID)+"/relative-grade", s.assist, good)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}
