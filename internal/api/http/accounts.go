package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/Hansol916/OSSFinal/internal/auth/middleware"
	"github.com/Hansol916/OSSFinal/internal/gradebook"
	"github.com/Hansol916/OSSFinal/internal/rbac"
)

// Accounts is the slice of the store that manages instructor logins.
type Accounts interface {
	GetInstructor(ctx context.Context, username string) (gradebook.Instructor, error)
	UpsertInstructor(ctx context.Context, in gradebook.Instructor) error
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePasswordHandler lets the signed-in instructor replace their own
// password.
func ChangePasswordHandler(users Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := auth.SubjectFromContext(r.Context())
		if username == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req changePasswordReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if len(req.NewPassword) < 8 {
			http.Error(w, "new password must be at least 8 characters", http.StatusBadRequest)
			return
		}

		in, err := users.GetInstructor(r.Context(), username)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(in.PasswordHash), []byte(req.OldPassword)) != nil {
			http.Error(w, "incorrect old password", http.StatusForbidden)
			return
		}
		if in.PasswordHash, err = auth.HashPassword(req.NewPassword); err != nil {
			writeError(w, r, err)
			return
		}
		if err := users.UpsertInstructor(r.Context(), in); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type updateRoleReq struct {
	Role string `json:"role"`
}

// UpdateRoleHandler changes another instructor's role. Callers cannot change
// their own.
func UpdateRoleHandler(users Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := strings.TrimSpace(chi.URLParam(r, "username"))
		var req updateRoleReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		role := strings.ToLower(strings.TrimSpace(req.Role))
		if !rbac.ValidRole(role) {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}
		if target == auth.SubjectFromContext(r.Context()) && role != rbac.RoleFromContext(r.Context()) {
			http.Error(w, "cannot change your own role", http.StatusBadRequest)
			return
		}

		in, err := users.GetInstructor(r.Context(), target)
		if errors.Is(err, gradebook.ErrNotFound) {
			http.Error(w, "instructor not found", http.StatusNotFound)
			return
		} else if err != nil {
			writeError(w, r, err)
			return
		}
		in.Role = role
		if err := users.UpsertInstructor(r.Context(), in); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
