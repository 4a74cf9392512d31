package auth

import (
	"errors"
	"net/http"

	"github.com/Hansol916/OSSFinal/internal/gradebook"
	"github.com/Hansol916/OSSFinal/internal/rbac"
)

// AttachRoleFromStore replaces the token's role with the instructor's
// current role, so a demotion takes effect before the token expires.
// allowClaimFallback keeps the claim when the account is gone (dev only).
func AttachRoleFromStore(users InstructorLookup, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claimRole := rbac.RoleFromContext(ctx) // set by JWTMiddleware

			in, err := users.GetInstructor(ctx, SubjectFromContext(ctx))
			switch {
			case err == nil && in.Role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, in.Role)))
			case errors.Is(err, gradebook.ErrNotFound) && allowClaimFallback && claimRole != "":
				next.ServeHTTP(w, r)
			case err != nil && !errors.Is(err, gradebook.ErrNotFound):
				http.Error(w, "role lookup failed", http.StatusInternalServerError)
			default:
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
