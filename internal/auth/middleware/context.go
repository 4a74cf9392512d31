package auth

import "context"

type subjectKey struct{}

// WithSubject stores the authenticated instructor's username (the JWT sub).
func WithSubject(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, subjectKey{}, username)
}

// SubjectFromContext returns the username set by JWTMiddleware, or "" for
// unauthenticated requests.
func SubjectFromContext(ctx context.Context) string {
	username, _ := ctx.Value(subjectKey{}).(string)
	return username
}
