package auth

import (
	"net/http"
	"slices"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

// RequireRole authenticates the request and rejects principals whose role is
// not in roles.
func (h *Handler) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return h.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := internal.SubjectFromContext(r.Context())
			if !ok {
				h.HandleError(w, internal.ErrMissingToken)
				return
			}

			if !slices.Contains(roles, subject.Role) {
				h.Logger.WarnContext(r.Context(), "access denied: role not allowed",
					"subject_id", subject.ID,
					"role", subject.Role,
					"required_roles", roles)
				h.HandleError(w, internal.ErrForbiddenRole)
				return
			}

			ctx := logger.With(r.Context(), "subject_id", subject.ID, "role", subject.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		}))
	}
}
