package auth

import (
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// AttachUser makes the stored role authoritative over the token claim and
// rejects tokens whose user no longer exists. It must run after
// JWTMiddleware.
func AttachUser(store exam.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			v, ok := ViewerFromContext(ctx)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			u, err := store.GetUser(ctx, v.ID)
			switch {
			case errors.Is(err, exam.ErrNotFound):
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			case err != nil:
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if u.Role != v.Role {
				v.Role = u.Role
				ctx = rbac.WithRole(WithViewer(ctx, v), string(u.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
