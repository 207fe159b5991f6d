package http

import (
	"net/http"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
)

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// POST /api/users/change-password
func ChangePasswordHandler(accounts *authmw.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req changePasswordReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := accounts.ChangePassword(r.Context(), v, req.OldPassword, req.NewPassword); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
