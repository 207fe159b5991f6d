package http

import (
	"net/http"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
)

// POST /api/auth/register
func RegisterHandler(accounts *authmw.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authmw.Registration
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		u, err := accounts.Register(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

// POST /api/auth/login  { "email": "...", "password": "..." }
func LoginHandler(accounts *authmw.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		tok, err := accounts.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tok)
	}
}

// GET /api/users/me
func MeHandler(accounts *authmw.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		u, err := accounts.Me(r.Context(), v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
