package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/logging"
)

const maxBody = 1 << 20

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf is the single place where domain errors become HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, exam.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, exam.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, exam.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, exam.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, exam.ErrInvalidAnswerShape),
		errors.Is(err, exam.ErrTestInactive),
		errors.Is(err, exam.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("handler failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Detail: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: bad json: %v", exam.ErrInvalidInput, err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", exam.ErrInvalidInput, name)
	}
	return id, nil
}

// viewer returns the principal placed in the context by the auth middleware.
func viewer(r *http.Request) (exam.Viewer, error) {
	v, ok := authmw.ViewerFromContext(r.Context())
	if !ok {
		return exam.Viewer{}, exam.ErrUnauthorized
	}
	return v, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

func parseBoolDefault(s string, def bool) bool {
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return def
}
