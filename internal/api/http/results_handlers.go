package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/results"
)

// POST /api/results/submit
func SubmitHandler(svc *results.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var sub results.Submission
		if err := decodeJSON(r, &sub); err != nil {
			writeError(w, r, err)
			return
		}
		s, err := svc.Submit(r.Context(), v, sub)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// GET /api/results/my
func MyResultsHandler(svc *results.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := svc.Mine(r.Context(), v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/results/test/{testID}
func TestResultsHandler(svc *results.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := idParam(r, "testID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := svc.ForTest(r.Context(), v, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/results/statistics/{testID}
func StatisticsHandler(svc *results.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := idParam(r, "testID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		st, err := svc.Statistics(r.Context(), v, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// GET /api/results/{resultID}
func ResultDetailHandler(svc *results.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := idParam(r, "resultID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		rep, err := svc.Detail(r.Context(), v, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}
