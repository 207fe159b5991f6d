package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/exam"
)

// POST /api/questions
func CreateQuestionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req exam.NewQuestion
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		q, err := svc.CreateQuestion(r.Context(), v, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// GET /api/questions/{questionID}
func GetQuestionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := idParam(r, "questionID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		q, err := svc.GetQuestion(r.Context(), v, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// PUT /api/questions/{questionID}
func UpdateQuestionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := idParam(r, "questionID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var patch exam.QuestionPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, r, err)
			return
		}
		q, err := svc.UpdateQuestion(r.Context(), v, id, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// DELETE /api/questions/{questionID}
func DeleteQuestionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := idParam(r, "questionID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := svc.DeleteQuestion(r.Context(), v, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
