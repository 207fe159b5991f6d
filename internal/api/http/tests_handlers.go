package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/exam"
)

// GET /api/tests?skip=&limit=&active_only=
func ListTestsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.ListTests(r.Context(), exam.ListOpts{
			Skip:       parseIntDefault(q.Get("skip"), 0),
			Limit:      parseIntDefault(q.Get("limit"), 100),
			ActiveOnly: parseBoolDefault(q.Get("active_only"), true),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/tests/my
func MyTestsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := svc.ListMyTests(r.Context(), v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/tests/{testID}
// Teachers get the answer key; students get the student view.
func GetTestHandler(svc *exam.Service) http.HandlerFunc {
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
		t, err := svc.GetTest(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if v.IsTeacher() {
			writeJSON(w, http.StatusOK, t)
			return
		}
		writeJSON(w, http.StatusOK, t.StudentView())
	}
}

// POST /api/tests
func CreateTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := viewer(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req exam.NewTest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		t, err := svc.CreateTest(r.Context(), v, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

// PUT /api/tests/{testID}
func UpdateTestHandler(svc *exam.Service) http.HandlerFunc {
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
		var patch exam.TestPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, r, err)
			return
		}
		t, err := svc.UpdateTest(r.Context(), v, id, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// DELETE /api/tests/{testID}
func DeleteTestHandler(svc *exam.Service) http.HandlerFunc {
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
		if err := svc.DeleteTest(r.Context(), v, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
