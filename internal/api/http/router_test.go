package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/metrics"
	"github.com/mind-engage/mindengage-quiz/internal/ratelimit"
	"github.com/mind-engage/mindengage-quiz/internal/results"
)

type env struct {
	t      *testing.T
	srv    *httptest.Server
	issuer *authmw.AuthService
	store  *exam.SQLStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })

	st := exam.NewSQLStore(dbh, string(db.DriverSQLite))
	issuer := authmw.NewAuthService("test-secret", time.Hour)
	h := NewRouter(Deps{
		Store:    st,
		Auth:     issuer,
		Accounts: authmw.NewAccounts(st, issuer, nil),
		Tests:    exam.NewService(st, nil),
		Results:  results.NewService(st, grading.NewEngine(60)),
		Metrics:  metrics.New(),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &env{t: t, srv: srv, issuer: issuer, store: st}
}

// user inserts a user directly and returns a bearer token for it.
func (e *env) user(email string, role exam.Role) string {
	e.t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	u, err := e.store.CreateUser(context.Background(), exam.User{Email: email, FullName: email, PasswordHash: string(hash), Role: role})
	if err != nil {
		e.t.Fatalf("CreateUser: %v", err)
	}
	tok, err := e.issuer.IssueJWT(u)
	if err != nil {
		e.t.Fatalf("IssueJWT: %v", err)
	}
	return tok
}

func (e *env) do(method, path, token string, body any, out any) int {
	e.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		buf, _ := json.Marshal(body)
		rd = bytes.NewReader(buf)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, e.srv.URL+path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			e.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{exam.ErrNotFound, 404},
		{fmt.Errorf("test 3: %w", exam.ErrNotFound), 404},
		{exam.ErrForbidden, 403},
		{exam.ErrUnauthorized, 401},
		{exam.ErrConflict, 409},
		{exam.ErrInvalidAnswerShape, 400},
		{exam.ErrTestInactive, 400},
		{exam.ErrInvalidInput, 400},
		{errors.New("disk on fire"), 500},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Errorf("statusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)

	var u exam.User
	code := e.do("POST", "/api/auth/register", "", map[string]string{
		"email": "new@example.com", "full_name": "New", "password": "secret1", "role": "student",
	}, &u)
	if code != http.StatusCreated || u.ID == 0 {
		t.Fatalf("register: %d %+v", code, u)
	}
	if code := e.do("POST", "/api/auth/register", "", map[string]string{
		"email": "new@example.com", "full_name": "Dup", "password": "secret1",
	}, nil); code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", code)
	}

	var tok authmw.Token
	if code := e.do("POST", "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "secret1"}, &tok); code != http.StatusOK {
		t.Fatalf("login: %d", code)
	}
	if tok.TokenType != "bearer" || tok.AccessToken == "" {
		t.Fatalf("token = %+v", tok)
	}
	if code := e.do("POST", "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "nope"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", code)
	}

	var me exam.User
	if code := e.do("GET", "/api/users/me", tok.AccessToken, nil, &me); code != http.StatusOK || me.ID != u.ID {
		t.Fatalf("me: %d %+v", code, me)
	}
	if code := e.do("GET", "/api/users/me", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("me without token: %d", code)
	}
}

func TestQuizLifecycle(t *testing.T) {
	e := newEnv(t)
	teacher := e.user("teacher@example.com", exam.RoleTeacher)
	other := e.user("other@example.com", exam.RoleTeacher)
	student := e.user("student@example.com", exam.RoleStudent)

	var tst exam.Test
	if code := e.do("POST", "/api/tests", teacher, map[string]any{"title": "Go"}, &tst); code != http.StatusCreated {
		t.Fatalf("create test: %d", code)
	}
	if code := e.do("POST", "/api/tests", student, map[string]any{"title": "Nope"}, nil); code != http.StatusForbidden {
		t.Fatalf("student create test: %d", code)
	}

	var q1, q2 exam.Question
	if code := e.do("POST", "/api/questions", teacher, map[string]any{
		"test_id": tst.ID, "question_text": "pick B", "question_type": "single",
		"options": []string{"A", "B", "C"}, "correct_answers": []string{"B"}, "points": 5, "order_number": 1,
	}, &q1); code != http.StatusCreated {
		t.Fatalf("create q1: %d", code)
	}
	if code := e.do("POST", "/api/questions", teacher, map[string]any{
		"test_id": tst.ID, "question_text": "pick A and C", "question_type": "multiple",
		"options": []string{"A", "B", "C"}, "correct_answers": []string{"A", "C"}, "points": 5, "order_number": 2,
	}, &q2); code != http.StatusCreated {
		t.Fatalf("create q2: %d", code)
	}
	if code := e.do("POST", "/api/questions", teacher, map[string]any{
		"test_id": tst.ID, "question_text": "bad", "question_type": "single", "options": []string{"A"}, "correct_answers": []string{"A"},
	}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad shape: %d", code)
	}
	if code := e.do("POST", "/api/questions", other, map[string]any{
		"test_id": tst.ID, "question_text": "x", "question_type": "text",
	}, nil); code != http.StatusForbidden {
		t.Fatalf("foreign question: %d", code)
	}

	// students never see the key
	var raw map[string]any
	if code := e.do("GET", fmt.Sprintf("/api/tests/%d", tst.ID), student, nil, &raw); code != http.StatusOK {
		t.Fatalf("student get test: %d", code)
	}
	if strings.Contains(fmt.Sprint(raw), "correct_answers") {
		t.Fatalf("student view leaks the key: %v", raw)
	}

	var list []exam.TestSummary
	if code := e.do("GET", "/api/tests", student, nil, &list); code != http.StatusOK || len(list) != 1 || list[0].QuestionCount != 2 {
		t.Fatalf("list tests: %d %+v", code, list)
	}

	var sum results.Summary
	code := e.do("POST", "/api/results/submit", student, map[string]any{
		"test_id": tst.ID,
		"answers": map[string]any{
			fmt.Sprint(q1.ID): []any{"B"},
			fmt.Sprint(q2.ID): []any{"A"},
			"9999":            []any{"junk"},
		},
		"time_spent_minutes": 4,
	}, &sum)
	if code != http.StatusOK {
		t.Fatalf("submit: %d", code)
	}
	if sum.Score != 5 || sum.MaxScore != 10 || sum.Percentage != 50 || sum.Passed {
		t.Fatalf("summary = %+v", sum)
	}

	var rep results.Report
	if code := e.do("GET", fmt.Sprintf("/api/results/%d", sum.ID), student, nil, &rep); code != http.StatusOK {
		t.Fatalf("detail: %d", code)
	}
	if len(rep.Questions) != 2 || rep.Questions[0].QuestionID != q1.ID || !*rep.Questions[0].IsCorrect || *rep.Questions[1].IsCorrect {
		t.Fatalf("breakdown = %+v", rep.Questions)
	}
	if code := e.do("GET", fmt.Sprintf("/api/results/%d", sum.ID), other, nil, nil); code != http.StatusForbidden {
		t.Fatalf("foreign teacher detail: %d", code)
	}
	if code := e.do("GET", fmt.Sprintf("/api/results/%d", sum.ID), teacher, nil, nil); code != http.StatusOK {
		t.Fatalf("owning teacher detail: %d", code)
	}

	var st results.Statistics
	if code := e.do("GET", fmt.Sprintf("/api/results/statistics/%d", tst.ID), teacher, nil, &st); code != http.StatusOK {
		t.Fatalf("statistics: %d", code)
	}
	if st.TotalAttempts != 1 || st.AverageScore != 50 || st.PassRate != 0 {
		t.Fatalf("statistics = %+v", st)
	}
	if code := e.do("GET", fmt.Sprintf("/api/results/statistics/%d", tst.ID), student, nil, nil); code != http.StatusForbidden {
		t.Fatalf("student statistics: %d", code)
	}

	var mine []results.Detailed
	if code := e.do("GET", "/api/results/my", student, nil, &mine); code != http.StatusOK || len(mine) != 1 || mine[0].TestTitle != "Go" {
		t.Fatalf("my results: %d %+v", code, mine)
	}

	// results make the test undeletable; deactivation then blocks submissions
	if code := e.do("DELETE", fmt.Sprintf("/api/tests/%d", tst.ID), teacher, nil, nil); code != http.StatusConflict {
		t.Fatalf("delete taken test: %d", code)
	}
	if code := e.do("PUT", fmt.Sprintf("/api/tests/%d", tst.ID), teacher, map[string]any{"is_active": false}, nil); code != http.StatusOK {
		t.Fatalf("deactivate: %d", code)
	}
	if code := e.do("POST", "/api/results/submit", student, map[string]any{"test_id": tst.ID}, nil); code != http.StatusBadRequest {
		t.Fatalf("submit inactive: %d", code)
	}
	if code := e.do("POST", "/api/results/submit", student, map[string]any{"test_id": 424242}, nil); code != http.StatusNotFound {
		t.Fatalf("submit missing: %d", code)
	}
}

func TestProbesAndMetrics(t *testing.T) {
	e := newEnv(t)
	for _, p := range []string{"/healthz", "/readyz", "/metrics"} {
		if code := e.do("GET", p, "", nil, nil); code != http.StatusOK {
			t.Errorf("%s: %d", p, code)
		}
	}
	if code := e.do("GET", "/api/results/abc", e.user("s@example.com", exam.RoleStudent), nil, nil); code != http.StatusBadRequest {
		t.Errorf("non-numeric id: %d", code)
	}
}

func TestAuthLimiterKeysOnRemoteAddr(t *testing.T) {
	dbh, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	st := exam.NewSQLStore(dbh, string(db.DriverSQLite))
	issuer := authmw.NewAuthService("test-secret", time.Hour)

	newRouter := func(trust bool) http.Handler {
		return NewRouter(Deps{
			Store:       st,
			Auth:        issuer,
			Accounts:    authmw.NewAccounts(st, issuer, nil),
			Tests:       exam.NewService(st, nil),
			Results:     results.NewService(st, grading.NewEngine(60)),
			AuthLimiter: ratelimit.New(time.Hour, 1),
			TrustProxy:  trust,
		})
	}
	login := func(h http.Handler, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"x@example.com","password":"nope"}`))
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// rotating the header must not buy a fresh bucket
	h := newRouter(false)
	if code := login(h, "198.51.100.1"); code == http.StatusTooManyRequests {
		t.Fatalf("first login limited")
	}
	if code := login(h, "198.51.100.2"); code != http.StatusTooManyRequests {
		t.Fatalf("spoofed X-Forwarded-For got status %d, want 429", code)
	}

	// behind a trusted proxy the forwarded address is the client
	h = newRouter(true)
	for _, ip := range []string{"198.51.100.1", "198.51.100.2"} {
		if code := login(h, ip); code == http.StatusTooManyRequests {
			t.Fatalf("client %s limited on its first request", ip)
		}
	}
}
