package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

func newAccounts(t *testing.T) (*Accounts, *exam.SQLStore) {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	st := exam.NewSQLStore(dbh, string(db.DriverSQLite))
	a := NewAccounts(st, NewAuthService("test-secret", time.Minute), nil)
	a.cost = bcrypt.MinCost
	return a, st
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	a, _ := newAccounts(t)

	u, err := a.Register(ctx, Registration{Email: " Ada@Example.com ", FullName: "Ada", Password: "secret1", Role: exam.RoleTeacher})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "ada@example.com" || u.PasswordHash == "secret1" {
		t.Fatalf("user = %+v", u)
	}

	bad := []Registration{
		{Email: "ada@example.com", FullName: "Again", Password: "secret1"},
		{Email: "", FullName: "x", Password: "secret1"},
		{Email: "not-an-email", FullName: "x", Password: "secret1"},
		{Email: "b@example.com", FullName: "x", Password: "123"},
		{Email: "c@example.com", FullName: "x", Password: "secret1", Role: "admin"},
	}
	want := []error{exam.ErrConflict, exam.ErrInvalidInput, exam.ErrInvalidInput, exam.ErrInvalidInput, exam.ErrInvalidInput}
	for i, in := range bad {
		if _, err := a.Register(ctx, in); !errors.Is(err, want[i]) {
			t.Fatalf("case %d: err = %v, want %v", i, err, want[i])
		}
	}

	tok, err := a.Login(ctx, "ADA@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.TokenType != "bearer" || tok.User.ID != u.ID {
		t.Fatalf("token = %+v", tok)
	}
	claims, err := a.auth.Parse(tok.AccessToken)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, err := claims.Viewer()
	if err != nil || v.ID != u.ID || v.Role != exam.RoleTeacher {
		t.Fatalf("viewer = %+v, %v", v, err)
	}

	for _, creds := range [][2]string{{"ada@example.com", "wrong"}, {"nobody@example.com", "secret1"}} {
		if _, err := a.Login(ctx, creds[0], creds[1]); !errors.Is(err, exam.ErrUnauthorized) {
			t.Fatalf("login %v: err = %v", creds, err)
		}
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	a, _ := newAccounts(t)
	u, _ := a.Register(ctx, Registration{Email: "s@example.com", FullName: "S", Password: "first-pass"})
	v := exam.Viewer{ID: u.ID, Role: u.Role}

	if err := a.ChangePassword(ctx, v, "wrong", "second-pass"); !errors.Is(err, exam.ErrForbidden) {
		t.Fatalf("wrong old password: err = %v", err)
	}
	if err := a.ChangePassword(ctx, v, "first-pass", "second-pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := a.Login(ctx, "s@example.com", "second-pass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	a := NewAuthService("k", time.Minute)
	base := time.Unix(1700000000, 0)
	a.now = func() time.Time { return base }
	tok, err := a.IssueJWT(exam.User{ID: 3, Role: exam.RoleStudent})
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	if _, err := a.Parse(tok); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}
	a.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := a.Parse(tok); err == nil {
		t.Fatal("expired token accepted")
	}
	if _, err := NewAuthService("other", time.Minute).Parse(tok); err == nil {
		t.Fatal("token signed with another key accepted")
	}
}

func TestMiddlewareChain(t *testing.T) {
	ctx := context.Background()
	a, st := newAccounts(t)
	u, _ := a.Register(ctx, Registration{Email: "t@example.com", FullName: "T", Password: "secret1", Role: exam.RoleTeacher})

	var seen exam.Viewer
	var role string
	h := JWTMiddleware(a.auth)(AttachUser(st)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ViewerFromContext(r.Context())
		role = rbac.RoleFromContext(r.Context())
	})))

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(""); code != http.StatusUnauthorized {
		t.Fatalf("no header: %d", code)
	}
	if code := do("Bearer garbage"); code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", code)
	}

	// a stale role claim is replaced by the stored role
	stale, _ := a.auth.IssueJWT(exam.User{ID: u.ID, Role: exam.RoleStudent})
	if code := do("Bearer " + stale); code != http.StatusOK {
		t.Fatalf("valid token: %d", code)
	}
	if seen.ID != u.ID || seen.Role != exam.RoleTeacher || role != "teacher" {
		t.Fatalf("viewer = %+v role = %q", seen, role)
	}

	ghost, _ := a.auth.IssueJWT(exam.User{ID: 999, Role: exam.RoleStudent})
	if code := do("Bearer " + ghost); code != http.StatusUnauthorized {
		t.Fatalf("deleted user: %d", code)
	}
}
