package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	tests := []struct {
		role, perm string
		want       bool
	}{
		{"student", PermTestView, true},
		{"student", PermResultSubmit, true},
		{"student", PermTestCreate, false},
		{"student", PermStatsView, false},
		{"student", PermResultViewTest, false},
		{"teacher", PermStatsView, true},
		{"teacher", PermResultViewTest, true},
		{"teacher", PermResultSubmit, true},
		{"teacher", PermQuestionManage, true},
		{"admin", PermTestView, false},
		{"", PermTestView, false},
	}
	for _, tt := range tests {
		if got := c.Has(tt.role, tt.perm); got != tt.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
	if !c.Any("student", PermTestCreate, PermTestView) {
		t.Error("Any should match the second permission")
	}
}

func TestRequire(t *testing.T) {
	h := Require(PermTestCreate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for role, want := range map[string]int{"teacher": http.StatusNoContent, "student": http.StatusForbidden, "": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if role != "" {
			req = req.WithContext(WithRole(context.Background(), role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %q: status %d, want %d", role, rec.Code, want)
		}
	}
}

func TestRequireAny(t *testing.T) {
	c := NewChecker(map[string][]string{
		"student": {PermResultViewOwn},
		"teacher": {PermResultViewTest},
		"guest":   {PermTestView},
	})
	h := c.RequireAny(PermResultViewOwn, PermResultViewTest)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	tests := []struct {
		role string
		want int
	}{
		{"student", http.StatusNoContent},
		{"teacher", http.StatusNoContent},
		{"guest", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), tt.role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("role %q: status %d, want %d", tt.role, rec.Code, tt.want)
		}
	}
}
