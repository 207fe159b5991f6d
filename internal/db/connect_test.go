package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestParseDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    Driver
		wantErr bool
	}{
		{"", DriverSQLite, false},
		{"SQLite3", DriverSQLite, false},
		{" pgx ", DriverPostgres, false},
		{"postgres", DriverPostgres, false},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDriver(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDriver(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWithForeignKeys(t *testing.T) {
	tests := []struct{ in, want string }{
		{":memory:", ":memory:?_pragma=foreign_keys(1)"},
		{"file:q.db?mode=rwc", "file:q.db?mode=rwc&_pragma=foreign_keys(1)"},
		{"q.db?_pragma=foreign_keys(0)", "q.db?_pragma=foreign_keys(0)"},
	}
	for _, tt := range tests {
		if got := withForeignKeys(tt.in); got != tt.want {
			t.Errorf("withForeignKeys(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Foreign keys must stay on after the pool replaces its connection.
func TestForeignKeysOnFreshConnection(t *testing.T) {
	ctx := context.Background()
	dbh, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "fk.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dbh.Close()

	// drop the connection that ran the schema
	dbh.SetMaxIdleConns(0)
	dbh.SetMaxIdleConns(1)

	var on int
	if err := dbh.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if on != 1 {
		t.Fatalf("foreign_keys = %d on a new connection", on)
	}

	now := int64(1)
	mustExec := func(q string, args ...any) {
		t.Helper()
		if _, err := dbh.ExecContext(ctx, q, args...); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}
	mustExec(`INSERT INTO users (email, full_name, password_hash) VALUES ('a@b.c', 'A', 'x')`)
	mustExec(`INSERT INTO tests (title, creator_id, created_at, updated_at) VALUES ('T', 1, $1, $1)`, now)
	mustExec(`INSERT INTO questions (test_id, question_text) VALUES (1, 'q')`)
	dbh.SetMaxIdleConns(0)
	dbh.SetMaxIdleConns(1)
	mustExec(`DELETE FROM tests WHERE id = 1`)

	var n int
	if err := dbh.QueryRowContext(ctx, "SELECT COUNT(*) FROM questions").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("%d questions survived the cascade", n)
	}
}
