package syncx

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/exam"
)

func TestEventRepoResultSubmitted(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbh.Close()

	repo := NewEventRepo(dbh, "")
	repo.now = func() time.Time { return time.Unix(1700000000, 0) }

	if err := repo.ResultSubmitted(ctx, exam.Result{ID: 7, TestID: 3, UserID: 2, Score: 5, MaxScore: 10, Percentage: 50}); err != nil {
		t.Fatalf("ResultSubmitted: %v", err)
	}
	if err := repo.Append(ctx, Event{Type: "Other", Key: "x"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, err := repo.Since(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	e := events[0]
	if e.Type != TypeResultSubmitted || e.Key != "7" || e.SiteID != "local" || e.CreatedAt != 1700000000 {
		t.Fatalf("unexpected event %+v", e)
	}
	var p resultPayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.TestID != 3 || p.Percentage != 50 {
		t.Fatalf("payload = %+v", p)
	}

	rest, _ := repo.Since(ctx, e.Offset, 10)
	if len(rest) != 1 || rest[0].Type != "Other" || string(rest[0].Data) != "{}" {
		t.Fatalf("Since(offset) = %+v", rest)
	}
}
