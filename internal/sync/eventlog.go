package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/exam"
)

const (
	TypeResultSubmitted = "ResultSubmitted"

	defaultSite = "local"
)

// Event is one row of the append-only event_log. Offset is assigned by the
// database and is monotonic per database.
type Event struct {
	Offset    int64           `json:"offset"`
	SiteID    string          `json:"site_id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

type EventRepo struct {
	db   *sql.DB
	site string
	now  func() time.Time
}

func NewEventRepo(db *sql.DB, site string) *EventRepo {
	if site == "" {
		site = defaultSite
	}
	return &EventRepo{db: db, site: site, now: time.Now}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.site
	}
	if len(e.Data) == 0 {
		e.Data = json.RawMessage("{}")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, string(e.Data), r.now().Unix())
	if err != nil {
		return fmt.Errorf("append %s event: %w", e.Type, err)
	}
	return nil
}

type resultPayload struct {
	ResultID   int64   `json:"result_id"`
	TestID     int64   `json:"test_id"`
	UserID     int64   `json:"user_id"`
	Score      int     `json:"score"`
	MaxScore   int     `json:"max_score"`
	Percentage float64 `json:"percentage"`
}

// ResultSubmitted records a stored result. The answers themselves stay in
// the results table.
func (r *EventRepo) ResultSubmitted(ctx context.Context, res exam.Result) error {
	data, err := json.Marshal(resultPayload{
		ResultID:   res.ID,
		TestID:     res.TestID,
		UserID:     res.UserID,
		Score:      res.Score,
		MaxScore:   res.MaxScore,
		Percentage: res.Percentage,
	})
	if err != nil {
		return err
	}
	return r.Append(ctx, Event{
		Type: TypeResultSubmitted,
		Key:  strconv.FormatInt(res.ID, 10),
		Data: data,
	})
}

// Since returns up to limit events with an offset greater than after, oldest
// first.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT "offset", site_id, typ, key, data, created_at
		   FROM event_log WHERE "offset" > $1 ORDER BY "offset" LIMIT $2`,
		after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Offset, &e.SiteID, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
