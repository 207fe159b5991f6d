package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, now: time.Now}
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ---- users ----

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	var exist int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=$1`, u.Email).Scan(&exist)
	switch {
	case err == nil:
		return User{}, fmt.Errorf("%w: email already registered", ErrConflict)
	case !errors.Is(err, sql.ErrNoRows):
		return User{}, err
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (email,full_name,password_hash,role) VALUES ($1,$2,$3,$4) RETURNING id`,
		u.Email, u.FullName, u.PasswordHash, string(u.Role)).Scan(&u.ID)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id,email,full_name,password_hash,role FROM users WHERE id=$1`, id))
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id,email,full_name,password_hash,role FROM users WHERE email=$1`,
		strings.ToLower(strings.TrimSpace(email))))
}

func (s *SQLStore) UpdateUserPassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectOne(res, "user")
}

func (s *SQLStore) scanUser(row *sql.Row) (User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, fmt.Errorf("user: %w", ErrNotFound)
		}
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

// ---- tests ----

func (s *SQLStore) CreateTest(ctx context.Context, t Test) (Test, error) {
	now := s.now().UTC().Truncate(time.Second)
	t.CreatedAt, t.UpdatedAt = now, now
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO tests (title,description,creator_id,duration_minutes,is_active,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		t.Title, t.Description, t.CreatorID, t.DurationMinutes, t.IsActive, now.Unix(), now.Unix()).Scan(&t.ID)
	if err != nil {
		return Test{}, fmt.Errorf("insert test: %w", err)
	}
	if t.Questions == nil {
		t.Questions = []Question{}
	}
	return t, nil
}

const testColumns = `id,title,description,creator_id,duration_minutes,is_active,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTest(r rowScanner) (Test, error) {
	var t Test
	var created, updated int64
	if err := r.Scan(&t.ID, &t.Title, &t.Description, &t.CreatorID, &t.DurationMinutes, &t.IsActive, &created, &updated); err != nil {
		return Test{}, err
	}
	t.CreatedAt = time.Unix(created, 0).UTC()
	t.UpdatedAt = time.Unix(updated, 0).UTC()
	return t, nil
}

func (s *SQLStore) GetTest(ctx context.Context, id int64) (Test, error) {
	t, err := scanTest(s.db.QueryRowContext(ctx, `SELECT `+testColumns+` FROM tests WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, fmt.Errorf("test %d: %w", id, ErrNotFound)
		}
		return Test{}, err
	}
	if t.Questions, err = s.ListQuestions(ctx, id); err != nil {
		return Test{}, err
	}
	return t, nil
}

func (s *SQLStore) ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if opts.Skip < 0 {
		opts.Skip = 0
	}
	q := `SELECT t.id,t.title,t.description,t.duration_minutes,t.is_active,t.created_at,
		(SELECT COUNT(*) FROM questions q WHERE q.test_id=t.id)
		FROM tests t`
	args := []any{}
	if opts.ActiveOnly {
		q += ` WHERE t.is_active=$1`
		args = append(args, true)
	}
	q += fmt.Sprintf(` ORDER BY t.id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Skip)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TestSummary{}
	for rows.Next() {
		var ts TestSummary
		var created int64
		if err := rows.Scan(&ts.ID, &ts.Title, &ts.Description, &ts.DurationMinutes, &ts.IsActive, &created, &ts.QuestionCount); err != nil {
			return nil, err
		}
		ts.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListTestsByCreator(ctx context.Context, creatorID int64) ([]Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testColumns+` FROM tests WHERE creator_id=$1 ORDER BY id`, creatorID)
	if err != nil {
		return nil, err
	}
	out := []Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// questions are loaded after the cursor is closed; sqlite runs on a single connection
	for i := range out {
		if out[i].Questions, err = s.ListQuestions(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLStore) UpdateTest(ctx context.Context, t Test) (Test, error) {
	t.UpdatedAt = s.now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx,
		`UPDATE tests SET title=$1, description=$2, duration_minutes=$3, is_active=$4, updated_at=$5 WHERE id=$6`,
		t.Title, t.Description, t.DurationMinutes, t.IsActive, t.UpdatedAt.Unix(), t.ID)
	if err != nil {
		return Test{}, fmt.Errorf("update test: %w", err)
	}
	if err := expectOne(res, "test"); err != nil {
		return Test{}, err
	}
	return s.GetTest(ctx, t.ID)
}

func (s *SQLStore) DeleteTest(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	return expectOne(res, "test")
}

// ---- questions ----

const questionColumns = `id,test_id,question_text,question_type,options_json,correct_answers_json,points,order_number`

func scanQuestion(r rowScanner) (Question, error) {
	var q Question
	var typ, opts, correct string
	if err := r.Scan(&q.ID, &q.TestID, &q.Text, &typ, &opts, &correct, &q.Points, &q.OrderNumber); err != nil {
		return Question{}, err
	}
	q.Type = QuestionType(typ)
	q.Options = decodeStrings(opts)
	q.CorrectAnswers = decodeStrings(correct)
	return q, nil
}

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	opts, _ := json.Marshal(nonNil(q.Options))
	correct, _ := json.Marshal(nonNil(q.CorrectAnswers))
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO questions (test_id,question_text,question_type,options_json,correct_answers_json,points,order_number)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		q.TestID, q.Text, string(q.Type), string(opts), string(correct), q.Points, q.OrderNumber).Scan(&q.ID)
	if err != nil {
		return Question{}, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, fmt.Errorf("question %d: %w", id, ErrNotFound)
		}
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, testID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE test_id=$1 ORDER BY order_number, id`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	opts, _ := json.Marshal(nonNil(q.Options))
	correct, _ := json.Marshal(nonNil(q.CorrectAnswers))
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET question_text=$1, question_type=$2, options_json=$3, correct_answers_json=$4,
		points=$5, order_number=$6 WHERE id=$7`,
		q.Text, string(q.Type), string(opts), string(correct), q.Points, q.OrderNumber, q.ID)
	if err != nil {
		return Question{}, fmt.Errorf("update question: %w", err)
	}
	if err := expectOne(res, "question"); err != nil {
		return Question{}, err
	}
	return s.GetQuestion(ctx, q.ID)
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return expectOne(res, "question")
}

// ---- results ----

func (s *SQLStore) InsertResult(ctx context.Context, r Result) (Result, error) {
	if r.Answers == nil {
		r.Answers = grading.Answers{}
	}
	buf, err := json.Marshal(r.Answers)
	if err != nil {
		return Result{}, err
	}
	if r.CompletedAt.IsZero() {
		r.CompletedAt = s.now().UTC().Truncate(time.Second)
	}
	var spent sql.NullInt64
	if r.TimeSpentMinutes != nil {
		spent = sql.NullInt64{Int64: int64(*r.TimeSpentMinutes), Valid: true}
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO results (test_id,user_id,answers_json,score,max_score,percentage,time_spent_minutes,completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		r.TestID, r.UserID, string(buf), r.Score, r.MaxScore, r.Percentage, spent, r.CompletedAt.Unix()).Scan(&r.ID)
	if err != nil {
		return Result{}, fmt.Errorf("insert result: %w", err)
	}
	// fill the denormalized fields so callers see the same shape as on read
	return s.GetResult(ctx, r.ID)
}

const resultSelect = `SELECT r.id,r.test_id,r.user_id,r.answers_json,r.score,r.max_score,r.percentage,
	r.time_spent_minutes,r.completed_at,t.title,u.full_name
	FROM results r
	JOIN tests t ON t.id=r.test_id
	JOIN users u ON u.id=r.user_id`

func scanResult(rs rowScanner) (Result, error) {
	var r Result
	var answers string
	var spent sql.NullInt64
	var completed int64
	if err := rs.Scan(&r.ID, &r.TestID, &r.UserID, &answers, &r.Score, &r.MaxScore, &r.Percentage,
		&spent, &completed, &r.TestTitle, &r.UserName); err != nil {
		return Result{}, err
	}
	r.Answers = grading.NormalizeJSON([]byte(answers))
	if spent.Valid {
		v := int(spent.Int64)
		r.TimeSpentMinutes = &v
	}
	r.CompletedAt = time.Unix(completed, 0).UTC()
	return r, nil
}

func (s *SQLStore) GetResult(ctx context.Context, id int64) (Result, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx, resultSelect+` WHERE r.id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, fmt.Errorf("result %d: %w", id, ErrNotFound)
		}
		return Result{}, err
	}
	return r, nil
}

func (s *SQLStore) ListResultsByUser(ctx context.Context, userID int64) ([]Result, error) {
	return s.listResults(ctx, resultSelect+` WHERE r.user_id=$1 ORDER BY r.id`, userID)
}

func (s *SQLStore) ListResultsByTest(ctx context.Context, testID int64) ([]Result, error) {
	return s.listResults(ctx, resultSelect+` WHERE r.test_id=$1 ORDER BY r.id`, testID)
}

func (s *SQLStore) CountResultsByTest(ctx context.Context, testID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results WHERE test_id=$1`, testID).Scan(&n)
	return n, err
}

func (s *SQLStore) listResults(ctx context.Context, query string, arg any) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- helpers ----

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func decodeStrings(s string) []string {
	out := []string{}
	if s == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
