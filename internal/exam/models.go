package exam

import (
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

func (r Role) Valid() bool { return r == RoleStudent || r == RoleTeacher }

// QuestionType tags how a question is graded.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionText     QuestionType = "text" // free-form, graded manually
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingle, QuestionMultiple, QuestionText:
		return true
	}
	return false
}

type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// Viewer is the authenticated principal handed in by the auth layer.
type Viewer struct {
	ID   int64
	Role Role
}

func (v Viewer) IsTeacher() bool { return v.Role == RoleTeacher }

type Question struct {
	ID             int64        `json:"id"`
	TestID         int64        `json:"test_id"`
	Text           string       `json:"question_text"`
	Type           QuestionType `json:"question_type"`
	Options        []string     `json:"options"`
	CorrectAnswers []string     `json:"correct_answers"`
	Points         int          `json:"points"`
	OrderNumber    int          `json:"order_number"`
}

// StudentView hides the answer key.
func (q Question) StudentView() StudentQuestion {
	return StudentQuestion{
		ID:          q.ID,
		Text:        q.Text,
		Type:        q.Type,
		Options:     nonNil(q.Options),
		Points:      q.Points,
		OrderNumber: q.OrderNumber,
	}
}

type StudentQuestion struct {
	ID          int64        `json:"id"`
	Text        string       `json:"question_text"`
	Type        QuestionType `json:"question_type"`
	Options     []string     `json:"options"`
	Points      int          `json:"points"`
	OrderNumber int          `json:"order_number"`
}

type Test struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CreatorID       int64      `json:"creator_id"`
	DurationMinutes int        `json:"duration_minutes"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Questions       []Question `json:"questions"`
}

// StudentTest is what a student sees when opening a test.
type StudentTest struct {
	ID              int64             `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	DurationMinutes int               `json:"duration_minutes"`
	IsActive        bool              `json:"is_active"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Questions       []StudentQuestion `json:"questions"`
}

func (t Test) StudentView() StudentTest {
	qs := make([]StudentQuestion, 0, len(t.Questions))
	for _, q := range t.Questions {
		qs = append(qs, q.StudentView())
	}
	return StudentTest{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		DurationMinutes: t.DurationMinutes,
		IsActive:        t.IsActive,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		Questions:       qs,
	}
}

type TestSummary struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	QuestionCount   int       `json:"question_count"`
}

// TestPatch carries a partial update; nil fields are left untouched.
type TestPatch struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	DurationMinutes *int    `json:"duration_minutes"`
	IsActive        *bool   `json:"is_active"`
}

type QuestionPatch struct {
	Text           *string       `json:"question_text"`
	Type           *QuestionType `json:"question_type"`
	Options        *[]string     `json:"options"`
	CorrectAnswers *[]string     `json:"correct_answers"`
	Points         *int          `json:"points"`
	OrderNumber    *int          `json:"order_number"`
}

// Result is one stored submission. Pass/fail is never stored; it is derived
// from Percentage on every read.
type Result struct {
	ID               int64           `json:"id"`
	TestID           int64           `json:"test_id"`
	UserID           int64           `json:"user_id"`
	Answers          grading.Answers `json:"answers"`
	Score            int             `json:"score"`
	MaxScore         int             `json:"max_score"`
	Percentage       float64         `json:"percentage"`
	TimeSpentMinutes *int            `json:"time_spent_minutes"`
	CompletedAt      time.Time       `json:"completed_at"`

	// Denormalized from the joined test and user rows.
	TestTitle string `json:"-"`
	UserName  string `json:"-"`
}

type ListOpts struct {
	Skip       int
	Limit      int
	ActiveOnly bool
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Gradable projects a question onto the grader's view.
func (q Question) Gradable() grading.Q {
	return grading.Q{ID: q.ID, Type: string(q.Type), Points: q.Points, AnswerKey: q.CorrectAnswers}
}

func Gradables(qs []Question) []grading.Q {
	out := make([]grading.Q, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.Gradable())
	}
	return out
}
