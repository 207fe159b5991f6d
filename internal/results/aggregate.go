package results

import (
	"cmp"
	"slices"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// Summary is the response shape of a stored Result. Passed is recomputed
// from the percentage on every read.
type Summary struct {
	ID               int64           `json:"id"`
	TestID           int64           `json:"test_id"`
	UserID           int64           `json:"user_id"`
	Score            int             `json:"score"`
	MaxScore         int             `json:"max_score"`
	Percentage       float64         `json:"percentage"`
	Passed           bool            `json:"passed"`
	Answers          grading.Answers `json:"answers"`
	TimeSpentMinutes *int            `json:"time_spent_minutes"`
	CompletedAt      time.Time       `json:"completed_at"`
}

type Detailed struct {
	Summary
	TestTitle string `json:"test_title"`
	UserName  string `json:"user_name"`
}

type QuestionDetail struct {
	QuestionID      int64             `json:"question_id"`
	QuestionText    string            `json:"question_text"`
	QuestionType    exam.QuestionType `json:"question_type"`
	Options         []string          `json:"options"`
	CorrectAnswers  []string          `json:"correct_answers"`
	SelectedAnswers []string          `json:"selected_answers"`
	IsCorrect       *bool             `json:"is_correct"`
	Points          int               `json:"points"`
	EarnedPoints    int               `json:"earned_points"`
}

// Report is a detailed view together with its per-question breakdown.
type Report struct {
	Detailed
	Questions []QuestionDetail `json:"questions"`
}

// Statistics describes the distribution of percentages over every result of
// one test. MaxScore and MinScore are percentages, not points.
type Statistics struct {
	TotalAttempts int     `json:"total_attempts"`
	AverageScore  float64 `json:"average_score"`
	MaxScore      float64 `json:"max_score"`
	MinScore      float64 `json:"min_score"`
	PassRate      float64 `json:"pass_rate"`
}

// Aggregator builds read-side views over stored results. It never mutates
// its inputs.
type Aggregator struct {
	engine *grading.Engine
}

func NewAggregator(engine *grading.Engine) *Aggregator {
	return &Aggregator{engine: engine}
}

func (a *Aggregator) Summary(r exam.Result, includeAnswers bool) Summary {
	s := Summary{
		ID:               r.ID,
		TestID:           r.TestID,
		UserID:           r.UserID,
		Score:            r.Score,
		MaxScore:         r.MaxScore,
		Percentage:       r.Percentage,
		Passed:           a.engine.Passed(r.Percentage),
		Answers:          grading.Answers{},
		TimeSpentMinutes: r.TimeSpentMinutes,
		CompletedAt:      r.CompletedAt,
	}
	if includeAnswers {
		s.Answers = renormalize(r.Answers)
	}
	return s
}

func (a *Aggregator) Detailed(r exam.Result, includeAnswers bool) Detailed {
	return Detailed{
		Summary:   a.Summary(r, includeAnswers),
		TestTitle: r.TestTitle,
		UserName:  r.UserName,
	}
}

func (a *Aggregator) DetailedList(rs []exam.Result) []Detailed {
	out := make([]Detailed, 0, len(rs))
	for _, r := range rs {
		out = append(out, a.Detailed(r, true))
	}
	return out
}

// Breakdown regrades every question of the result's test against the stored
// answers, in order_number order. Text questions never expose a key.
func (a *Aggregator) Breakdown(r exam.Result, questions []exam.Question) []QuestionDetail {
	ordered := slices.Clone(questions)
	slices.SortStableFunc(ordered, func(x, y exam.Question) int {
		return cmp.Compare(x.OrderNumber, y.OrderNumber)
	})

	answers := renormalize(r.Answers)
	out := make([]QuestionDetail, 0, len(ordered))
	for _, q := range ordered {
		v := grading.Grade(q.Gradable(), answers.Selected(q.ID))
		d := QuestionDetail{
			QuestionID:      q.ID,
			QuestionText:    q.Text,
			QuestionType:    q.Type,
			Options:         nonNil(q.Options),
			CorrectAnswers:  nonNil(q.CorrectAnswers),
			SelectedAnswers: answers.Selected(q.ID),
			IsCorrect:       v.IsCorrect,
			Points:          q.Points,
			EarnedPoints:    v.EarnedPoints,
		}
		if q.Type == exam.QuestionText {
			d.CorrectAnswers = []string{}
		}
		out = append(out, d)
	}
	return out
}

func (a *Aggregator) Report(r exam.Result, questions []exam.Question) Report {
	return Report{
		Detailed:  a.Detailed(r, true),
		Questions: a.Breakdown(r, questions),
	}
}

func (a *Aggregator) Statistics(rs []exam.Result) Statistics {
	if len(rs) == 0 {
		return Statistics{}
	}
	var sum float64
	passed := 0
	st := Statistics{
		TotalAttempts: len(rs),
		MaxScore:      rs[0].Percentage,
		MinScore:      rs[0].Percentage,
	}
	for _, r := range rs {
		p := r.Percentage
		sum += p
		st.MaxScore = max(st.MaxScore, p)
		st.MinScore = min(st.MinScore, p)
		if a.engine.Passed(p) {
			passed++
		}
	}
	st.AverageScore = grading.Round2(sum / float64(len(rs)))
	st.PassRate = grading.Round2(100 * float64(passed) / float64(len(rs)))
	return st
}

// renormalize copies stored answers so views never share slices with the
// stored result.
func renormalize(a grading.Answers) grading.Answers {
	out := make(grading.Answers, len(a))
	for id, sel := range a {
		out[id] = slices.Clone(nonNil(sel))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
