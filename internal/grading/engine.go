package grading

import (
	"slices"
	"strconv"
)

// Question kinds understood by the grader.
const (
	KindSingle   = "single"
	KindMultiple = "multiple"
	KindText     = "text"
)

// Q is a minimal view of a question needed for grading. exam.Question.Gradable
// builds it from a stored question.
type Q struct {
	ID        int64
	Type      string
	Points    int
	AnswerKey []string
}

// Verdict is the outcome of grading a single question.
// IsCorrect is nil for questions that need manual review.
type Verdict struct {
	IsCorrect    *bool
	EarnedPoints int
}

// Grade decides correctness of one selection. Choice questions need an exact
// match of the sorted selection against the sorted key, duplicates included,
// so ["B","A"] matches ["A","B"] but ["A","A","B"] does not. A choice question
// without a key is always wrong.
func Grade(q Q, selected []string) Verdict {
	switch q.Type {
	case KindText:
		return Verdict{}
	default:
		key := sortedCopy(q.AnswerKey)
		if len(key) == 0 {
			return Verdict{IsCorrect: boolPtr(false)}
		}
		ok := slices.Equal(sortedCopy(selected), key)
		v := Verdict{IsCorrect: boolPtr(ok)}
		if ok {
			v.EarnedPoints = q.Points
		}
		return v
	}
}

// Outcome is what a submission scores to. Passed is reported but is not
// meant to be persisted.
type Outcome struct {
	Score      int
	MaxScore   int
	Percentage float64
	Passed     bool
	Answers    Answers
}

// Engine scores submissions against a pass threshold (percent).
type Engine struct {
	passPercentage int
}

func NewEngine(passPercentage int) *Engine {
	return &Engine{passPercentage: passPercentage}
}

func (e *Engine) PassPercentage() int { return e.passPercentage }

// Passed reports whether a percentage meets the threshold.
func (e *Engine) Passed(percentage float64) bool {
	return percentage >= float64(e.passPercentage)
}

// Score grades every question of a test. It places no restriction on the
// test's state; callers gate inactive tests. Unknown question ids in the
// submission are ignored.
func (e *Engine) Score(questions []Q, raw map[string]any) Outcome {
	answers := Normalize(raw)
	return e.ScoreAnswers(questions, answers)
}

// ScoreAnswers is Score for an already-normalized submission.
func (e *Engine) ScoreAnswers(questions []Q, answers Answers) Outcome {
	if answers == nil {
		answers = Answers{}
	}
	total, maxScore := 0, 0
	for _, q := range questions {
		maxScore += q.Points
		if q.Type == KindText {
			continue
		}
		total += Grade(q, answers.Selected(q.ID)).EarnedPoints
	}
	pct := Percentage(total, maxScore)
	return Outcome{
		Score:      total,
		MaxScore:   maxScore,
		Percentage: pct,
		Passed:     e.Passed(pct),
		Answers:    answers,
	}
}

// Percentage is score/max*100 rounded to two decimals, 0 when max is 0.
func Percentage(score, maxScore int) float64 {
	if maxScore <= 0 {
		return 0
	}
	return Round2(float64(score) / float64(maxScore) * 100)
}

// Round2 rounds to two decimals using the exact binary value of v, so true
// halves go to the even digit: 3.125 -> 3.12, 0.375 -> 0.38.
func Round2(v float64) float64 {
	f, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return f
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	slices.Sort(out)
	return out
}

func boolPtr(b bool) *bool { return &b }
