package exam

import (
	"fmt"
	"strings"
)

// PrepareAnswers checks the option/answer-key shape of a question and returns
// the cleaned lists that should be stored. Text questions carry neither.
func PrepareAnswers(t QuestionType, options, correct []string) ([]string, []string, error) {
	if !t.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, t)
	}
	if t == QuestionText {
		return []string{}, []string{}, nil
	}

	cleanOpts := dropBlank(options)
	if len(cleanOpts) < 2 {
		return nil, nil, fmt.Errorf("%w: at least two options are required", ErrInvalidAnswerShape)
	}
	cleanCorrect := dropBlank(correct)
	if len(cleanCorrect) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one correct answer is required", ErrInvalidAnswerShape)
	}

	known := make(map[string]struct{}, len(cleanOpts))
	for _, o := range cleanOpts {
		known[o] = struct{}{}
	}
	for _, c := range cleanCorrect {
		if _, ok := known[c]; !ok {
			return nil, nil, fmt.Errorf("%w: correct answer %q is not among the options", ErrInvalidAnswerShape, c)
		}
	}
	return cleanOpts, cleanCorrect, nil
}

// PrepareQuestion validates a whole question in place.
func PrepareQuestion(q *Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question_text is required", ErrInvalidInput)
	}
	if q.Points < 0 {
		return fmt.Errorf("%w: points must not be negative", ErrInvalidInput)
	}
	opts, correct, err := PrepareAnswers(q.Type, q.Options, q.CorrectAnswers)
	if err != nil {
		return err
	}
	q.Options, q.CorrectAnswers = opts, correct
	return nil
}

// ApplyTo merges a partial update onto a stored question and re-validates
// the effective shape.
func (p QuestionPatch) ApplyTo(q Question) (Question, error) {
	if p.Text != nil {
		q.Text = *p.Text
	}
	if p.Type != nil {
		q.Type = *p.Type
	}
	if p.Options != nil {
		q.Options = *p.Options
	}
	if p.CorrectAnswers != nil {
		q.CorrectAnswers = *p.CorrectAnswers
	}
	if p.Points != nil {
		q.Points = *p.Points
	}
	if p.OrderNumber != nil {
		q.OrderNumber = *p.OrderNumber
	}
	if err := PrepareQuestion(&q); err != nil {
		return Question{}, err
	}
	return q, nil
}

func dropBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
