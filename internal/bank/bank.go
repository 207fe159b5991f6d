// Package bank imports tests and questions from a YAML file.
package bank

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-quiz/internal/exam"
)

type File struct {
	CreatorEmail string    `yaml:"creator_email"`
	Tests        []TestDoc `yaml:"tests"`
}

type TestDoc struct {
	Title           string        `yaml:"title"`
	Description     string        `yaml:"description"`
	DurationMinutes *int          `yaml:"duration_minutes"`
	IsActive        *bool         `yaml:"is_active"`
	Questions       []QuestionDoc `yaml:"questions"`
}

type QuestionDoc struct {
	Text           string   `yaml:"text"`
	Type           string   `yaml:"type"`
	Options        []string `yaml:"options"`
	CorrectAnswers []string `yaml:"correct_answers"`
	Points         *int     `yaml:"points"`
	OrderNumber    *int     `yaml:"order_number"`
}

// Parse decodes a bank file. Unknown keys are rejected so typos surface.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, fmt.Errorf("%w: empty bank file", exam.ErrInvalidInput)
		}
		return File{}, fmt.Errorf("%w: %v", exam.ErrInvalidInput, err)
	}
	return f, nil
}

type Report struct {
	Tests     int     `json:"tests"`
	Questions int     `json:"questions"`
	TestIDs   []int64 `json:"test_ids"`
}

// Import validates the whole file first and only then writes, so an invalid
// question never leaves a half-imported bank behind.
func Import(ctx context.Context, store exam.Store, svc *exam.Service, f File) (Report, error) {
	if strings.TrimSpace(f.CreatorEmail) == "" {
		return Report{}, fmt.Errorf("%w: creator_email is required", exam.ErrInvalidInput)
	}
	creator, err := store.GetUserByEmail(ctx, f.CreatorEmail)
	if err != nil {
		return Report{}, fmt.Errorf("creator %s: %w", f.CreatorEmail, err)
	}
	if creator.Role != exam.RoleTeacher {
		return Report{}, fmt.Errorf("%w: creator %s is not a teacher", exam.ErrForbidden, creator.Email)
	}
	v := exam.Viewer{ID: creator.ID, Role: creator.Role}

	if len(f.Tests) == 0 {
		return Report{}, fmt.Errorf("%w: no tests in bank", exam.ErrInvalidInput)
	}
	for i, td := range f.Tests {
		if strings.TrimSpace(td.Title) == "" {
			return Report{}, fmt.Errorf("tests[%d]: %w: title is required", i, exam.ErrInvalidInput)
		}
		for j, qd := range td.Questions {
			q := qd.question(0, j)
			if err := exam.PrepareQuestion(&q); err != nil {
				return Report{}, fmt.Errorf("tests[%d].questions[%d]: %w", i, j, err)
			}
		}
	}

	var rep Report
	for i, td := range f.Tests {
		t, err := svc.CreateTest(ctx, v, exam.NewTest{
			Title:           td.Title,
			Description:     td.Description,
			DurationMinutes: td.DurationMinutes,
			IsActive:        td.IsActive,
		})
		if err != nil {
			return rep, fmt.Errorf("tests[%d]: %w", i, err)
		}
		for j, qd := range td.Questions {
			q := qd.question(t.ID, j)
			if _, err := svc.CreateQuestion(ctx, v, exam.NewQuestion{
				TestID:         t.ID,
				Text:           q.Text,
				Type:           q.Type,
				Options:        q.Options,
				CorrectAnswers: q.CorrectAnswers,
				Points:         &q.Points,
				OrderNumber:    q.OrderNumber,
			}); err != nil {
				return rep, fmt.Errorf("tests[%d].questions[%d]: %w", i, j, err)
			}
			rep.Questions++
		}
		rep.Tests++
		rep.TestIDs = append(rep.TestIDs, t.ID)
	}
	return rep, nil
}

// question applies the authoring defaults: single choice, one point, and
// file order when no order_number is given.
func (qd QuestionDoc) question(testID int64, index int) exam.Question {
	q := exam.Question{
		TestID:         testID,
		Text:           qd.Text,
		Type:           exam.QuestionType(strings.ToLower(strings.TrimSpace(qd.Type))),
		Options:        qd.Options,
		CorrectAnswers: qd.CorrectAnswers,
		Points:         1,
		OrderNumber:    index,
	}
	if q.Type == "" {
		q.Type = exam.QuestionSingle
	}
	if qd.Points != nil {
		q.Points = *qd.Points
	}
	if qd.OrderNumber != nil {
		q.OrderNumber = *qd.OrderNumber
	}
	return q
}
