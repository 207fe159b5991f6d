package exam

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Service implements test and question authoring. Only the creator of a
// test may mutate it or its questions.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

type NewTest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationMinutes *int   `json:"duration_minutes"`
	IsActive        *bool  `json:"is_active"`
}

func (s *Service) CreateTest(ctx context.Context, v Viewer, in NewTest) (Test, error) {
	if !v.IsTeacher() {
		return Test{}, ErrForbidden
	}
	t := Test{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		CreatorID:       v.ID,
		DurationMinutes: 60,
		IsActive:        true,
	}
	if in.DurationMinutes != nil {
		t.DurationMinutes = *in.DurationMinutes
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	if err := validateTest(t); err != nil {
		return Test{}, err
	}
	created, err := s.store.CreateTest(ctx, t)
	if err != nil {
		return Test{}, err
	}
	s.log.Info("test created", zap.Int64("test_id", created.ID), zap.Int64("creator_id", v.ID))
	return created, nil
}

// GetTest returns the full test; callers decide whether to project the
// student view.
func (s *Service) GetTest(ctx context.Context, id int64) (Test, error) {
	return s.store.GetTest(ctx, id)
}

func (s *Service) ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error) {
	return s.store.ListTests(ctx, opts)
}

func (s *Service) ListMyTests(ctx context.Context, v Viewer) ([]Test, error) {
	if !v.IsTeacher() {
		return nil, ErrForbidden
	}
	return s.store.ListTestsByCreator(ctx, v.ID)
}

func (s *Service) UpdateTest(ctx context.Context, v Viewer, id int64, p TestPatch) (Test, error) {
	t, err := s.ownedTest(ctx, v, id)
	if err != nil {
		return Test{}, err
	}
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DurationMinutes != nil {
		t.DurationMinutes = *p.DurationMinutes
	}
	if p.IsActive != nil {
		t.IsActive = *p.IsActive
	}
	if err := validateTest(t); err != nil {
		return Test{}, err
	}
	return s.store.UpdateTest(ctx, t)
}

// DeleteTest removes a test and its questions. Results are immutable, so a
// test that has been taken can only be deactivated.
func (s *Service) DeleteTest(ctx context.Context, v Viewer, id int64) error {
	if _, err := s.ownedTest(ctx, v, id); err != nil {
		return err
	}
	n, err := s.store.CountResultsByTest(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: test %d has %d results; deactivate it instead", ErrConflict, id, n)
	}
	if err := s.store.DeleteTest(ctx, id); err != nil {
		return err
	}
	s.log.Info("test deleted", zap.Int64("test_id", id), zap.Int64("creator_id", v.ID))
	return nil
}

type NewQuestion struct {
	TestID         int64        `json:"test_id"`
	Text           string       `json:"question_text"`
	Type           QuestionType `json:"question_type"`
	Options        []string     `json:"options"`
	CorrectAnswers []string     `json:"correct_answers"`
	Points         *int         `json:"points"`
	OrderNumber    int          `json:"order_number"`
}

func (s *Service) CreateQuestion(ctx context.Context, v Viewer, in NewQuestion) (Question, error) {
	if _, err := s.ownedTest(ctx, v, in.TestID); err != nil {
		return Question{}, err
	}
	q := Question{
		TestID:         in.TestID,
		Text:           in.Text,
		Type:           in.Type,
		Options:        in.Options,
		CorrectAnswers: in.CorrectAnswers,
		Points:         1,
		OrderNumber:    in.OrderNumber,
	}
	if q.Type == "" {
		q.Type = QuestionSingle
	}
	if in.Points != nil {
		q.Points = *in.Points
	}
	if err := PrepareQuestion(&q); err != nil {
		return Question{}, err
	}
	return s.store.CreateQuestion(ctx, q)
}

func (s *Service) GetQuestion(ctx context.Context, v Viewer, id int64) (Question, error) {
	if !v.IsTeacher() {
		return Question{}, ErrForbidden
	}
	return s.store.GetQuestion(ctx, id)
}

func (s *Service) UpdateQuestion(ctx context.Context, v Viewer, id int64, p QuestionPatch) (Question, error) {
	q, err := s.ownedQuestion(ctx, v, id)
	if err != nil {
		return Question{}, err
	}
	merged, err := p.ApplyTo(q)
	if err != nil {
		return Question{}, err
	}
	return s.store.UpdateQuestion(ctx, merged)
}

func (s *Service) DeleteQuestion(ctx context.Context, v Viewer, id int64) error {
	if _, err := s.ownedQuestion(ctx, v, id); err != nil {
		return err
	}
	return s.store.DeleteQuestion(ctx, id)
}

func (s *Service) ownedTest(ctx context.Context, v Viewer, id int64) (Test, error) {
	if !v.IsTeacher() {
		return Test{}, ErrForbidden
	}
	t, err := s.store.GetTest(ctx, id)
	if err != nil {
		return Test{}, err
	}
	if t.CreatorID != v.ID {
		return Test{}, ErrForbidden
	}
	return t, nil
}

func (s *Service) ownedQuestion(ctx context.Context, v Viewer, id int64) (Question, error) {
	if !v.IsTeacher() {
		return Question{}, ErrForbidden
	}
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}
	if _, err := s.ownedTest(ctx, v, q.TestID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Question{}, fmt.Errorf("parent test of question %d: %w", id, ErrNotFound)
		}
		return Question{}, err
	}
	return q, nil
}

func validateTest(t Test) error {
	if t.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if t.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration_minutes must be positive", ErrInvalidInput)
	}
	return nil
}
