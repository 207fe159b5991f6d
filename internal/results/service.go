package results

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// Submission is the transient input of a test attempt. Answers arrive from
// an untyped boundary and are normalized by the scoring engine.
type Submission struct {
	TestID           int64          `json:"test_id"`
	Answers          map[string]any `json:"answers"`
	TimeSpentMinutes *int           `json:"time_spent_minutes"`
}

// EventSink receives every stored result.
type EventSink interface {
	ResultSubmitted(ctx context.Context, r exam.Result) error
}

// Observer receives scoring outcomes for metrics.
type Observer interface {
	ObserveSubmission(testID int64, percentage float64, passed bool)
}

type Service struct {
	store  exam.Store
	engine *grading.Engine
	agg    *Aggregator
	events EventSink
	obs    Observer
	log    *zap.Logger
}

type Option func(*Service)

func WithEventSink(e EventSink) Option { return func(s *Service) { s.events = e } }
func WithObserver(o Observer) Option   { return func(s *Service) { s.obs = o } }
func WithLogger(l *zap.Logger) Option  { return func(s *Service) { s.log = l } }

func NewService(store exam.Store, engine *grading.Engine, opts ...Option) *Service {
	s := &Service{
		store:  store,
		engine: engine,
		agg:    NewAggregator(engine),
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Aggregator() *Aggregator { return s.agg }

// Submit scores and stores one attempt. The active gate lives here; the
// engine itself scores any test it is given.
func (s *Service) Submit(ctx context.Context, v exam.Viewer, sub Submission) (Summary, error) {
	t, err := s.store.GetTest(ctx, sub.TestID)
	if err != nil {
		return Summary{}, err
	}
	if !t.IsActive {
		return Summary{}, fmt.Errorf("%w: test %d", exam.ErrTestInactive, t.ID)
	}
	if sub.TimeSpentMinutes != nil && *sub.TimeSpentMinutes < 0 {
		return Summary{}, fmt.Errorf("%w: time_spent_minutes must not be negative", exam.ErrInvalidInput)
	}

	out := s.engine.Score(exam.Gradables(t.Questions), sub.Answers)
	stored, err := s.store.InsertResult(ctx, exam.Result{
		TestID:           t.ID,
		UserID:           v.ID,
		Answers:          out.Answers,
		Score:            out.Score,
		MaxScore:         out.MaxScore,
		Percentage:       out.Percentage,
		TimeSpentMinutes: sub.TimeSpentMinutes,
	})
	if err != nil {
		s.log.Error("store result", zap.Int64("test_id", t.ID), zap.Int64("user_id", v.ID), zap.Error(err))
		return Summary{}, err
	}

	s.log.Info("result submitted",
		zap.Int64("result_id", stored.ID),
		zap.Int64("test_id", t.ID),
		zap.Int64("user_id", v.ID),
		zap.Int("score", out.Score),
		zap.Float64("percentage", out.Percentage),
		zap.Bool("passed", out.Passed))
	if s.obs != nil {
		s.obs.ObserveSubmission(t.ID, out.Percentage, out.Passed)
	}
	if s.events != nil {
		// the result is already committed; a lost event is logged, not surfaced
		if err := s.events.ResultSubmitted(ctx, stored); err != nil {
			s.log.Error("append result event", zap.Int64("result_id", stored.ID), zap.Error(err))
		}
	}
	return s.agg.Summary(stored, true), nil
}

func (s *Service) Mine(ctx context.Context, v exam.Viewer) ([]Detailed, error) {
	rs, err := s.store.ListResultsByUser(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	return s.agg.DetailedList(rs), nil
}

func (s *Service) ForTest(ctx context.Context, v exam.Viewer, testID int64) ([]Detailed, error) {
	if _, err := s.ownedTest(ctx, v, testID); err != nil {
		return nil, err
	}
	rs, err := s.store.ListResultsByTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	return s.agg.DetailedList(rs), nil
}

func (s *Service) Statistics(ctx context.Context, v exam.Viewer, testID int64) (Statistics, error) {
	if _, err := s.ownedTest(ctx, v, testID); err != nil {
		return Statistics{}, err
	}
	return s.TestStatistics(ctx, testID)
}

// TestStatistics skips authorization; used by operator tooling.
func (s *Service) TestStatistics(ctx context.Context, testID int64) (Statistics, error) {
	if _, err := s.store.GetTest(ctx, testID); err != nil {
		return Statistics{}, err
	}
	rs, err := s.store.ListResultsByTest(ctx, testID)
	if err != nil {
		return Statistics{}, err
	}
	return s.agg.Statistics(rs), nil
}

// Detail returns a result with its question breakdown. Students see only
// their own results, teachers only results of tests they created.
func (s *Service) Detail(ctx context.Context, v exam.Viewer, resultID int64) (Report, error) {
	r, err := s.store.GetResult(ctx, resultID)
	if err != nil {
		return Report{}, err
	}
	t, err := s.store.GetTest(ctx, r.TestID)
	if err != nil {
		return Report{}, err
	}
	switch {
	case v.IsTeacher():
		if t.CreatorID != v.ID {
			return Report{}, exam.ErrForbidden
		}
	case r.UserID != v.ID:
		return Report{}, exam.ErrForbidden
	}
	return s.agg.Report(r, t.Questions), nil
}

func (s *Service) ownedTest(ctx context.Context, v exam.Viewer, testID int64) (exam.Test, error) {
	if !v.IsTeacher() {
		return exam.Test{}, exam.ErrForbidden
	}
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return exam.Test{}, err
	}
	if t.CreatorID != v.ID {
		return exam.Test{}, exam.ErrForbidden
	}
	return t, nil
}
