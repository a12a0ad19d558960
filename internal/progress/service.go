package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// Service applies domain events to the persisted snapshot and publishes
// the resulting progress events
type Service struct {
	repo     *Repository
	events   *domain.EventDispatcher
	messages *Messages
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the wall clock used to derive "today"
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDispatcher publishes events on an existing dispatcher
func WithDispatcher(d *domain.EventDispatcher) Option {
	return func(s *Service) { s.events = d }
}

// WithMessages sets the locale used for health messages
func WithMessages(m *Messages) Option {
	return func(s *Service) { s.messages = m }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new progress service
func NewService(repo *Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		events:   domain.NewEventDispatcher(),
		messages: NewMessages("en"),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository returns the underlying repository
func (s *Service) Repository() *Repository {
	return s.repo
}

// Events returns the dispatcher progress events are published on
func (s *Service) Events() *domain.EventDispatcher {
	return s.events
}

// OnChange registers fn to run after every persisted change
func (s *Service) OnChange(fn func(domain.Event)) {
	s.events.SubscribeAll(domain.EventHandler(fn))
}

func (s *Service) today() string {
	return domain.DateOf(s.now())
}

// Snapshot returns the current snapshot
func (s *Service) Snapshot(ctx context.Context) *domain.ProgressSnapshot {
	return s.repo.Load()
}

// Summary derives today's figures from the current snapshot
func (s *Service) Summary(ctx context.Context) Summary {
	return Summarize(s.repo.Load(), s.today(), s.messages)
}

// IsRecipeCompletedToday reports whether the recipe was already recorded today
func (s *Service) IsRecipeCompletedToday(ctx context.Context, diet domain.DietType, name string) bool {
	snap := s.repo.Load()
	return snap.Nutrition[diet].CompletedRecipeKeys.Contains(domain.RecipeKey(name, s.today()))
}

// TodayHydration returns the milliliters logged today
func (s *Service) TodayHydration(ctx context.Context) int {
	return s.repo.Load().HydrationOn(s.today())
}

// TodaySleep returns the hours logged today
func (s *Service) TodaySleep(ctx context.Context) float64 {
	return s.repo.Load().SleepOn(s.today())
}

// apply runs one transition through the repository and publishes the event
// built by publish when the snapshot changed
func (s *Service) apply(op string, transition func(*domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool), publish func(*domain.ProgressSnapshot) domain.Event) (*domain.ProgressSnapshot, error) {
	changed := false
	snap, err := s.repo.Update(func(current *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
		next, ok := transition(current)
		changed = ok
		return next, ok
	})
	if err != nil {
		s.logger.Error("failed to persist progress", "op", op, "error", err)
		return snap, err
	}
	if !changed {
		s.logger.Debug("progress unchanged", "op", op)
		return snap, nil
	}
	s.events.Publish(publish(snap))
	return snap, nil
}

// CompleteChapter marks a chapter of area completed
func (s *Service) CompleteChapter(ctx context.Context, area domain.Area, chapter int) (*domain.ProgressSnapshot, error) {
	return s.apply("complete_chapter",
		func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
			return CompleteChapter(cur, area, chapter)
		},
		func(*domain.ProgressSnapshot) domain.Event {
			return domain.NewChapterCompletedEvent(area, chapter)
		})
}

// RecordRecipeCompletion records a recipe eaten today
func (s *Service) RecordRecipeCompletion(ctx context.Context, diet domain.DietType, name string, macros domain.Macros) (*domain.ProgressSnapshot, error) {
	date := s.today()
	return s.apply("record_recipe",
		func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
			return RecordRecipe(cur, diet, name, date, macros)
		},
		func(*domain.ProgressSnapshot) domain.Event {
			return domain.NewRecipeRecordedEvent(diet, domain.RecipeCompletion{
				Name: name, Date: date,
				Calories: macros.Calories, Protein: macros.Protein, Fat: macros.Fat, Carbs: macros.Carbs,
			})
		})
}

// CompleteWorkoutDay records a finished workout session for today
func (s *Service) CompleteWorkoutDay(ctx context.Context, day, caloriesBurned, durationSeconds int) (*domain.ProgressSnapshot, error) {
	date := s.today()
	firstRun := false
	return s.apply("complete_workout_day",
		func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
			firstRun = !cur.Workouts.CompletedDays.Contains(day)
			return CompleteWorkoutDay(cur, day, date, caloriesBurned, durationSeconds)
		},
		func(*domain.ProgressSnapshot) domain.Event {
			return domain.NewWorkoutDayFinishedEvent(domain.WorkoutSession{
				Date:            date,
				CaloriesBurned:  caloriesBurned,
				DurationSeconds: durationSeconds,
				DayCompleted:    day,
			}, firstRun)
		})
}

// AddHydration adds ml to today's water intake
func (s *Service) AddHydration(ctx context.Context, ml int) (*domain.ProgressSnapshot, error) {
	date := s.today()
	return s.apply("add_hydration",
		func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
			return AddHydration(cur, date, ml)
		},
		func(snap *domain.ProgressSnapshot) domain.Event {
			return domain.NewHydrationAddedEvent(date, ml, snap.HydrationOn(date))
		})
}

// SetSleep records today's sleep, replacing any earlier value
func (s *Service) SetSleep(ctx context.Context, hours float64) (*domain.ProgressSnapshot, error) {
	now := s.now()
	date := domain.DateOf(now)
	return s.apply("set_sleep",
		func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
			return SetSleep(cur, date, hours, now)
		},
		func(*domain.ProgressSnapshot) domain.Event {
			return domain.NewSleepRecordedEvent(date, hours)
		})
}

// AdvanceOnboarding completes an onboarding step
func (s *Service) AdvanceOnboarding(ctx context.Context, step int) (*domain.ProgressSnapshot, error) {
	return s.apply("advance_onboarding",
		func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
			return AdvanceOnboarding(cur, step)
		},
		func(snap *domain.ProgressSnapshot) domain.Event {
			return domain.NewOnboardingAdvancedEvent(step, snap.Onboarding)
		})
}

// Reset replaces the snapshot with a fresh one
func (s *Service) Reset(ctx context.Context) (*domain.ProgressSnapshot, error) {
	return s.apply("reset",
		func(*domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
			return domain.NewProgressSnapshot(), true
		},
		func(*domain.ProgressSnapshot) domain.Event {
			return domain.NewProgressResetEvent()
		})
}
