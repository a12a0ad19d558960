package progress

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.Local)

func setupService(t *testing.T) *Service {
	t.Helper()
	repo, _ := setupRepository(t)
	return NewService(repo, WithClock(func() time.Time { return fixedNow }))
}

func TestNewService(t *testing.T) {
	service := setupService(t)
	if service == nil {
		t.Fatal("NewService() returned nil")
	}
}

func TestService_AddHydration(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	var events []domain.DailyMetricEvent
	service.Events().Subscribe(domain.EventHydrationAdded, func(e domain.Event) {
		events = append(events, e.(domain.DailyMetricEvent))
	})

	if _, err := service.AddHydration(ctx, 250); err != nil {
		t.Fatalf("AddHydration() error = %v", err)
	}
	if _, err := service.AddHydration(ctx, 500); err != nil {
		t.Fatalf("AddHydration() error = %v", err)
	}

	if got := service.TodayHydration(ctx); got != 750 {
		t.Errorf("TodayHydration() = %d; want 750", got)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d; want 2", len(events))
	}
	if events[1].Total != 750 || events[1].Date != "2025-03-14" {
		t.Errorf("last event = %+v", events[1])
	}
}

func TestService_Persists(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	service := NewService(repo, WithClock(func() time.Time { return fixedNow }))

	if _, err := service.CompleteChapter(ctx, domain.MindsetArea(), 1); err != nil {
		t.Fatalf("CompleteChapter() error = %v", err)
	}

	// a second service over the same repository sees the change
	other := NewService(repo)
	snap := other.Snapshot(ctx)
	if !snap.Mindset.CompletedChapters.Contains(1) {
		t.Error("completed chapter should be persisted")
	}
}

func TestService_NoOpPublishesNothing(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	count := 0
	service.OnChange(func(domain.Event) { count++ })

	if _, err := service.CompleteChapter(ctx, domain.MindsetArea(), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := service.CompleteChapter(ctx, domain.MindsetArea(), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := service.CompleteChapter(ctx, domain.MindsetArea(), 42); err != nil {
		t.Fatal(err)
	}

	if count != 1 {
		t.Errorf("change notifications = %d; want 1", count)
	}
}

func TestService_RecordRecipeCompletion(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	if service.IsRecipeCompletedToday(ctx, domain.DietKeto, "Omelette") {
		t.Error("recipe should not be completed yet")
	}

	macros := domain.Macros{Calories: 320, Protein: 22, Fat: 24, Carbs: 2}
	if _, err := service.RecordRecipeCompletion(ctx, domain.DietKeto, "Omelette", macros); err != nil {
		t.Fatalf("RecordRecipeCompletion() error = %v", err)
	}

	if !service.IsRecipeCompletedToday(ctx, domain.DietKeto, "Omelette") {
		t.Error("recipe should be completed today")
	}

	summary := service.Summary(ctx)
	if summary.Macros.Calories != 320 || summary.Macros.Protein != 22 {
		t.Errorf("Summary().Macros = %+v", summary.Macros)
	}
}

func TestService_CompleteWorkoutDay(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	var firstRuns []bool
	service.Events().Subscribe(domain.EventWorkoutDayFinished, func(e domain.Event) {
		firstRuns = append(firstRuns, e.(domain.WorkoutDayFinishedEvent).FirstRun)
	})

	for i := 0; i < 2; i++ {
		if _, err := service.CompleteWorkoutDay(ctx, 1, 150, 900); err != nil {
			t.Fatalf("CompleteWorkoutDay() error = %v", err)
		}
	}

	if len(firstRuns) != 2 || !firstRuns[0] || firstRuns[1] {
		t.Errorf("firstRuns = %v; want [true false]", firstRuns)
	}
	if got := service.Summary(ctx).CaloriesBurned; got != 300 {
		t.Errorf("CaloriesBurned = %d; want 300", got)
	}
}

func TestService_SetSleep(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	if _, err := service.SetSleep(ctx, 6); err != nil {
		t.Fatal(err)
	}
	if _, err := service.SetSleep(ctx, 8); err != nil {
		t.Fatal(err)
	}

	if got := service.TodaySleep(ctx); got != 8 {
		t.Errorf("TodaySleep() = %v; want 8", got)
	}
}

func TestService_Reset(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	if _, err := service.AdvanceOnboarding(ctx, 0); err != nil {
		t.Fatal(err)
	}
	snap, err := service.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if snap.Onboarding.CompletedSteps.Len() != 0 || snap.Onboarding.CurrentStep != 0 {
		t.Errorf("Onboarding after reset = %+v", snap.Onboarding)
	}
	if !service.Snapshot(ctx).Mindset.UnlockedChapters.Contains(1) {
		t.Error("reset snapshot should keep defaults")
	}
}
