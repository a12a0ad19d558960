package progress

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

const testDate = "2025-03-14"

func TestCompleteChapter(t *testing.T) {
	start := domain.NewProgressSnapshot()

	next, changed := CompleteChapter(start, domain.MindsetArea(), 1)
	if !changed {
		t.Fatal("CompleteChapter() should change the snapshot")
	}
	if !next.Mindset.CompletedChapters.Contains(1) {
		t.Error("chapter 1 should be completed")
	}
	if !next.Mindset.UnlockedChapters.Contains(2) {
		t.Error("chapter 2 should be unlocked")
	}
	if start.Mindset.CompletedChapters.Contains(1) {
		t.Error("input snapshot must not be modified")
	}

	again, changed := CompleteChapter(next, domain.MindsetArea(), 1)
	if changed {
		t.Error("completing a chapter twice should be a no-op")
	}
	if again.Mindset.CompletedChapters.Len() != 1 {
		t.Errorf("CompletedChapters = %v; want [1]", again.Mindset.CompletedChapters)
	}
}

func TestCompleteChapter_LastChapterUnlocksNothing(t *testing.T) {
	next, _ := CompleteChapter(domain.NewProgressSnapshot(), domain.MindsetArea(), domain.MindsetChapterCount)
	if next.Mindset.UnlockedChapters.Contains(domain.MindsetChapterCount + 1) {
		t.Error("no chapter beyond the last may be unlocked")
	}
	if !next.Mindset.CompletedChapters.SubsetOf(next.Mindset.UnlockedChapters) {
		t.Error("completed chapters must be unlocked")
	}
}

func TestCompleteChapter_Nutrition(t *testing.T) {
	area := domain.NutritionArea(domain.DietKeto)
	next, changed := CompleteChapter(domain.NewProgressSnapshot(), area, 20)
	if !changed {
		t.Fatal("nutrition chapter 20 should be accepted")
	}
	if !next.Nutrition[domain.DietKeto].CompletedChapters.Contains(20) {
		t.Error("keto chapter 20 should be completed")
	}
	if next.Nutrition[domain.DietDetox].CompletedChapters.Len() != 0 {
		t.Error("other diets must be untouched")
	}
}

func TestCompleteChapter_OutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		area    domain.Area
		chapter int
	}{
		{"zero", domain.MindsetArea(), 0},
		{"negative", domain.MindsetArea(), -3},
		{"beyond mindset", domain.MindsetArea(), 11},
		{"beyond nutrition", domain.NutritionArea(domain.DietFasting), 21},
		{"unknown diet", domain.NutritionArea("paleo"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := domain.NewProgressSnapshot()
			next, changed := CompleteChapter(start, tt.area, tt.chapter)
			if changed || next != start {
				t.Error("out-of-range chapter should leave the snapshot unchanged")
			}
		})
	}
}

func TestRecordRecipe(t *testing.T) {
	macros := domain.Macros{Calories: 450, Protein: 30, Fat: 20, Carbs: 10}

	next, changed := RecordRecipe(domain.NewProgressSnapshot(), domain.DietCarnivore, "Steak", testDate, macros)
	if !changed {
		t.Fatal("RecordRecipe() should change the snapshot")
	}
	n := next.Nutrition[domain.DietCarnivore]
	if !n.CompletedRecipeKeys.Contains("Steak_" + testDate) {
		t.Errorf("CompletedRecipeKeys = %v", n.CompletedRecipeKeys)
	}
	if len(n.CompletedRecipeDetails) != 1 || n.CompletedRecipeDetails[0].Calories != 450 {
		t.Errorf("CompletedRecipeDetails = %+v", n.CompletedRecipeDetails)
	}

	_, changed = RecordRecipe(next, domain.DietCarnivore, "Steak", testDate, macros)
	if changed {
		t.Error("the same recipe on the same date should be recorded once")
	}

	tomorrow, changed := RecordRecipe(next, domain.DietCarnivore, "Steak", "2025-03-15", macros)
	if !changed {
		t.Fatal("the same recipe on another date should be recorded")
	}
	if got := len(tomorrow.Nutrition[domain.DietCarnivore].CompletedRecipeDetails); got != 2 {
		t.Errorf("details = %d; want 2", got)
	}
}

func TestRecordRecipe_Invalid(t *testing.T) {
	start := domain.NewProgressSnapshot()
	if _, changed := RecordRecipe(start, "paleo", "Salad", testDate, domain.Macros{}); changed {
		t.Error("unknown diet should be rejected")
	}
	if _, changed := RecordRecipe(start, domain.DietKeto, "", testDate, domain.Macros{}); changed {
		t.Error("empty name should be rejected")
	}
	if _, changed := RecordRecipe(start, domain.DietKeto, "Eggs", testDate, domain.Macros{Calories: -1}); changed {
		t.Error("negative macros should be rejected")
	}
}

func TestCompleteWorkoutDay(t *testing.T) {
	first, changed := CompleteWorkoutDay(domain.NewProgressSnapshot(), 1, testDate, 180, 1200)
	if !changed {
		t.Fatal("CompleteWorkoutDay() should change the snapshot")
	}
	if !first.Workouts.CompletedDays.Contains(1) || !first.Workouts.UnlockedDays.Contains(2) {
		t.Errorf("days = completed %v unlocked %v", first.Workouts.CompletedDays, first.Workouts.UnlockedDays)
	}

	second, changed := CompleteWorkoutDay(first, 1, testDate, 200, 1100)
	if !changed {
		t.Fatal("repeating a day should still log a session")
	}
	if got := len(second.Workouts.CompletedSessions); got != 2 {
		t.Errorf("sessions = %d; want 2", got)
	}
	if second.Workouts.CompletedDays.Len() != 1 {
		t.Errorf("CompletedDays = %v; want [1]", second.Workouts.CompletedDays)
	}
}

func TestCompleteWorkoutDay_LastDay(t *testing.T) {
	next, _ := CompleteWorkoutDay(domain.NewProgressSnapshot(), 21, testDate, 100, 600)
	if next.Workouts.UnlockedDays.Contains(22) {
		t.Error("day 22 must never be unlocked")
	}
	if _, changed := CompleteWorkoutDay(next, 22, testDate, 100, 600); changed {
		t.Error("day 22 should be rejected")
	}
}

func TestAddHydration_Accumulates(t *testing.T) {
	snap := domain.NewProgressSnapshot()
	snap, _ = AddHydration(snap, testDate, 250)
	snap, _ = AddHydration(snap, testDate, 500)

	if len(snap.Hydration.Daily) != 1 {
		t.Fatalf("Daily = %+v; want one entry", snap.Hydration.Daily)
	}
	if got := snap.Hydration.Daily[0]; got.Date != testDate || got.Milliliter != 750 {
		t.Errorf("Daily[0] = %+v; want {%s 750}", got, testDate)
	}

	if _, changed := AddHydration(snap, testDate, 0); changed {
		t.Error("zero ml should be a no-op")
	}
	if _, changed := AddHydration(snap, testDate, -100); changed {
		t.Error("negative ml should be a no-op")
	}
}

func TestSetSleep_Replaces(t *testing.T) {
	at := time.Date(2025, 3, 14, 7, 0, 0, 0, time.UTC)
	snap := domain.NewProgressSnapshot()
	snap, _ = SetSleep(snap, testDate, 6, at)
	snap, _ = SetSleep(snap, testDate, 7.5, at.Add(time.Hour))

	if len(snap.Sleep.Daily) != 1 {
		t.Fatalf("Daily = %+v; want one entry", snap.Sleep.Daily)
	}
	entry := snap.Sleep.Daily[0]
	if entry.Hours != 7.5 {
		t.Errorf("Hours = %v; want 7.5", entry.Hours)
	}
	if entry.UpdatedAt == nil || !entry.UpdatedAt.Equal(at.Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v; want %v", entry.UpdatedAt, at.Add(time.Hour))
	}

	if _, changed := SetSleep(snap, testDate, 7.5, at.Add(2*time.Hour)); changed {
		t.Error("setting the same value should be a no-op")
	}
	if _, changed := SetSleep(snap, testDate, 25, at); changed {
		t.Error("more than 24 hours should be rejected")
	}
}

func TestAdvanceOnboarding(t *testing.T) {
	snap := domain.NewProgressSnapshot()
	snap, _ = AdvanceOnboarding(snap, 0)
	if snap.Onboarding.CurrentStep != 1 {
		t.Errorf("CurrentStep = %d; want 1", snap.Onboarding.CurrentStep)
	}

	snap, _ = AdvanceOnboarding(snap, 1)
	snap, _ = AdvanceOnboarding(snap, 2)
	if snap.Onboarding.CurrentStep != 3 {
		t.Errorf("CurrentStep = %d; want 3", snap.Onboarding.CurrentStep)
	}
	if !snap.Onboarding.FirstDayCompleted {
		t.Error("FirstDayCompleted should be set after all steps")
	}
}

func TestAdvanceOnboarding_AnyOrder(t *testing.T) {
	snap := domain.NewProgressSnapshot()
	for _, step := range []int{2, 0, 1} {
		snap, _ = AdvanceOnboarding(snap, step)
	}

	if snap.Onboarding.CurrentStep != 3 {
		t.Errorf("CurrentStep = %d; want 3", snap.Onboarding.CurrentStep)
	}
	if !snap.Onboarding.FirstDayCompleted {
		t.Error("FirstDayCompleted should be set")
	}
	if _, changed := AdvanceOnboarding(snap, 3); changed {
		t.Error("step 3 does not exist")
	}
}
