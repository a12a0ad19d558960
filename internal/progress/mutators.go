package progress

import (
	"time"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// The functions in this file are the pure transitions of a snapshot. Each
// returns a new snapshot and whether anything changed; the input is never
// modified. Out-of-range input leaves the snapshot unchanged.

// CompleteChapter marks a chapter completed and unlocks the next one
func CompleteChapter(s *domain.ProgressSnapshot, area domain.Area, chapter int) (*domain.ProgressSnapshot, bool) {
	count := area.ChapterCount()
	if count == 0 || chapter < 1 || chapter > count {
		return s, false
	}

	completed, unlocked := chapterSets(s, area)
	if completed.Contains(chapter) {
		return s, false
	}

	completed = completed.With(chapter)
	unlocked = unlocked.With(chapter)
	if chapter+1 <= count {
		unlocked = unlocked.With(chapter + 1)
	}

	next := s.Clone()
	switch area.Kind {
	case domain.AreaMindset:
		next.Mindset.CompletedChapters = completed.Clone()
		next.Mindset.UnlockedChapters = unlocked.Clone()
	case domain.AreaNutrition:
		n := next.Nutrition[area.Diet]
		n.CompletedChapters = completed.Clone()
		n.UnlockedChapters = unlocked.Clone()
		next.Nutrition[area.Diet] = n
	}
	return next, true
}

func chapterSets(s *domain.ProgressSnapshot, area domain.Area) (completed, unlocked domain.IntSet) {
	if area.Kind == domain.AreaMindset {
		return s.Mindset.CompletedChapters, s.Mindset.UnlockedChapters
	}
	n := s.Nutrition[area.Diet]
	return n.CompletedChapters, n.UnlockedChapters
}

// RecordRecipe records that the named recipe was eaten on date.
// A recipe counts at most once per date.
func RecordRecipe(s *domain.ProgressSnapshot, diet domain.DietType, name, date string, macros domain.Macros) (*domain.ProgressSnapshot, bool) {
	if !diet.IsValid() || name == "" || date == "" || !validMacros(macros) {
		return s, false
	}

	key := domain.RecipeKey(name, date)
	if s.Nutrition[diet].CompletedRecipeKeys.Contains(key) {
		return s, false
	}

	next := s.Clone()
	n := next.Nutrition[diet]
	n.CompletedRecipeKeys = n.CompletedRecipeKeys.With(key)
	n.CompletedRecipeDetails = append(n.CompletedRecipeDetails, domain.RecipeCompletion{
		Name:     name,
		Date:     date,
		Calories: macros.Calories,
		Protein:  macros.Protein,
		Fat:      macros.Fat,
		Carbs:    macros.Carbs,
	})
	next.Nutrition[diet] = n
	return next, true
}

func validMacros(m domain.Macros) bool {
	return m.Calories >= 0 && m.Protein >= 0 && m.Fat >= 0 && m.Carbs >= 0
}

// CompleteWorkoutDay appends a session to the log. The first completion of a
// day also marks it completed and unlocks the following day.
func CompleteWorkoutDay(s *domain.ProgressSnapshot, day int, date string, caloriesBurned, durationSeconds int) (*domain.ProgressSnapshot, bool) {
	if day < 1 || day > domain.WorkoutDayCount || date == "" || caloriesBurned < 0 || durationSeconds < 0 {
		return s, false
	}

	next := s.Clone()
	next.Workouts.CompletedSessions = append(next.Workouts.CompletedSessions, domain.WorkoutSession{
		Date:            date,
		CaloriesBurned:  caloriesBurned,
		DurationSeconds: durationSeconds,
		DayCompleted:    day,
	})
	if !next.Workouts.CompletedDays.Contains(day) {
		next.Workouts.CompletedDays = next.Workouts.CompletedDays.With(day).Clone()
		next.Workouts.UnlockedDays = next.Workouts.UnlockedDays.With(day)
		if day+1 <= domain.WorkoutDayCount {
			next.Workouts.UnlockedDays = next.Workouts.UnlockedDays.With(day + 1)
		}
		next.Workouts.UnlockedDays = next.Workouts.UnlockedDays.Clone()
	}
	return next, true
}

// AddHydration accumulates ml into the entry for date
func AddHydration(s *domain.ProgressSnapshot, date string, ml int) (*domain.ProgressSnapshot, bool) {
	if ml <= 0 || date == "" {
		return s, false
	}

	next := s.Clone()
	for i := range next.Hydration.Daily {
		if next.Hydration.Daily[i].Date == date {
			next.Hydration.Daily[i].Milliliter += ml
			return next, true
		}
	}
	next.Hydration.Daily = append(next.Hydration.Daily, domain.DailyHydration{Date: date, Milliliter: ml})
	return next, true
}

// SetSleep replaces the sleep entry for date and stamps it with at
func SetSleep(s *domain.ProgressSnapshot, date string, hours float64, at time.Time) (*domain.ProgressSnapshot, bool) {
	if hours < 0 || hours > 24 || date == "" {
		return s, false
	}

	stamp := at.UTC()
	next := s.Clone()
	for i := range next.Sleep.Daily {
		if next.Sleep.Daily[i].Date == date {
			if next.Sleep.Daily[i].Hours == hours {
				return s, false
			}
			next.Sleep.Daily[i].Hours = hours
			next.Sleep.Daily[i].UpdatedAt = &stamp
			return next, true
		}
	}
	next.Sleep.Daily = append(next.Sleep.Daily, domain.DailySleep{Date: date, Hours: hours, UpdatedAt: &stamp})
	return next, true
}

// AdvanceOnboarding completes one onboarding step. Steps may be completed
// in any order; the current step moves past every contiguous completed step.
func AdvanceOnboarding(s *domain.ProgressSnapshot, step int) (*domain.ProgressSnapshot, bool) {
	if step < 0 || step >= domain.OnboardingStepCount {
		return s, false
	}
	if s.Onboarding.CompletedSteps.Contains(step) {
		return s, false
	}

	next := s.Clone()
	o := &next.Onboarding
	o.CompletedSteps = o.CompletedSteps.With(step).Clone()
	for o.CurrentStep < domain.OnboardingStepCount && o.CompletedSteps.Contains(o.CurrentStep) {
		o.CurrentStep++
	}
	if o.CompletedSteps.Len() >= domain.OnboardingStepCount {
		o.FirstDayCompleted = true
	}
	return next, true
}
