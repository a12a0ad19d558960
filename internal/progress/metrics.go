package progress

import (
	"math"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// Weights of each area in the overall progress percentage
const (
	mindsetWeight   = 20.0
	nutritionWeight = 30.0
	workoutWeight   = 50.0
)

// OverallProgress returns the weighted completion percentage in [0, 100]
func OverallProgress(s *domain.ProgressSnapshot) int {
	mindset := fraction(s.Mindset.CompletedChapters, domain.MindsetChapterCount)

	diets := domain.AllDiets()
	var nutrition float64
	for _, diet := range diets {
		nutrition += fraction(s.Nutrition[diet].CompletedChapters, domain.NutritionChapterCount)
	}
	nutrition /= float64(len(diets))

	workouts := fraction(s.Workouts.CompletedDays, domain.WorkoutDayCount)

	total := math.Round(mindset*mindsetWeight + nutrition*nutritionWeight + workouts*workoutWeight)
	return int(math.Max(0, math.Min(100, total)))
}

// fraction counts members within [1, bound] so foreign out-of-range ids
// cannot push the percentage past 100
func fraction(set domain.IntSet, bound int) float64 {
	n := 0
	for _, v := range set {
		if v >= 1 && v <= bound {
			n++
		}
	}
	return float64(n) / float64(bound)
}

// TodayCaloriesBurned sums the calories of sessions finished on date
func TodayCaloriesBurned(s *domain.ProgressSnapshot, date string) int {
	total := 0
	for _, session := range s.Workouts.CompletedSessions {
		if session.Date == date {
			total += session.CaloriesBurned
		}
	}
	return total
}

// TodayMacros sums the macros of every recipe recorded on date across all diets
func TodayMacros(s *domain.ProgressSnapshot, date string) domain.Macros {
	var m domain.Macros
	for _, diet := range domain.AllDiets() {
		for _, r := range s.Nutrition[diet].CompletedRecipeDetails {
			if r.Date != date {
				continue
			}
			m.Calories += r.Calories
			m.Protein += r.Protein
			m.Fat += r.Fat
			m.Carbs += r.Carbs
		}
	}
	return m
}

// Summary is the derived view of a snapshot for one day
type Summary struct {
	Date            string           `json:"date"`
	OverallProgress int              `json:"overall_progress"`
	CaloriesBurned  int              `json:"calories_burned"`
	Macros          domain.Macros    `json:"macros"`
	HydrationMl     int              `json:"hydration_ml"`
	SleepHours      float64          `json:"sleep_hours"`
	Health          HealthAssessment `json:"health"`
}

// Summarize derives the summary of s for date
func Summarize(s *domain.ProgressSnapshot, date string, msgs *Messages) Summary {
	hydration := s.HydrationOn(date)
	sleep := s.SleepOn(date)
	calories := TodayCaloriesBurned(s, date)
	return Summary{
		Date:            date,
		OverallProgress: OverallProgress(s),
		CaloriesBurned:  calories,
		Macros:          TodayMacros(s, date),
		HydrationMl:     hydration,
		SleepHours:      sleep,
		Health:          msgs.Assess(hydration, sleep, calories),
	}
}
