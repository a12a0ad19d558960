package domain

import (
	"fmt"
	"time"
)

// Chapter and day bounds for each content area
const (
	MindsetChapterCount   = 10
	NutritionChapterCount = 20
	WorkoutDayCount       = 21
	OnboardingStepCount   = 3
)

// DateLayout is the calendar-date format used for every daily key
const DateLayout = "2006-01-02"

// DateOf returns the local calendar date of t
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// DietType identifies one nutrition protocol
type DietType string

const (
	DietCarnivore DietType = "carnivore"
	DietLowCarb   DietType = "lowcarb"
	DietKeto      DietType = "keto"
	DietFasting   DietType = "fasting"
	DietDetox     DietType = "detox"
)

// AllDiets lists every diet in canonical order
func AllDiets() []DietType {
	return []DietType{DietCarnivore, DietLowCarb, DietKeto, DietFasting, DietDetox}
}

// IsValid reports whether d is a known diet
func (d DietType) IsValid() bool {
	for _, known := range AllDiets() {
		if d == known {
			return true
		}
	}
	return false
}

// ParseDiet converts a string into a DietType
func ParseDiet(s string) (DietType, error) {
	d := DietType(s)
	if !d.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDiet, s)
	}
	return d, nil
}

// ProgressSnapshot is the complete progress record for one user
type ProgressSnapshot struct {
	Mindset    MindsetProgress                `json:"mindset"`
	Nutrition  map[DietType]NutritionProgress `json:"nutrition"`
	Workouts   WorkoutProgress                `json:"workouts"`
	Hydration  HydrationLog                   `json:"hydration"`
	Sleep      SleepLog                       `json:"sleep"`
	Onboarding OnboardingProgress             `json:"onboarding"`
}

// MindsetProgress tracks the mindset chapters
type MindsetProgress struct {
	CompletedChapters IntSet `json:"completedChapters"`
	UnlockedChapters  IntSet `json:"unlockedChapters"`
}

// NutritionProgress tracks one diet's chapters and recorded recipes
type NutritionProgress struct {
	CompletedChapters      IntSet             `json:"completedChapters"`
	UnlockedChapters       IntSet             `json:"unlockedChapters"`
	CompletedRecipeKeys    StringSet          `json:"completedRecipes"`
	CompletedRecipeDetails []RecipeCompletion `json:"completedRecipesDetails"`
}

// RecipeCompletion records one eaten recipe with its macros
type RecipeCompletion struct {
	Name     string  `json:"name"`
	Date     string  `json:"date"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Key returns the natural key of the completion
func (r RecipeCompletion) Key() string {
	return RecipeKey(r.Name, r.Date)
}

// RecipeKey builds the (name, date) key stored in CompletedRecipeKeys
func RecipeKey(name, date string) string {
	return name + "_" + date
}

// Macros holds nutritional totals
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// WorkoutProgress tracks the 21-day workout program
type WorkoutProgress struct {
	CompletedSessions []WorkoutSession `json:"completedSessions"`
	CompletedDays     IntSet           `json:"completedDays"`
	UnlockedDays      IntSet           `json:"unlockedDays"`
}

// WorkoutSession is one finished workout. Sessions form a log, not a set.
type WorkoutSession struct {
	Date            string `json:"date"`
	CaloriesBurned  int    `json:"caloriesBurned"`
	DurationSeconds int    `json:"duration"`
	DayCompleted    int    `json:"dayCompleted"`
}

// HydrationLog holds at most one accumulated entry per date
type HydrationLog struct {
	Daily []DailyHydration `json:"daily"`
}

// DailyHydration is the total water intake for one date
type DailyHydration struct {
	Date       string `json:"date"`
	Milliliter int    `json:"ml"`
}

// SleepLog holds at most one entry per date
type SleepLog struct {
	Daily []DailySleep `json:"daily"`
}

// DailySleep is the sleep duration recorded for one date.
// UpdatedAt is empty for entries written by clients that do not stamp writes.
type DailySleep struct {
	Date      string     `json:"date"`
	Hours     float64    `json:"hours"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// OnboardingProgress tracks the three first-day steps
type OnboardingProgress struct {
	CurrentStep       int    `json:"currentStep"`
	CompletedSteps    IntSet `json:"completedSteps"`
	FirstDayCompleted bool   `json:"firstDayCompleted"`
}

// NewProgressSnapshot returns the snapshot of a fresh user
func NewProgressSnapshot() *ProgressSnapshot {
	s := &ProgressSnapshot{}
	s.Normalize()
	return s
}

// Normalize fills every missing sub-record with its default without
// discarding present data. It is applied after decoding documents written
// by older schema versions.
func (s *ProgressSnapshot) Normalize() {
	s.Mindset.CompletedChapters = s.Mindset.CompletedChapters.Clone()
	s.Mindset.UnlockedChapters = s.Mindset.UnlockedChapters.With(1).Clone()

	if s.Nutrition == nil {
		s.Nutrition = make(map[DietType]NutritionProgress, len(AllDiets()))
	}
	for _, diet := range AllDiets() {
		n := s.Nutrition[diet]
		n.CompletedChapters = n.CompletedChapters.Clone()
		n.UnlockedChapters = n.UnlockedChapters.With(1).Clone()
		n.CompletedRecipeKeys = n.CompletedRecipeKeys.Clone()
		if n.CompletedRecipeDetails == nil {
			n.CompletedRecipeDetails = []RecipeCompletion{}
		}
		s.Nutrition[diet] = n
	}

	if s.Workouts.CompletedSessions == nil {
		s.Workouts.CompletedSessions = []WorkoutSession{}
	}
	s.Workouts.CompletedDays = s.Workouts.CompletedDays.Clone()
	s.Workouts.UnlockedDays = s.Workouts.UnlockedDays.With(1).Clone()

	if s.Hydration.Daily == nil {
		s.Hydration.Daily = []DailyHydration{}
	}
	if s.Sleep.Daily == nil {
		s.Sleep.Daily = []DailySleep{}
	}

	s.Onboarding.CompletedSteps = s.Onboarding.CompletedSteps.Clone()
	if s.Onboarding.CurrentStep < 0 {
		s.Onboarding.CurrentStep = 0
	}
	if s.Onboarding.CurrentStep > OnboardingStepCount {
		s.Onboarding.CurrentStep = OnboardingStepCount
	}
	if s.Onboarding.CompletedSteps.Len() >= OnboardingStepCount {
		s.Onboarding.FirstDayCompleted = true
	}
}

// Clone returns a deep copy so mutators never alias the caller's snapshot
func (s *ProgressSnapshot) Clone() *ProgressSnapshot {
	c := &ProgressSnapshot{
		Mindset: MindsetProgress{
			CompletedChapters: s.Mindset.CompletedChapters.Clone(),
			UnlockedChapters:  s.Mindset.UnlockedChapters.Clone(),
		},
		Nutrition: make(map[DietType]NutritionProgress, len(s.Nutrition)),
		Workouts: WorkoutProgress{
			CompletedSessions: append([]WorkoutSession{}, s.Workouts.CompletedSessions...),
			CompletedDays:     s.Workouts.CompletedDays.Clone(),
			UnlockedDays:      s.Workouts.UnlockedDays.Clone(),
		},
		Hydration: HydrationLog{Daily: append([]DailyHydration{}, s.Hydration.Daily...)},
		Sleep:     SleepLog{Daily: make([]DailySleep, 0, len(s.Sleep.Daily))},
		Onboarding: OnboardingProgress{
			CurrentStep:       s.Onboarding.CurrentStep,
			CompletedSteps:    s.Onboarding.CompletedSteps.Clone(),
			FirstDayCompleted: s.Onboarding.FirstDayCompleted,
		},
	}
	for diet, n := range s.Nutrition {
		c.Nutrition[diet] = NutritionProgress{
			CompletedChapters:      n.CompletedChapters.Clone(),
			UnlockedChapters:       n.UnlockedChapters.Clone(),
			CompletedRecipeKeys:    n.CompletedRecipeKeys.Clone(),
			CompletedRecipeDetails: append([]RecipeCompletion{}, n.CompletedRecipeDetails...),
		}
	}
	for _, entry := range s.Sleep.Daily {
		if entry.UpdatedAt != nil {
			at := *entry.UpdatedAt
			entry.UpdatedAt = &at
		}
		c.Sleep.Daily = append(c.Sleep.Daily, entry)
	}
	return c
}

// HydrationOn returns the milliliters recorded for date
func (s *ProgressSnapshot) HydrationOn(date string) int {
	for _, d := range s.Hydration.Daily {
		if d.Date == date {
			return d.Milliliter
		}
	}
	return 0
}

// SleepOn returns the hours recorded for date
func (s *ProgressSnapshot) SleepOn(date string) float64 {
	for _, d := range s.Sleep.Daily {
		if d.Date == date {
			return d.Hours
		}
	}
	return 0
}
