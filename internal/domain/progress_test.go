package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewProgressSnapshot_Defaults(t *testing.T) {
	s := NewProgressSnapshot()

	if !s.Mindset.UnlockedChapters.Contains(1) {
		t.Error("mindset chapter 1 should be unlocked by default")
	}
	if !s.Workouts.UnlockedDays.Contains(1) {
		t.Error("workout day 1 should be unlocked by default")
	}
	if len(s.Nutrition) != len(AllDiets()) {
		t.Errorf("Nutrition has %d diets; want %d", len(s.Nutrition), len(AllDiets()))
	}
	for _, diet := range AllDiets() {
		if !s.Nutrition[diet].UnlockedChapters.Contains(1) {
			t.Errorf("%s chapter 1 should be unlocked by default", diet)
		}
	}
	if s.Onboarding.CurrentStep != 0 || s.Onboarding.FirstDayCompleted {
		t.Errorf("onboarding = %+v; want zero progress", s.Onboarding)
	}
}

func TestNormalize_KeepsPresentData(t *testing.T) {
	// A document from an older schema without onboarding, detox or sleep.
	doc := `{
		"mindset": {"completedChapters": [1, 2], "unlockedChapters": [1, 2, 3]},
		"nutrition": {"keto": {"completedChapters": [4], "completedRecipes": ["Omelete_2026-01-02"]}},
		"workouts": {"completedDays": [1]},
		"hydration": {"daily": [{"date": "2026-01-02", "ml": 900}]}
	}`

	s := &ProgressSnapshot{}
	if err := json.Unmarshal([]byte(doc), s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	s.Normalize()

	if s.Mindset.CompletedChapters.Len() != 2 || !s.Mindset.UnlockedChapters.Contains(3) {
		t.Errorf("mindset = %+v; present data lost", s.Mindset)
	}
	keto := s.Nutrition[DietKeto]
	if !keto.CompletedChapters.Contains(4) || !keto.CompletedRecipeKeys.Contains("Omelete_2026-01-02") {
		t.Errorf("keto = %+v; present data lost", keto)
	}
	if !keto.UnlockedChapters.Contains(1) {
		t.Error("keto unlocked default not applied")
	}
	if _, ok := s.Nutrition[DietDetox]; !ok {
		t.Error("missing diet not defaulted")
	}
	if s.Workouts.CompletedSessions == nil || !s.Workouts.UnlockedDays.Contains(1) {
		t.Errorf("workouts = %+v; defaults not applied", s.Workouts)
	}
	if s.HydrationOn("2026-01-02") != 900 {
		t.Errorf("HydrationOn() = %d; want 900", s.HydrationOn("2026-01-02"))
	}
	if s.Sleep.Daily == nil {
		t.Error("sleep log not defaulted")
	}
}

func TestClone_IsIndependent(t *testing.T) {
	s := NewProgressSnapshot()
	s.Hydration.Daily = append(s.Hydration.Daily, DailyHydration{Date: "2026-01-01", Milliliter: 100})

	c := s.Clone()
	c.Hydration.Daily[0].Milliliter = 999
	c.Mindset.CompletedChapters = c.Mindset.CompletedChapters.With(5)
	keto := c.Nutrition[DietKeto]
	keto.CompletedRecipeDetails = append(keto.CompletedRecipeDetails, RecipeCompletion{Name: "x"})
	c.Nutrition[DietKeto] = keto

	if s.Hydration.Daily[0].Milliliter != 100 {
		t.Error("clone aliases hydration log")
	}
	if s.Mindset.CompletedChapters.Contains(5) {
		t.Error("clone aliases mindset set")
	}
	if len(s.Nutrition[DietKeto].CompletedRecipeDetails) != 0 {
		t.Error("clone aliases nutrition map")
	}
}

func TestParseArea(t *testing.T) {
	tests := []struct {
		in      string
		want    Area
		wantErr bool
	}{
		{"mindset", MindsetArea(), false},
		{"nutrition/keto", NutritionArea(DietKeto), false},
		{"detox", NutritionArea(DietDetox), false},
		{"paleo", Area{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseArea(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseArea(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseArea(%q) = %v; want %v", tt.in, got, tt.want)
			}
			if tt.wantErr && (!errors.Is(err, ErrInvalidArea) || !errors.Is(err, ErrInvalidDiet)) {
				t.Errorf("ParseArea(%q) error = %v; want both ErrInvalidArea and ErrInvalidDiet", tt.in, err)
			}
		})
	}
}

func TestArea_ChapterCount(t *testing.T) {
	if MindsetArea().ChapterCount() != 10 {
		t.Error("mindset should have 10 chapters")
	}
	if NutritionArea(DietFasting).ChapterCount() != 20 {
		t.Error("nutrition should have 20 chapters")
	}
	if NutritionArea("paleo").ChapterCount() != 0 {
		t.Error("unknown diet should have no chapters")
	}
}
