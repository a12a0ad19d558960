package domain

import (
	"fmt"
	"strings"
)

// AreaKind distinguishes the chaptered content areas
type AreaKind string

const (
	AreaMindset   AreaKind = "mindset"
	AreaNutrition AreaKind = "nutrition"
)

// Area names one chaptered content area. Nutrition areas carry their diet.
type Area struct {
	Kind AreaKind `json:"kind"`
	Diet DietType `json:"diet,omitempty"`
}

// MindsetArea returns the mindset area
func MindsetArea() Area {
	return Area{Kind: AreaMindset}
}

// NutritionArea returns the area of one diet
func NutritionArea(diet DietType) Area {
	return Area{Kind: AreaNutrition, Diet: diet}
}

// ChapterCount returns the number of chapters in the area, or 0 if invalid
func (a Area) ChapterCount() int {
	switch a.Kind {
	case AreaMindset:
		return MindsetChapterCount
	case AreaNutrition:
		if a.Diet.IsValid() {
			return NutritionChapterCount
		}
	}
	return 0
}

// String renders the area as "mindset" or "nutrition/<diet>"
func (a Area) String() string {
	if a.Kind == AreaNutrition {
		return string(a.Kind) + "/" + string(a.Diet)
	}
	return string(a.Kind)
}

// ParseArea parses "mindset", "nutrition/<diet>" or a bare diet name
func ParseArea(s string) (Area, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == string(AreaMindset) {
		return MindsetArea(), nil
	}
	s = strings.TrimPrefix(s, string(AreaNutrition)+"/")
	diet, err := ParseDiet(s)
	if err != nil {
		return Area{}, fmt.Errorf("%w: %w", ErrInvalidArea, err)
	}
	return NutritionArea(diet), nil
}
