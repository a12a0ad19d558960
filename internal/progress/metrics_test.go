package progress

import (
	"testing"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

func TestOverallProgress(t *testing.T) {
	tests := []struct {
		name  string
		build func(s *domain.ProgressSnapshot)
		want  int
	}{
		{
			name:  "empty",
			build: func(*domain.ProgressSnapshot) {},
			want:  0,
		},
		{
			name: "all mindset",
			build: func(s *domain.ProgressSnapshot) {
				for i := 1; i <= domain.MindsetChapterCount; i++ {
					s.Mindset.CompletedChapters = s.Mindset.CompletedChapters.With(i)
				}
			},
			want: 20,
		},
		{
			name: "one diet fully completed",
			build: func(s *domain.ProgressSnapshot) {
				n := s.Nutrition[domain.DietKeto]
				for i := 1; i <= domain.NutritionChapterCount; i++ {
					n.CompletedChapters = n.CompletedChapters.With(i)
				}
				s.Nutrition[domain.DietKeto] = n
			},
			want: 6,
		},
		{
			name: "seven workout days",
			build: func(s *domain.ProgressSnapshot) {
				s.Workouts.CompletedDays = domain.NewIntSet(1, 2, 3, 4, 5, 6, 7)
			},
			want: 17,
		},
		{
			name: "out-of-range ids ignored",
			build: func(s *domain.ProgressSnapshot) {
				s.Mindset.CompletedChapters = domain.NewIntSet(0, 11, 99)
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := domain.NewProgressSnapshot()
			tt.build(s)
			if got := OverallProgress(s); got != tt.want {
				t.Errorf("OverallProgress() = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestOverallProgress_Complete(t *testing.T) {
	s := domain.NewProgressSnapshot()
	for i := 1; i <= domain.MindsetChapterCount; i++ {
		s.Mindset.CompletedChapters = s.Mindset.CompletedChapters.With(i)
	}
	for _, diet := range domain.AllDiets() {
		n := s.Nutrition[diet]
		for i := 1; i <= domain.NutritionChapterCount; i++ {
			n.CompletedChapters = n.CompletedChapters.With(i)
		}
		s.Nutrition[diet] = n
	}
	for i := 1; i <= domain.WorkoutDayCount; i++ {
		s.Workouts.CompletedDays = s.Workouts.CompletedDays.With(i)
	}

	if got := OverallProgress(s); got != 100 {
		t.Errorf("OverallProgress() = %d; want 100", got)
	}
}

func TestTodayTotals(t *testing.T) {
	s := domain.NewProgressSnapshot()
	s.Workouts.CompletedSessions = []domain.WorkoutSession{
		{Date: testDate, CaloriesBurned: 120, DayCompleted: 1},
		{Date: testDate, CaloriesBurned: 80, DayCompleted: 1},
		{Date: "2025-03-13", CaloriesBurned: 500, DayCompleted: 2},
	}
	keto := s.Nutrition[domain.DietKeto]
	keto.CompletedRecipeDetails = []domain.RecipeCompletion{
		{Name: "Eggs", Date: testDate, Calories: 200, Protein: 12, Fat: 15, Carbs: 1},
		{Name: "Bacon", Date: "2025-03-13", Calories: 300},
	}
	s.Nutrition[domain.DietKeto] = keto
	carnivore := s.Nutrition[domain.DietCarnivore]
	carnivore.CompletedRecipeDetails = []domain.RecipeCompletion{
		{Name: "Steak", Date: testDate, Calories: 500, Protein: 40, Fat: 35},
	}
	s.Nutrition[domain.DietCarnivore] = carnivore

	if got := TodayCaloriesBurned(s, testDate); got != 200 {
		t.Errorf("TodayCaloriesBurned() = %d; want 200", got)
	}

	m := TodayMacros(s, testDate)
	want := domain.Macros{Calories: 700, Protein: 52, Fat: 50, Carbs: 1}
	if m != want {
		t.Errorf("TodayMacros() = %+v; want %+v", m, want)
	}
}
