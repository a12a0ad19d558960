package reconcile

import (
	"cmp"
	"reflect"
	"slices"
	"sort"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// Merge combines two replicas of the same record. It is pure, commutative,
// idempotent and associative on canonical snapshots: every set is unioned,
// monotonic scalars take their maximum, and colliding keyed entries are
// resolved by a total order so both sides pick the same winner.
func Merge(a, b *domain.ProgressSnapshot) *domain.ProgressSnapshot {
	a, b = Canonicalize(a), Canonicalize(b)

	out := &domain.ProgressSnapshot{
		Mindset: domain.MindsetProgress{
			CompletedChapters: a.Mindset.CompletedChapters.Union(b.Mindset.CompletedChapters),
			UnlockedChapters:  a.Mindset.UnlockedChapters.Union(b.Mindset.UnlockedChapters),
		},
		Nutrition: make(map[domain.DietType]domain.NutritionProgress, len(a.Nutrition)),
		Workouts: domain.WorkoutProgress{
			CompletedSessions: mergeSessions(a.Workouts.CompletedSessions, b.Workouts.CompletedSessions),
			CompletedDays:     a.Workouts.CompletedDays.Union(b.Workouts.CompletedDays),
			UnlockedDays:      a.Workouts.UnlockedDays.Union(b.Workouts.UnlockedDays),
		},
		Hydration: domain.HydrationLog{
			Daily: canonicalHydration(append(slices.Clone(a.Hydration.Daily), b.Hydration.Daily...)),
		},
		Sleep: domain.SleepLog{
			Daily: canonicalSleep(append(slices.Clone(a.Sleep.Daily), b.Sleep.Daily...)),
		},
		Onboarding: domain.OnboardingProgress{
			CurrentStep:       max(a.Onboarding.CurrentStep, b.Onboarding.CurrentStep),
			CompletedSteps:    a.Onboarding.CompletedSteps.Union(b.Onboarding.CompletedSteps),
			FirstDayCompleted: a.Onboarding.FirstDayCompleted || b.Onboarding.FirstDayCompleted,
		},
	}

	for diet := range a.Nutrition {
		out.Nutrition[diet] = mergeNutrition(a.Nutrition[diet], b.Nutrition[diet])
	}
	for diet := range b.Nutrition {
		if _, ok := out.Nutrition[diet]; !ok {
			out.Nutrition[diet] = mergeNutrition(a.Nutrition[diet], b.Nutrition[diet])
		}
	}

	return Canonicalize(out)
}

func mergeNutrition(a, b domain.NutritionProgress) domain.NutritionProgress {
	return domain.NutritionProgress{
		CompletedChapters:      a.CompletedChapters.Union(b.CompletedChapters),
		UnlockedChapters:       a.UnlockedChapters.Union(b.UnlockedChapters),
		CompletedRecipeKeys:    a.CompletedRecipeKeys.Union(b.CompletedRecipeKeys),
		CompletedRecipeDetails: canonicalRecipes(append(slices.Clone(a.CompletedRecipeDetails), b.CompletedRecipeDetails...)),
	}
}

// Canonicalize returns a normalized copy with every set and list in
// canonical order and at most one entry per natural key
func Canonicalize(s *domain.ProgressSnapshot) *domain.ProgressSnapshot {
	if s == nil {
		return domain.NewProgressSnapshot()
	}
	c := s.Clone()
	c.Normalize()

	c.Mindset.CompletedChapters = domain.NewIntSet(c.Mindset.CompletedChapters...)
	c.Mindset.UnlockedChapters = domain.NewIntSet(c.Mindset.UnlockedChapters...)
	for diet, n := range c.Nutrition {
		n.CompletedChapters = domain.NewIntSet(n.CompletedChapters...)
		n.UnlockedChapters = domain.NewIntSet(n.UnlockedChapters...)
		n.CompletedRecipeKeys = domain.NewStringSet(n.CompletedRecipeKeys...)
		n.CompletedRecipeDetails = canonicalRecipes(n.CompletedRecipeDetails)
		c.Nutrition[diet] = n
	}
	c.Workouts.CompletedDays = domain.NewIntSet(c.Workouts.CompletedDays...)
	c.Workouts.UnlockedDays = domain.NewIntSet(c.Workouts.UnlockedDays...)
	c.Workouts.CompletedSessions = sortSessions(c.Workouts.CompletedSessions)
	c.Hydration.Daily = canonicalHydration(c.Hydration.Daily)
	c.Sleep.Daily = canonicalSleep(c.Sleep.Daily)
	c.Onboarding.CompletedSteps = domain.NewIntSet(c.Onboarding.CompletedSteps...)
	return c
}

// Equal reports whether two snapshots hold the same facts
func Equal(a, b *domain.ProgressSnapshot) bool {
	return reflect.DeepEqual(Canonicalize(a), Canonicalize(b))
}

// canonicalRecipes keeps one completion per (name, date), the greatest by
// compareRecipes, ordered by date then name
func canonicalRecipes(in []domain.RecipeCompletion) []domain.RecipeCompletion {
	byKey := make(map[string]domain.RecipeCompletion, len(in))
	for _, r := range in {
		if cur, ok := byKey[r.Key()]; !ok || compareRecipes(r, cur) > 0 {
			byKey[r.Key()] = r
		}
	}
	out := make([]domain.RecipeCompletion, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, r)
	}
	slices.SortFunc(out, compareRecipes)
	return out
}

func compareRecipes(a, b domain.RecipeCompletion) int {
	return cmp.Or(
		cmp.Compare(a.Date, b.Date),
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.Calories, b.Calories),
		cmp.Compare(a.Protein, b.Protein),
		cmp.Compare(a.Fat, b.Fat),
		cmp.Compare(a.Carbs, b.Carbs),
	)
}

type sessionKey struct {
	date string
	day  int
}

// mergeSessions keeps, for every (date, dayCompleted), the session group of
// one side: the larger group, or on equal size the greater by compareSessions.
// Identical groups collapse to one copy.
func mergeSessions(a, b []domain.WorkoutSession) []domain.WorkoutSession {
	ga, gb := groupSessions(a), groupSessions(b)

	var out []domain.WorkoutSession
	for key, la := range ga {
		out = append(out, pickGroup(la, gb[key])...)
	}
	for key, lb := range gb {
		if _, ok := ga[key]; !ok {
			out = append(out, lb...)
		}
	}
	return sortSessions(out)
}

func groupSessions(in []domain.WorkoutSession) map[sessionKey][]domain.WorkoutSession {
	groups := make(map[sessionKey][]domain.WorkoutSession)
	for _, s := range in {
		k := sessionKey{date: s.Date, day: s.DayCompleted}
		groups[k] = append(groups[k], s)
	}
	for k, g := range groups {
		groups[k] = sortSessions(g)
	}
	return groups
}

func pickGroup(a, b []domain.WorkoutSession) []domain.WorkoutSession {
	if len(a) != len(b) {
		if len(a) > len(b) {
			return a
		}
		return b
	}
	if slices.CompareFunc(a, b, compareSessions) >= 0 {
		return a
	}
	return b
}

func sortSessions(in []domain.WorkoutSession) []domain.WorkoutSession {
	out := slices.Clone(in)
	if out == nil {
		out = []domain.WorkoutSession{}
	}
	slices.SortStableFunc(out, compareSessions)
	return out
}

func compareSessions(a, b domain.WorkoutSession) int {
	return cmp.Or(
		cmp.Compare(a.Date, b.Date),
		cmp.Compare(a.DayCompleted, b.DayCompleted),
		cmp.Compare(a.CaloriesBurned, b.CaloriesBurned),
		cmp.Compare(a.DurationSeconds, b.DurationSeconds),
	)
}

// canonicalHydration keeps the largest total per date. Each replica already
// holds the accumulated total, so summing would double count.
func canonicalHydration(in []domain.DailyHydration) []domain.DailyHydration {
	byDate := make(map[string]int, len(in))
	for _, h := range in {
		if cur, ok := byDate[h.Date]; !ok || h.Milliliter > cur {
			byDate[h.Date] = h.Milliliter
		}
	}
	out := make([]domain.DailyHydration, 0, len(byDate))
	for date, ml := range byDate {
		out = append(out, domain.DailyHydration{Date: date, Milliliter: ml})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// canonicalSleep keeps one entry per date: the most recently written one,
// where an unstamped entry is older than any stamped one and equal stamps
// fall back to the larger value
func canonicalSleep(in []domain.DailySleep) []domain.DailySleep {
	byDate := make(map[string]domain.DailySleep, len(in))
	for _, s := range in {
		if cur, ok := byDate[s.Date]; !ok || compareSleep(s, cur) > 0 {
			byDate[s.Date] = s
		}
	}
	out := make([]domain.DailySleep, 0, len(byDate))
	for _, s := range byDate {
		if s.UpdatedAt != nil {
			at := s.UpdatedAt.UTC()
			s.UpdatedAt = &at
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func compareSleep(a, b domain.DailySleep) int {
	switch {
	case a.UpdatedAt == nil && b.UpdatedAt != nil:
		return -1
	case a.UpdatedAt != nil && b.UpdatedAt == nil:
		return 1
	case a.UpdatedAt != nil && b.UpdatedAt != nil:
		if c := a.UpdatedAt.Compare(*b.UpdatedAt); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.Hours, b.Hours)
}
