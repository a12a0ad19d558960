package daemon

import (
	"net/http"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.app.Service.Snapshot(r.Context()))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.app.Service.Summary(r.Context()))
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Service.Reset(r.Context())
	s.mutationResponse(w, snap, err)
}

// ChapterRequest completes one chapter. Area is "mindset" or "nutrition/<diet>".
type ChapterRequest struct {
	Area    string `json:"area"`
	Chapter int    `json:"chapter"`
}

func (s *Server) handleCompleteChapter(w http.ResponseWriter, r *http.Request) {
	var req ChapterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	area, err := domain.ParseArea(req.Area)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid area", err)
		return
	}

	snap, err := s.app.Service.CompleteChapter(r.Context(), area, req.Chapter)
	s.mutationResponse(w, snap, err)
}

// RecipeRequest records a recipe eaten today
type RecipeRequest struct {
	Diet string `json:"diet"`
	Name string `json:"name"`
	domain.Macros
}

func (s *Server) handleRecordRecipe(w http.ResponseWriter, r *http.Request) {
	var req RecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	diet, err := domain.ParseDiet(req.Diet)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid diet", err)
		return
	}
	if req.Name == "" {
		s.jsonError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	snap, err := s.app.Service.RecordRecipeCompletion(r.Context(), diet, req.Name, req.Macros)
	s.mutationResponse(w, snap, err)
}

func (s *Server) handleRecipeToday(w http.ResponseWriter, r *http.Request) {
	diet, err := domain.ParseDiet(r.URL.Query().Get("diet"))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid diet", err)
		return
	}
	name := r.URL.Query().Get("name")
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"diet":      diet,
		"name":      name,
		"completed": s.app.Service.IsRecipeCompletedToday(r.Context(), diet, name),
	})
}

// WorkoutDayRequest records a finished workout
type WorkoutDayRequest struct {
	Day            int `json:"day"`
	CaloriesBurned int `json:"calories_burned"`
	Duration       int `json:"duration"`
}

func (s *Server) handleCompleteWorkoutDay(w http.ResponseWriter, r *http.Request) {
	var req WorkoutDayRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	snap, err := s.app.Service.CompleteWorkoutDay(r.Context(), req.Day, req.CaloriesBurned, req.Duration)
	s.mutationResponse(w, snap, err)
}

// HydrationRequest adds water drunk today
type HydrationRequest struct {
	Ml int `json:"ml"`
}

func (s *Server) handleAddHydration(w http.ResponseWriter, r *http.Request) {
	var req HydrationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	snap, err := s.app.Service.AddHydration(r.Context(), req.Ml)
	s.mutationResponse(w, snap, err)
}

// SleepRequest sets last night's sleep
type SleepRequest struct {
	Hours float64 `json:"hours"`
}

func (s *Server) handleSetSleep(w http.ResponseWriter, r *http.Request) {
	var req SleepRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	snap, err := s.app.Service.SetSleep(r.Context(), req.Hours)
	s.mutationResponse(w, snap, err)
}

// OnboardingRequest marks an onboarding step done
type OnboardingRequest struct {
	Step int `json:"step"`
}

func (s *Server) handleAdvanceOnboarding(w http.ResponseWriter, r *http.Request) {
	var req OnboardingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	snap, err := s.app.Service.AdvanceOnboarding(r.Context(), req.Step)
	s.mutationResponse(w, snap, err)
}

// mutationResponse answers with the resulting snapshot. Out-of-range
// input is a no-op, not an error; only a failed save is reported.
func (s *Server) mutationResponse(w http.ResponseWriter, snap *domain.ProgressSnapshot, err error) {
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to save progress", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}
