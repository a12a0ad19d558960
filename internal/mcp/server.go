package mcp

import (
	"context"
	"errors"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/felixgeelhaar/personal21/internal/app"
	"github.com/felixgeelhaar/personal21/internal/domain"
	"github.com/felixgeelhaar/personal21/internal/progress"
	"github.com/felixgeelhaar/personal21/internal/reconcile"
)

// Server exposes progress tracking as MCP tools
type Server struct {
	mcpServer *server.Server
	app       *app.App
}

// Config contains configuration for the MCP server
type Config struct {
	App     *app.App
	Version string
}

// NewServer creates a new MCP server backed by the application
func NewServer(cfg Config) *Server {
	s := &Server{app: cfg.App}

	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "personal21",
		Version: version,
	}, server.WithInstructions(`
Personal21 tracks a 21-day wellness program: mindset and nutrition chapters,
recipes with macros, the workout plan, daily hydration and sleep, and onboarding.

Available tools:
- p21_status: Today's summary and overall progress
- p21_log_water: Add water drunk today (ml)
- p21_log_sleep: Set last night's sleep (hours)
- p21_complete_chapter: Complete a mindset or nutrition chapter
- p21_record_recipe: Record a recipe eaten today
- p21_complete_workout_day: Record a finished workout day
- p21_advance_onboarding: Mark an onboarding step done
- p21_sync: Reconcile with the remote replica

Out-of-range input leaves progress unchanged.
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("p21_status").
		Description("Get today's summary: overall progress, calories, macros, hydration, sleep and health levels.").
		Handler(s.handleStatus)

	s.mcpServer.Tool("p21_log_water").
		Description("Add milliliters of water to today's hydration.").
		Handler(s.handleLogWater)

	s.mcpServer.Tool("p21_log_sleep").
		Description("Set today's sleep duration in hours (0-24).").
		Handler(s.handleLogSleep)

	s.mcpServer.Tool("p21_complete_chapter").
		Description("Complete a chapter. Area is mindset or nutrition/<diet>.").
		Handler(s.handleCompleteChapter)

	s.mcpServer.Tool("p21_record_recipe").
		Description("Record a recipe eaten today with its macros.").
		Handler(s.handleRecordRecipe)

	s.mcpServer.Tool("p21_complete_workout_day").
		Description("Record a finished workout day (1-21).").
		Handler(s.handleCompleteWorkoutDay)

	s.mcpServer.Tool("p21_advance_onboarding").
		Description("Mark an onboarding step (0-2) done.").
		Handler(s.handleAdvanceOnboarding)

	s.mcpServer.Tool("p21_sync").
		Description("Reconcile local progress with the remote replica.").
		Handler(s.handleSync)
}

// Input/Output types for tools

type StatusInput struct{}

type WaterInput struct {
	Ml int `json:"ml" jsonschema:"description=Milliliters of water to add"`
}

type SleepInput struct {
	Hours float64 `json:"hours" jsonschema:"description=Hours slept"`
}

type ChapterInput struct {
	Area    string `json:"area" jsonschema:"description=mindset or nutrition/<diet>,example=nutrition/keto"`
	Chapter int    `json:"chapter" jsonschema:"description=Chapter number starting at 1"`
}

type RecipeInput struct {
	Diet     string  `json:"diet" jsonschema:"description=Diet the recipe belongs to,enum=carnivore,enum=lowcarb,enum=keto,enum=fasting,enum=detox"`
	Name     string  `json:"name" jsonschema:"description=Recipe name"`
	Calories float64 `json:"calories,omitempty"`
	Protein  float64 `json:"protein,omitempty"`
	Fat      float64 `json:"fat,omitempty"`
	Carbs    float64 `json:"carbs,omitempty"`
}

type WorkoutDayInput struct {
	Day            int `json:"day" jsonschema:"description=Program day 1-21"`
	CaloriesBurned int `json:"calories_burned,omitempty"`
	Duration       int `json:"duration,omitempty" jsonschema:"description=Workout duration in seconds"`
}

type OnboardingInput struct {
	Step int `json:"step" jsonschema:"description=Onboarding step 0-2"`
}

type SyncInput struct{}

// ProgressOutput reports the state after a tool call
type ProgressOutput struct {
	Changed         bool   `json:"changed"`
	OverallProgress int    `json:"overall_progress"`
	Message         string `json:"message"`
}

// Tool handlers

func (s *Server) handleStatus(ctx context.Context, _ StatusInput) (progress.Summary, error) {
	return s.app.Service.Summary(ctx), nil
}

func (s *Server) handleLogWater(ctx context.Context, input WaterInput) (ProgressOutput, error) {
	return s.mutate(ctx, func() (*domain.ProgressSnapshot, error) {
		return s.app.Service.AddHydration(ctx, input.Ml)
	}, func(snap *domain.ProgressSnapshot) string {
		return fmt.Sprintf("Hydration today: %d ml", snap.HydrationOn(s.today()))
	})
}

func (s *Server) handleLogSleep(ctx context.Context, input SleepInput) (ProgressOutput, error) {
	return s.mutate(ctx, func() (*domain.ProgressSnapshot, error) {
		return s.app.Service.SetSleep(ctx, input.Hours)
	}, func(snap *domain.ProgressSnapshot) string {
		return fmt.Sprintf("Sleep today: %.1f h", snap.SleepOn(s.today()))
	})
}

func (s *Server) handleCompleteChapter(ctx context.Context, input ChapterInput) (ProgressOutput, error) {
	area, err := domain.ParseArea(input.Area)
	if err != nil {
		return ProgressOutput{}, err
	}
	return s.mutate(ctx, func() (*domain.ProgressSnapshot, error) {
		return s.app.Service.CompleteChapter(ctx, area, input.Chapter)
	}, func(*domain.ProgressSnapshot) string {
		return fmt.Sprintf("Chapter %d of %s", input.Chapter, area)
	})
}

func (s *Server) handleRecordRecipe(ctx context.Context, input RecipeInput) (ProgressOutput, error) {
	diet, err := domain.ParseDiet(input.Diet)
	if err != nil {
		return ProgressOutput{}, err
	}
	if input.Name == "" {
		return ProgressOutput{}, errors.New("recipe name is required")
	}
	macros := domain.Macros{
		Calories: input.Calories,
		Protein:  input.Protein,
		Fat:      input.Fat,
		Carbs:    input.Carbs,
	}
	return s.mutate(ctx, func() (*domain.ProgressSnapshot, error) {
		return s.app.Service.RecordRecipeCompletion(ctx, diet, input.Name, macros)
	}, func(*domain.ProgressSnapshot) string {
		return fmt.Sprintf("Recipe %q (%s)", input.Name, diet)
	})
}

func (s *Server) handleCompleteWorkoutDay(ctx context.Context, input WorkoutDayInput) (ProgressOutput, error) {
	return s.mutate(ctx, func() (*domain.ProgressSnapshot, error) {
		return s.app.Service.CompleteWorkoutDay(ctx, input.Day, input.CaloriesBurned, input.Duration)
	}, func(snap *domain.ProgressSnapshot) string {
		return fmt.Sprintf("Workout days completed: %d/%d", snap.Workouts.CompletedDays.Len(), domain.WorkoutDayCount)
	})
}

func (s *Server) handleAdvanceOnboarding(ctx context.Context, input OnboardingInput) (ProgressOutput, error) {
	return s.mutate(ctx, func() (*domain.ProgressSnapshot, error) {
		return s.app.Service.AdvanceOnboarding(ctx, input.Step)
	}, func(snap *domain.ProgressSnapshot) string {
		if snap.Onboarding.FirstDayCompleted {
			return "Onboarding complete"
		}
		return fmt.Sprintf("Onboarding step %d/%d", snap.Onboarding.CurrentStep, domain.OnboardingStepCount)
	})
}

func (s *Server) handleSync(ctx context.Context, _ SyncInput) (ProgressOutput, error) {
	snap, err := s.app.Synchronize(ctx)
	if err != nil {
		return ProgressOutput{}, fmt.Errorf("sync failed: %w", err)
	}
	return ProgressOutput{
		Changed:         true,
		OverallProgress: progress.OverallProgress(snap),
		Message:         "Progress synchronized",
	}, nil
}

// mutate runs a service call and reports whether it changed anything
func (s *Server) mutate(ctx context.Context, call func() (*domain.ProgressSnapshot, error), describe func(*domain.ProgressSnapshot) string) (ProgressOutput, error) {
	before := s.app.Service.Snapshot(ctx)
	snap, err := call()
	if err != nil {
		return ProgressOutput{}, fmt.Errorf("failed to save progress: %w", err)
	}
	changed := !reconcile.Equal(before, snap)
	msg := describe(snap)
	if !changed {
		msg += " (unchanged)"
	}
	return ProgressOutput{
		Changed:         changed,
		OverallProgress: progress.OverallProgress(snap),
		Message:         msg,
	}, nil
}

func (s *Server) today() string {
	return s.app.Service.Summary(context.Background()).Date
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
