package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/personal21/internal/app"
	"github.com/felixgeelhaar/personal21/internal/domain"
	"github.com/felixgeelhaar/personal21/internal/progress"
)

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's summary and overall progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				snap := a.Service.Snapshot(ctx)
				summary := a.Service.Summary(ctx)
				return opts.render(cmd.OutOrStdout(), summary, func(w io.Writer) {
					printSummary(w, snap, summary)
				})
			})
		},
	}
}

func printSummary(w io.Writer, snap *domain.ProgressSnapshot, s progress.Summary) {
	fmt.Fprintf(w, "Personal21 - %s\n", s.Date)
	fmt.Fprintln(w, "===================")
	fmt.Fprintf(w, "Overall:    %s %d%%\n", renderProgressBar(float64(s.OverallProgress)/100, 20), s.OverallProgress)
	fmt.Fprintf(w, "Mindset:    %d/%d chapters\n", snap.Mindset.CompletedChapters.Len(), domain.MindsetChapterCount)
	for _, diet := range domain.AllDiets() {
		fmt.Fprintf(w, "%-11s %d/%d chapters, %d recipes\n", string(diet)+":",
			snap.Nutrition[diet].CompletedChapters.Len(), domain.NutritionChapterCount,
			len(snap.Nutrition[diet].CompletedRecipeDetails))
	}
	fmt.Fprintf(w, "Workouts:   %d/%d days\n", snap.Workouts.CompletedDays.Len(), domain.WorkoutDayCount)

	fmt.Fprintln(w, "\nToday")
	fmt.Fprintln(w, "-----")
	fmt.Fprintf(w, "Water:      %d ml  %s\n", s.HydrationMl, s.Health.Hydration.Message)
	fmt.Fprintf(w, "Sleep:      %.1f h  %s\n", s.SleepHours, s.Health.Sleep.Message)
	fmt.Fprintf(w, "Burned:     %d kcal  %s\n", s.CaloriesBurned, s.Health.Activity.Message)
	fmt.Fprintf(w, "Eaten:      %.0f kcal (P %.0fg F %.0fg C %.0fg)\n",
		s.Macros.Calories, s.Macros.Protein, s.Macros.Fat, s.Macros.Carbs)
}

// mutation runs a service call and reports the resulting overall progress
func mutation(opts *rootOptions, cmd *cobra.Command, call func(ctx context.Context, a *app.App) (*domain.ProgressSnapshot, error), describe func(*domain.ProgressSnapshot) string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		snap, err := call(ctx, a)
		if err != nil {
			return err
		}
		return opts.render(cmd.OutOrStdout(), snap, func(w io.Writer) {
			fmt.Fprintf(w, "✓ %s (overall %d%%)\n", describe(snap), progress.OverallProgress(snap))
		})
	})
}

func newWaterCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "water <ml>",
		Short:   "Add water drunk today",
		Example: "  personal21 water 250",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ml, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse ml: %w", err)
			}
			return mutation(opts, cmd, func(ctx context.Context, a *app.App) (*domain.ProgressSnapshot, error) {
				return a.Service.AddHydration(ctx, ml)
			}, func(*domain.ProgressSnapshot) string {
				return "Water logged"
			})
		},
	}
}

func newSleepCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "sleep <hours>",
		Short:   "Set last night's sleep",
		Example: "  personal21 sleep 7.5",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("parse hours: %w", err)
			}
			return mutation(opts, cmd, func(ctx context.Context, a *app.App) (*domain.ProgressSnapshot, error) {
				return a.Service.SetSleep(ctx, hours)
			}, func(*domain.ProgressSnapshot) string {
				return fmt.Sprintf("Sleep set to %.1f h", hours)
			})
		},
	}
}

func newChapterCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chapter <area> <number>",
		Short: "Complete a chapter",
		Long: `Complete a chapter and unlock the next one.

Area is "mindset" or "nutrition/<diet>" where diet is one of
carnivore, lowcarb, keto, fasting, detox.`,
		Example: "  personal21 chapter mindset 1\n  personal21 chapter nutrition/keto 3",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			area, err := domain.ParseArea(args[0])
			if err != nil {
				return err
			}
			chapter, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("parse chapter: %w", err)
			}
			return mutation(opts, cmd, func(ctx context.Context, a *app.App) (*domain.ProgressSnapshot, error) {
				return a.Service.CompleteChapter(ctx, area, chapter)
			}, func(*domain.ProgressSnapshot) string {
				return fmt.Sprintf("Chapter %d of %s", chapter, area)
			})
		},
	}
}

// recipeOptions holds flags for the recipe command
type recipeOptions struct {
	domain.Macros
}

func newRecipeCommand(opts *rootOptions) *cobra.Command {
	ro := &recipeOptions{}

	cmd := &cobra.Command{
		Use:     "recipe <diet> <name>",
		Short:   "Record a recipe eaten today",
		Example: `  personal21 recipe keto "Avocado Eggs" --calories 420 --protein 18 --fat 36 --carbs 4`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			diet, err := domain.ParseDiet(args[0])
			if err != nil {
				return err
			}
			name := args[1]
			return mutation(opts, cmd, func(ctx context.Context, a *app.App) (*domain.ProgressSnapshot, error) {
				if a.Service.IsRecipeCompletedToday(ctx, diet, name) {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s was already recorded today\n", name)
				}
				return a.Service.RecordRecipeCompletion(ctx, diet, name, ro.Macros)
			}, func(*domain.ProgressSnapshot) string {
				return fmt.Sprintf("Recipe %q recorded for %s", name, diet)
			})
		},
	}

	cmd.Flags().Float64Var(&ro.Calories, "calories", 0, "calories (kcal)")
	cmd.Flags().Float64Var(&ro.Protein, "protein", 0, "protein (g)")
	cmd.Flags().Float64Var(&ro.Fat, "fat", 0, "fat (g)")
	cmd.Flags().Float64Var(&ro.Carbs, "carbs", 0, "carbohydrates (g)")

	return cmd
}

func newOnboardingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "onboarding <step>",
		Short: "Mark an onboarding step (0-2) done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse step: %w", err)
			}
			return mutation(opts, cmd, func(ctx context.Context, a *app.App) (*domain.ProgressSnapshot, error) {
				return a.Service.AdvanceOnboarding(ctx, step)
			}, func(snap *domain.ProgressSnapshot) string {
				if snap.Onboarding.FirstDayCompleted {
					return "Onboarding complete"
				}
				return fmt.Sprintf("Onboarding at step %d/%d", snap.Onboarding.CurrentStep, domain.OnboardingStepCount)
			})
		},
	}
}

func newResetCommand(opts *rootOptions) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all local progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("refusing to erase progress without --yes")
			}
			return mutation(opts, cmd, func(ctx context.Context, a *app.App) (*domain.ProgressSnapshot, error) {
				return a.Service.Reset(ctx)
			}, func(*domain.ProgressSnapshot) string {
				return "Progress reset"
			})
		},
	}

	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm erasing progress")

	return cmd
}
