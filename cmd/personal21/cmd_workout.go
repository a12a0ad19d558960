package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/personal21/internal/app"
	"github.com/felixgeelhaar/personal21/internal/workout"
)

func newWorkoutCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workout",
		Short: "Browse and run the 21-day workout plan",
	}

	cmd.AddCommand(newWorkoutListCommand(opts))
	cmd.AddCommand(newWorkoutRunCommand(opts))

	return cmd
}

func newWorkoutListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the workout of every day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				days := a.Catalog.All()
				snap := a.Service.Snapshot(ctx)
				return opts.render(cmd.OutOrStdout(), days, func(w io.Writer) {
					for _, def := range days {
						mark := " "
						switch {
						case snap.Workouts.CompletedDays.Contains(def.Day):
							mark = "✓"
						case !snap.Workouts.UnlockedDays.Contains(def.Day):
							mark = "🔒"
						}
						fmt.Fprintf(w, "%s Day %2d  %-28s %d exercises x %d rounds\n",
							mark, def.Day, def.Name, len(def.Exercises), def.Rounds)
					}
				})
			})
		},
	}
}

// workoutRunOptions holds flags for workout run
type workoutRunOptions struct {
	Tick time.Duration
}

func newWorkoutRunCommand(opts *rootOptions) *cobra.Command {
	ro := &workoutRunOptions{}

	cmd := &cobra.Command{
		Use:   "run <day>",
		Short: "Run a guided workout with a live timer",
		Long: `Run the workout of one day. The timer moves through transition, exercise
and rest phases; press Ctrl+C to cancel. A finished workout is recorded
as completed for today.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse day: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				tick := ro.Tick
				if tick <= 0 {
					tick = time.Duration(a.Config.Workout.TickMillis) * time.Millisecond
				}
				return runWorkout(ctx, a, day, tick, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().DurationVar(&ro.Tick, "tick", 0, "timer tick interval (default from workout.tick_millis)")

	return cmd
}

func runWorkout(ctx context.Context, a *app.App, day int, tick time.Duration, w io.Writer) error {
	session, err := a.NewWorkoutSession(day)
	if err != nil {
		return err
	}
	def := session.Definition()
	fmt.Fprintf(w, "Day %d: %s (%d rounds)\n", def.Day, def.Name, def.Rounds)
	if err := session.Start(); err != nil {
		return fmt.Errorf("start workout: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- workout.NewDriver(session, tick).Run(ctx)
	}()

	display := time.NewTicker(tick)
	defer display.Stop()

	var last workout.State
	for {
		select {
		case err := <-done:
			state := session.State()
			switch {
			case state.Phase == workout.PhaseCompleted:
				fmt.Fprintf(w, "\n✓ Workout complete: %s, %d kcal\n",
					formatElapsed(state.TotalElapsed), def.CaloriesFor(state.TotalElapsed))
				return nil
			case errors.Is(err, context.Canceled):
				session.Cancel()
				fmt.Fprintln(w, "\nWorkout canceled")
				return nil
			default:
				return err
			}
		case <-display.C:
			state := session.State()
			if state.Phase != last.Phase || state.ExerciseIndex != last.ExerciseIndex {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "\r%s", describeState(def, state))
			last = state
		}
	}
}

func describeState(def workout.Definition, s workout.State) string {
	name := ""
	if s.ExerciseIndex < len(def.Exercises) {
		name = def.Exercises[s.ExerciseIndex].Name
	}
	var line string
	switch s.Phase {
	case workout.PhaseTransition:
		line = fmt.Sprintf("Get ready: %-24s %3ds", name, s.TransitionCountdown)
	case workout.PhaseExercise:
		line = fmt.Sprintf("Round %d/%d  %-24s %3ds", s.Round, def.Rounds, name, s.ExerciseCountdown)
	case workout.PhaseRest:
		line = fmt.Sprintf("Rest %-29s %3ds", "", s.RestCountdown)
	default:
		line = string(s.Phase)
	}
	return fmt.Sprintf("%s  [%s]", line, formatElapsed(s.TotalElapsed))
}

func formatElapsed(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
