package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/personal21/internal/app"
	"github.com/felixgeelhaar/personal21/internal/config"
)

// rootOptions holds global flags for all commands
type rootOptions struct {
	Home    string
	Verbose bool
	Format  string // "json" | "text"
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "personal21",
		Short: "Personal21 - 21 days of mindset, nutrition and training",
		Long: `Personal21 tracks a 21-day wellness program on this device and keeps it
in step with your account: chapters, recipes, workouts, hydration, sleep.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			if opts.Home != "" {
				if err := os.Setenv("P21_HOME", opts.Home); err != nil {
					return err
				}
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Home, "home", "", "configuration directory (default $P21_HOME or ~/.personal21)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newWaterCommand(opts))
	cmd.AddCommand(newSleepCommand(opts))
	cmd.AddCommand(newChapterCommand(opts))
	cmd.AddCommand(newRecipeCommand(opts))
	cmd.AddCommand(newOnboardingCommand(opts))
	cmd.AddCommand(newResetCommand(opts))
	cmd.AddCommand(newWorkoutCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	cmd.AddCommand(newMCPCommand(opts))
	cmd.AddCommand(newStartCommand(opts))
	cmd.AddCommand(newStopCommand(opts))
	cmd.AddCommand(newLogsCommand(opts))

	return cmd
}

// openApp loads the configuration and wires the local replica
func openApp(ctx context.Context) (*app.App, error) {
	dir, err := config.EnsureDir()
	if err != nil {
		return nil, fmt.Errorf("setup config directory: %w", err)
	}
	cfg, err := config.LoadLocalConfigFrom(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(ctx, cfg, dir, app.WithLogger(slog.Default()))
}

// withApp runs fn against a freshly opened app and closes it afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, a)
}

// render writes v as JSON, or calls text for the text format
func (o *rootOptions) render(w io.Writer, v any, text func(io.Writer)) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

// renderProgressBar creates a visual progress bar
func renderProgressBar(value float64, width int) string {
	filled := min(max(int(value*float64(width)), 0), width)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
