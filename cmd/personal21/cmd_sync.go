package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/personal21/internal/app"
	"github.com/felixgeelhaar/personal21/internal/progress"
	"github.com/felixgeelhaar/personal21/internal/queue"
)

// syncOptions holds flags for the sync command
type syncOptions struct {
	Async   bool
	Timeout time.Duration
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	so := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local progress with your account",
		Long: `Merge the local progress with the remote replica and write the result
to both sides. Nothing recorded on either side is lost.

With --async the request is queued on RabbitMQ and handled by a running
daemon worker; the command waits for the worker's result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ctx, cancel := context.WithTimeout(ctx, so.Timeout)
				defer cancel()

				if so.Async {
					return syncAsync(ctx, opts, cmd.OutOrStdout(), a)
				}

				start := time.Now()
				snap, err := a.Synchronize(ctx)
				if err != nil {
					return fmt.Errorf("sync failed: %w", err)
				}
				overall := progress.OverallProgress(snap)
				return opts.render(cmd.OutOrStdout(), snap, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Synchronized in %s (overall %d%%)\n", time.Since(start).Round(time.Millisecond), overall)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&so.Async, "async", false, "queue the sync on RabbitMQ and wait for a worker")
	cmd.Flags().DurationVar(&so.Timeout, "timeout", time.Minute, "maximum time to wait")

	cmd.AddCommand(newSyncStatusCommand(opts))

	return cmd
}

func syncAsync(ctx context.Context, opts *rootOptions, w io.Writer, a *app.App) error {
	result, err := a.RequestSync(ctx, "cli")
	if err != nil {
		return fmt.Errorf("queue sync: %w", err)
	}
	if result.Status != queue.StatusCompleted {
		return fmt.Errorf("sync %s: %s", result.Status, result.Error)
	}
	return opts.render(w, result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Synchronized by worker in %s (overall %d%%)\n", result.Duration.Round(time.Millisecond), result.OverallProgress)
	})
}

func newSyncStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show when progress was last synchronized",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				st, err := a.SyncStatus(ctx)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), st, func(w io.Writer) {
					fmt.Fprintf(w, "User:        %s\n", st.UserID)
					if st.LastSyncedAt != nil {
						fmt.Fprintf(w, "Last synced: %s\n", st.LastSyncedAt.Local().Format(time.RFC1123))
					} else {
						fmt.Fprintln(w, "Last synced: never")
					}
					fmt.Fprintf(w, "Pending:     %t\n", st.Pending)
				})
			})
		},
	}
}
