package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/personal21/internal/app"
	mcpserver "github.com/felixgeelhaar/personal21/internal/mcp"
)

func newMCPCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server (stdio by default)",
		Long: `Serve progress tools over the Model Context Protocol so an assistant
can log water, sleep, chapters, recipes and workouts for you.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				srv := mcpserver.NewServer(mcpserver.Config{App: a, Version: Version})

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				if addr != "" {
					return srv.ServeHTTP(ctx, addr)
				}
				return srv.ServeStdio(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "http", "", "serve over HTTP on this address instead of stdio")

	return cmd
}
