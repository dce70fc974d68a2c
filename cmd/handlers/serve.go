package handlers

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"newswatch/internal/logger"
	"newswatch/internal/server"
)

// NewServeCmd creates the HTTP server command. It runs the API, the
// keyword monitor loop, and the background task manager until interrupted.
func NewServeCmd() *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the keyword monitor",
		Long: `Start the JSON API and WebSocket progress streams, and run the keyword
monitor scheduler in the background at the configured check interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			listenAddr := addr
			if listenAddr == "" {
				listenAddr = app.Config.Server.Addr
			}

			go func() {
				if err := app.Monitor.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("keyword monitor stopped", err, nil)
				}
			}()

			srv := server.New(app.Store, app.Monitor, app.Ingest, app.Tasks, app.Relevance, app.Vectors.Store(), listenAddr)
			return srv.ListenAndServe(ctx)
		},
	}

	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return serveCmd
}
