package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zeeshanunique/agentworkflow/internal/webhookd"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the workflow service with triggers and the webhook endpoint",
	Long: `Starts the long-running service: restores the trigger registrations
of every stored workflow, starts polling timers for schedule and email
triggers, and serves inbound webhooks over HTTP until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.restoreTriggers(ctx); err != nil {
		return err
	}
	stats := a.triggers.Statistics()
	slog.Info("triggers restored",
		"total", stats.Total, "polling", stats.PollingCount)

	srv := webhookd.New(a.triggers, webhookd.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, webhookd.WithMetricsGatherer(a.metrics))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
