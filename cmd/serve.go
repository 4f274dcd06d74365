package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/faqbase/faqbot/api"
	"github.com/faqbase/faqbot/internal/app"
	"github.com/faqbase/faqbot/internal/config"
	"github.com/faqbase/faqbot/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe loads configuration, wires the application, and serves until
// interrupted.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	logger.Info("starting faqbot", "version", AppVersion)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	// Resolve the collection up front so a dead vector store fails the
	// start instead of the first conversation.
	if _, err := a.Store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("preparing collection: %w", err)
	}

	server := api.NewServer(a.Pipeline, a.Store, cfg.Development, logger)
	logger.Info("webhook server ready",
		"addr", cfg.ServerAddr,
		"webhook", "/api/webhook",
		"health", "/health, /ready")

	return server.Run(ctx, cfg.ServerAddr)
}
