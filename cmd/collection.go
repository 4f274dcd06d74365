package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/faqbase/faqbot/internal/app"
	"github.com/faqbase/faqbot/internal/config"
	"github.com/faqbase/faqbot/internal/knowledge"
	"github.com/faqbase/faqbot/internal/log"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage the knowledge-base collection",
}

var collectionStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection name and document count",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store *knowledge.Store) error {
			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Collection: %s (%s)\nDocuments:  %d\n", stats.Name, stats.ID, stats.Count)
			return nil
		})
	},
}

var collectionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete and recreate the collection (destroys all documents)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store *knowledge.Store) error {
			if err := store.Reset(ctx); err != nil {
				return err
			}
			fmt.Println("Collection reset.")
			return nil
		})
	},
}

func init() {
	collectionCmd.AddCommand(collectionStatsCmd)
	collectionCmd.AddCommand(collectionResetCmd)
	rootCmd.AddCommand(collectionCmd)
}

// withStore wires the application and hands the knowledge store to fn.
func withStore(fn func(context.Context, *knowledge.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

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

	return fn(ctx, a.Store)
}
