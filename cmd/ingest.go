package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/faqbase/faqbot/internal/app"
	"github.com/faqbase/faqbot/internal/config"
	"github.com/faqbase/faqbot/internal/log"
)

var ingestDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents from the docs directory into the knowledge base",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest()
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "docs directory (defaults to configured docs_dir)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest() error {
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

	dir := ingestDir
	if dir == "" {
		dir = cfg.DocsDir
	}

	report, err := a.Ingester.Run(ctx, dir, cfg.SampleDocText)
	if err != nil {
		return fmt.Errorf("ingesting documents: %w", err)
	}

	fmt.Printf("Ingestion complete: %d scanned, %d ingested, %d skipped, %d failed\n",
		report.Scanned, report.Ingested, report.Skipped, report.Failed)
	return nil
}
