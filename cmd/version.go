package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faqbase/faqbot/internal/config"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	fmt.Printf("faqbot %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Configuration: not loadable (%v)\n", err)
		return nil
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Provider:         %s\n", cfg.Provider)
	fmt.Printf("  Completion model: %s\n", cfg.CompletionModel)
	fmt.Printf("  Embedding model:  %s\n", cfg.EmbeddingModel)
	fmt.Printf("  Vector length:    %d\n", cfg.VectorLength)
	fmt.Printf("  Collection:       %s\n", cfg.CollectionName)
	fmt.Printf("  Chroma URL:       %s\n", cfg.ChromaURL)
	fmt.Printf("  Chatwoot URL:     %s\n", cfg.ChatwootBaseURL)

	if key := os.Getenv("OPENAI_API_KEY"); key != "" && len(key) > 8 {
		fmt.Printf("  OPENAI_API_KEY:   %s...%s (configured)\n", key[:4], key[len(key)-4:])
	} else if key != "" {
		fmt.Println("  OPENAI_API_KEY:   (configured)")
	} else {
		fmt.Println("  OPENAI_API_KEY:   Not set")
	}

	return nil
}
