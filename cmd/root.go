// Package cmd defines the faqbot command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "faqbot",
	Short: "faqbot - retrieval-augmented FAQ bot for Chatwoot",
	Long: `faqbot answers Chatwoot conversations from a knowledge base.

Inbound messages arrive on a webhook, are matched against a vector
collection of FAQ documents, and answered by a language model grounded
in the retrieved context.

Running faqbot without a subcommand starts the webhook server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
