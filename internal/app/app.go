// Package app constructs and owns the wired application: provider
// plugins, vector store, knowledge store, reply pipeline.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/faqbase/faqbot/internal/chatwoot"
	"github.com/faqbase/faqbot/internal/chroma"
	"github.com/faqbase/faqbot/internal/completion"
	"github.com/faqbase/faqbot/internal/config"
	"github.com/faqbase/faqbot/internal/embed"
	"github.com/faqbase/faqbot/internal/ingest"
	"github.com/faqbase/faqbot/internal/knowledge"
	"github.com/faqbase/faqbot/internal/log"
	"github.com/faqbase/faqbot/internal/pipeline"
)

// App holds every constructed component. Created by Setup; released by
// Close.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	Chroma     *chroma.Client
	Embeddings *embed.Service
	Store      *knowledge.Store
	Completion *completion.Generator
	Chatwoot   *chatwoot.Client
	Pipeline   *pipeline.Pipeline
	Ingester   *ingest.Ingester

	otelCleanup func()
}

// Close releases resources in reverse construction order. Safe to call
// on a partially constructed App.
func (a *App) Close() error {
	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}
	return nil
}
