// Package completion produces the assistant reply text from a user
// question plus retrieved knowledge-base context.
package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/faqbase/faqbot/internal/apperr"
	"github.com/faqbase/faqbot/internal/log"
)

// PromptForQuestion is returned as the reply when the question is empty.
// An empty question is a user mistake, not a pipeline failure.
const PromptForQuestion = "Please enter your question."

// NoResponse is the reply used when the provider answers successfully
// but without any content. A contentless response is not a pipeline
// failure; the user sees this placeholder instead of an apology.
const NoResponse = "Response not received"

// missingContext stands in for the context block when retrieval found
// nothing, so the model knows to answer from general guidance only.
const missingContext = "Context is missing"

const systemPromptFormat = `You are a support assistant answering user questions for this product.
Use the context below when it is relevant. If the context does not
cover the question, answer in general terms and do not invent
product-specific facts that are not in the context. Keep replies short
and direct.

Context:
%s`

// Options configures generation. In ReplyWith, zero-valued fields fall
// back to the configured defaults.
type Options struct {
	// Model is the provider-qualified model name, e.g. "openai/o3-mini".
	Model string

	Temperature float64
	MaxTokens   int
}

// merge overlays the non-zero fields of override onto o.
func (o Options) merge(override Options) Options {
	if override.Model != "" {
		o.Model = override.Model
	}
	if override.Temperature != 0 {
		o.Temperature = override.Temperature
	}
	if override.MaxTokens != 0 {
		o.MaxTokens = override.MaxTokens
	}
	return o
}

// Generator wraps a Genkit instance for reply generation.
type Generator struct {
	opts   Options
	logger log.Logger

	// generate is swappable so tests run without a live provider.
	generate func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error)
}

// New creates a Generator bound to g.
func New(g *genkit.Genkit, opts Options, logger log.Logger) *Generator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Generator{
		opts:   opts,
		logger: logger,
		generate: func(ctx context.Context, genOpts ...ai.GenerateOption) (*ai.ModelResponse, error) {
			return genkit.Generate(ctx, g, genOpts...)
		},
	}
}

// Reply generates the assistant answer for question given the retrieved
// contextBlock, using the configured generation defaults.
func (gen *Generator) Reply(ctx context.Context, question, contextBlock string) (string, error) {
	return gen.ReplyWith(ctx, question, contextBlock, Options{})
}

// ReplyWith is Reply with per-call generation overrides; each zero
// field of override falls back to the configured default. An empty
// contextBlock is allowed; the model is told the context is missing
// rather than being shown an empty section.
func (gen *Generator) ReplyWith(ctx context.Context, question, contextBlock string, override Options) (string, error) {
	if strings.TrimSpace(question) == "" {
		return PromptForQuestion, nil
	}
	opts := gen.opts.merge(override)

	gen.logger.Debug("generating reply",
		"model", opts.Model,
		"question_length", len(question),
		"context_length", len(contextBlock))

	resp, err := gen.generate(ctx,
		ai.WithModelName(opts.Model),
		ai.WithSystem(buildSystemPrompt(contextBlock)),
		ai.WithPrompt(question),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		}),
	)
	if err != nil {
		return "", apperr.Classify(err, "generating completion")
	}

	if resp == nil {
		gen.logger.Warn("provider returned no response, using placeholder")
		return NoResponse, nil
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		gen.logger.Warn("provider response has no content, using placeholder")
		return NoResponse, nil
	}

	gen.logger.Debug("reply generated", "reply_length", len(text))
	return text, nil
}

// buildSystemPrompt inserts the retrieved context into the system
// prompt, substituting the missing-context marker when retrieval found
// nothing.
func buildSystemPrompt(contextBlock string) string {
	if strings.TrimSpace(contextBlock) == "" {
		contextBlock = missingContext
	}
	return fmt.Sprintf(systemPromptFormat, contextBlock)
}
