// Package pipeline orchestrates the per-message reply flow:
// normalize -> embed+search -> complete -> dispatch.
//
// Handle never returns an error. Every downstream failure is converted
// into either a fixed fallback reply to the conversation or a logged
// loss; the webhook transport is always acknowledged with success so
// the sender never retries.
package pipeline

import (
	"context"

	"github.com/faqbase/faqbot/internal/apperr"
	"github.com/faqbase/faqbot/internal/knowledge"
	"github.com/faqbase/faqbot/internal/log"
	"github.com/faqbase/faqbot/internal/webhook"
)

// ContextSearcher retrieves the knowledge context for a question.
// Satisfied by knowledge.Store.
type ContextSearcher interface {
	SearchContext(ctx context.Context, query string, topK int) (string, error)
}

// ReplyGenerator produces the assistant answer. Satisfied by
// completion.Generator.
type ReplyGenerator interface {
	Reply(ctx context.Context, question, contextBlock string) (string, error)
}

// Dispatcher delivers a reply into the originating conversation.
// Satisfied by chatwoot.Client.
type Dispatcher interface {
	SendMessage(ctx context.Context, accountID, conversationID int64, content string) error
}

// Status is the terminal state of one pipeline run.
type Status string

const (
	// StatusSkipped: payload was not actionable, nothing sent.
	StatusSkipped Status = "skipped"

	// StatusRejected: payload was actionable but invalid, nothing sent.
	StatusRejected Status = "rejected"

	// StatusReplied: the generated answer was delivered.
	StatusReplied Status = "replied"

	// StatusRecovered: generation or delivery failed, but the fixed
	// fallback message reached the conversation.
	StatusRecovered Status = "recovered"

	// StatusLost: both the reply and the fallback failed to deliver.
	// The request is still acknowledged upstream.
	StatusLost Status = "lost"
)

// Result reports how one inbound payload was handled.
type Result struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	Reply  string `json:"reply,omitempty"`
}

// Pipeline wires the reply flow. Safe for concurrent use.
type Pipeline struct {
	searcher   ContextSearcher
	generator  ReplyGenerator
	dispatcher Dispatcher
	logger     log.Logger
}

// New creates a Pipeline.
func New(searcher ContextSearcher, generator ReplyGenerator, dispatcher Dispatcher, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		searcher:   searcher,
		generator:  generator,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle runs the full flow for one parsed payload.
func (p *Pipeline) Handle(ctx context.Context, payload *webhook.Payload) Result {
	dec := webhook.Normalize(payload)
	switch dec.Outcome {
	case webhook.OutcomeSkipped:
		p.logger.Debug("webhook skipped", "reason", dec.Reason)
		return Result{Status: StatusSkipped, Reason: dec.Reason}
	case webhook.OutcomeRejected:
		p.logger.Warn("webhook rejected", "reason", dec.Reason)
		return Result{Status: StatusRejected, Reason: dec.Reason}
	}

	msg := dec.Message
	p.logger.Info("handling inbound message",
		"conversation_id", msg.ConversationID,
		"account_id", msg.AccountID,
		"content_length", len(msg.Content))

	contextBlock, err := p.searcher.SearchContext(ctx, msg.Content, 0)
	if err != nil {
		return p.recover(ctx, msg, err)
	}
	if contextBlock == knowledge.NoMatchesFound {
		// No context is not a failure; the model answers from general
		// guidance.
		contextBlock = ""
	}

	reply, err := p.generator.Reply(ctx, msg.Content, contextBlock)
	if err != nil {
		return p.recover(ctx, msg, err)
	}

	if err := p.dispatcher.SendMessage(ctx, msg.AccountID, msg.ConversationID, reply); err != nil {
		p.logger.Error("reply delivery failed",
			"conversation_id", msg.ConversationID, "error", err)
		return p.recover(ctx, msg, err)
	}

	return Result{Status: StatusReplied, Reply: reply}
}

// recover sends the fixed user-facing message for err. A second
// delivery failure is logged and swallowed; the caller still
// acknowledges the transport.
func (p *Pipeline) recover(ctx context.Context, msg *webhook.InboundMessage, cause error) Result {
	userMsg := apperr.UserMessage(cause)
	p.logger.Error("pipeline failed, sending fallback reply",
		"conversation_id", msg.ConversationID,
		"kind", apperr.KindOf(cause),
		"error", cause)

	if err := p.dispatcher.SendMessage(ctx, msg.AccountID, msg.ConversationID, userMsg); err != nil {
		p.logger.Error("fallback reply delivery failed, giving up",
			"conversation_id", msg.ConversationID, "error", err)
		return Result{Status: StatusLost, Reason: cause.Error()}
	}

	return Result{Status: StatusRecovered, Reason: cause.Error(), Reply: userMsg}
}
