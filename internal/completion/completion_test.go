package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faqbase/faqbot/internal/apperr"
	"github.com/faqbase/faqbot/internal/log"
)

func textResponse(text string) *ai.ModelResponse {
	return &ai.ModelResponse{
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(text)},
		},
	}
}

// testGenerator builds a Generator whose generate call is stubbed.
func testGenerator(gen func(context.Context, ...ai.GenerateOption) (*ai.ModelResponse, error)) *Generator {
	return &Generator{
		opts:     Options{Model: "openai/o3-mini", Temperature: 0.7, MaxTokens: 1000},
		logger:   log.NewNop(),
		generate: gen,
	}
}

func TestReply_EmptyQuestionShortCircuits(t *testing.T) {
	t.Parallel()

	called := false
	g := testGenerator(func(context.Context, ...ai.GenerateOption) (*ai.ModelResponse, error) {
		called = true
		return textResponse("should not happen"), nil
	})

	for _, q := range []string{"", "   ", "\n"} {
		reply, err := g.Reply(context.Background(), q, "some context")
		require.NoError(t, err)
		assert.Equal(t, PromptForQuestion, reply)
	}
	assert.False(t, called, "no model call for empty question")
}

func TestReply_ReturnsTrimmedText(t *testing.T) {
	t.Parallel()

	g := testGenerator(func(context.Context, ...ai.GenerateOption) (*ai.ModelResponse, error) {
		return textResponse("  We are open 9-17 on weekdays.  "), nil
	})

	reply, err := g.Reply(context.Background(), "When are you open?", "Opening hours: 9-17.")
	require.NoError(t, err)
	assert.Equal(t, "We are open 9-17 on weekdays.", reply)
}

func TestReply_MissingContentReturnsPlaceholder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *ai.ModelResponse
	}{
		{"blank text", textResponse("   ")},
		{"empty response", &ai.ModelResponse{}},
		{"nil response", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGenerator(func(context.Context, ...ai.GenerateOption) (*ai.ModelResponse, error) {
				return tt.resp, nil
			})

			reply, err := g.Reply(context.Background(), "question?", "context")
			require.NoError(t, err, "missing content is a placeholder, never an error")
			assert.Equal(t, NoResponse, reply)
		})
	}
}

func TestOptions_Merge(t *testing.T) {
	t.Parallel()

	defaults := Options{Model: "openai/o3-mini", Temperature: 0.7, MaxTokens: 1000}

	tests := []struct {
		name     string
		override Options
		want     Options
	}{
		{"zero override keeps defaults", Options{}, defaults},
		{"model only", Options{Model: "openai/gpt-4o"},
			Options{Model: "openai/gpt-4o", Temperature: 0.7, MaxTokens: 1000}},
		{"temperature only", Options{Temperature: 0.1},
			Options{Model: "openai/o3-mini", Temperature: 0.1, MaxTokens: 1000}},
		{"max tokens only", Options{MaxTokens: 50},
			Options{Model: "openai/o3-mini", Temperature: 0.7, MaxTokens: 50}},
		{"all fields", Options{Model: "m", Temperature: 1.5, MaxTokens: 10},
			Options{Model: "m", Temperature: 1.5, MaxTokens: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, defaults.merge(tt.override))
		})
	}
}

func TestReplyWith_Overrides(t *testing.T) {
	t.Parallel()

	g := testGenerator(func(context.Context, ...ai.GenerateOption) (*ai.ModelResponse, error) {
		return textResponse("overridden answer"), nil
	})

	reply, err := g.ReplyWith(context.Background(), "question?", "context",
		Options{Model: "openai/gpt-4o", MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "overridden answer", reply)
}

func TestReply_ClassifiesProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantKind apperr.Kind
	}{
		{"auth", errors.New("401 Unauthorized"), apperr.KindAuth},
		{"rate limit", errors.New("429 Too Many Requests"), apperr.KindRateLimit},
		{"server", errors.New("500 Internal Server Error"), apperr.KindUpstream},
		{"other", errors.New("context deadline exceeded"), apperr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGenerator(func(context.Context, ...ai.GenerateOption) (*ai.ModelResponse, error) {
				return nil, tt.err
			})

			_, err := g.Reply(context.Background(), "question?", "context")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	t.Parallel()

	withContext := buildSystemPrompt("Opening hours: 9-17.")
	assert.Contains(t, withContext, "Opening hours: 9-17.")
	assert.NotContains(t, withContext, missingContext)

	for _, empty := range []string{"", "  \n "} {
		got := buildSystemPrompt(empty)
		assert.Contains(t, got, missingContext)
	}
}
