package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *Payload {
	t.Helper()
	p, err := Parse([]byte(raw))
	require.NoError(t, err)
	return p
}

func TestNormalize_BothShapesProduceSameMessage(t *testing.T) {
	t.Parallel()

	flat := mustParse(t, `{
		"message_type": "incoming",
		"conversation": {"id": 7},
		"account": {"id": 1},
		"content": "hi"
	}`)
	wrapped := mustParse(t, `{
		"event": "message_created",
		"message": {"message_type": "incoming", "content": "hi"},
		"conversation": {"id": 7},
		"account": {"id": 1}
	}`)

	flatDec := Normalize(flat)
	wrappedDec := Normalize(wrapped)

	require.Equal(t, OutcomeOK, flatDec.Outcome)
	require.Equal(t, OutcomeOK, wrappedDec.Outcome)
	assert.Equal(t, flatDec.Message, wrappedDec.Message)
	assert.Equal(t, int64(7), flatDec.Message.ConversationID)
	assert.Equal(t, int64(1), flatDec.Message.AccountID)
	assert.Equal(t, "hi", flatDec.Message.Content)
}

func TestNormalize_Skips(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"outgoing message", `{
			"message_type": "outgoing",
			"conversation": {"id": 7},
			"account": {"id": 1},
			"content": "our reply"
		}`},
		{"template message", `{
			"message_type": "template",
			"conversation": {"id": 7},
			"account": {"id": 1},
			"content": "auto"
		}`},
		{"unrelated event", `{
			"event": "conversation_status_changed",
			"conversation": {"id": 7},
			"account": {"id": 1}
		}`},
		{"wrapped outgoing", `{
			"event": "message_created",
			"message": {"message_type": "outgoing", "content": "our reply"},
			"conversation": {"id": 7},
			"account": {"id": 1}
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := Normalize(mustParse(t, tt.raw))
			assert.Equal(t, OutcomeSkipped, dec.Outcome)
			assert.Nil(t, dec.Message)
			assert.NotEmpty(t, dec.Reason)
		})
	}
}

func TestNormalize_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"missing conversation", `{
			"message_type": "incoming",
			"account": {"id": 1},
			"content": "hi"
		}`},
		{"missing account", `{
			"message_type": "incoming",
			"conversation": {"id": 7},
			"content": "hi"
		}`},
		{"missing content", `{
			"message_type": "incoming",
			"conversation": {"id": 7},
			"account": {"id": 1}
		}`},
		{"whitespace content", `{
			"message_type": "incoming",
			"conversation": {"id": 7},
			"account": {"id": 1},
			"content": "   "
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := Normalize(mustParse(t, tt.raw))
			assert.Equal(t, OutcomeRejected, dec.Outcome)
			assert.Nil(t, dec.Message)
			assert.NotEmpty(t, dec.Reason)
		})
	}
}

func TestNormalize_TextVariantIsActionable(t *testing.T) {
	t.Parallel()

	dec := Normalize(mustParse(t, `{
		"message_type": "text",
		"conversation": {"id": 3},
		"account": {"id": 2},
		"content": "question"
	}`))

	require.Equal(t, OutcomeOK, dec.Outcome)
	assert.Equal(t, "text", dec.Message.MessageType)
}

func TestParse_MalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{not json`))
	assert.Error(t, err)
}
