package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faqbase/faqbot/internal/log"
	"github.com/faqbase/faqbot/internal/pipeline"
)

type fakeSearcher struct{ contextBlock string }

func (f *fakeSearcher) SearchContext(context.Context, string, int) (string, error) {
	return f.contextBlock, nil
}

type fakeGenerator struct {
	reply string
	err   error
}

func (f *fakeGenerator) Reply(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

type fakeDispatcher struct {
	sent []string
	err  error
}

func (f *fakeDispatcher) SendMessage(_ context.Context, _, _ int64, content string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, content)
	return nil
}

func newWebhookHandler(gen *fakeGenerator, disp *fakeDispatcher) http.Handler {
	logger := log.NewNop()
	p := pipeline.New(&fakeSearcher{contextBlock: "ctx"}, gen, disp, logger)
	mux := http.NewServeMux()
	NewWebhookHandler(p, logger).RegisterRoutes(mux)
	return mux
}

func postWebhook(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestWebhook_IncomingMessageReplied(t *testing.T) {
	t.Parallel()

	disp := &fakeDispatcher{}
	handler := newWebhookHandler(&fakeGenerator{reply: "the answer"}, disp)

	w := postWebhook(t, handler, `{
		"message_type": "incoming",
		"conversation": {"id": 7},
		"account": {"id": 1},
		"content": "When are you open?"
	}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, pipeline.StatusReplied, res.Status)
	assert.Equal(t, []string{"the answer"}, disp.sent)
}

func TestWebhook_SkippedAndRejectedStillAcknowledged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus pipeline.Status
	}{
		{"outgoing skipped", `{
			"message_type": "outgoing",
			"conversation": {"id": 7},
			"account": {"id": 1},
			"content": "x"
		}`, pipeline.StatusSkipped},
		{"missing fields rejected", `{
			"message_type": "incoming",
			"content": "x"
		}`, pipeline.StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newWebhookHandler(&fakeGenerator{reply: "r"}, &fakeDispatcher{})
			w := postWebhook(t, handler, tt.body)

			assert.Equal(t, http.StatusOK, w.Code, "sender must never see a retryable status")

			var res pipeline.Result
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, tt.wantStatus, res.Status)
		})
	}
}

func TestWebhook_PipelineFailureStillReturns200(t *testing.T) {
	t.Parallel()

	handler := newWebhookHandler(
		&fakeGenerator{err: errors.New("provider down")},
		&fakeDispatcher{err: errors.New("chatwoot down")},
	)

	w := postWebhook(t, handler, `{
		"message_type": "incoming",
		"conversation": {"id": 7},
		"account": {"id": 1},
		"content": "hi"
	}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, pipeline.StatusLost, res.Status)
}

func TestWebhook_MalformedBodyIs500(t *testing.T) {
	t.Parallel()

	handler := newWebhookHandler(&fakeGenerator{reply: "r"}, &fakeDispatcher{})
	w := postWebhook(t, handler, `{not json`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "parse_failed")
}

func TestWebhook_Probe(t *testing.T) {
	t.Parallel()

	handler := newWebhookHandler(&fakeGenerator{reply: "r"}, &fakeDispatcher{})
	req := httptest.NewRequest(http.MethodGet, "/api/webhook", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
