// Package embed turns text into fixed-length vectors.
//
// The primary transport is a Genkit ai.Embedder. When the primary fails
// with a format/parse-class error — and only then — the service retries
// once over a raw HTTP call to the same logical endpoint. Every vector
// leaving this package has exactly the configured dimension.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/faqbase/faqbot/internal/apperr"
	"github.com/faqbase/faqbot/internal/log"
)

// Config holds the values the service needs from process configuration.
type Config struct {
	// Model is the default embedding model name.
	Model string

	// Dimension is the required vector length. A provider response of
	// any other length is a hard error.
	Dimension int

	// FallbackBaseURL is the endpoint root for the raw HTTP fallback
	// (e.g. "https://api.openai.com").
	FallbackBaseURL string

	// APIKey authenticates the fallback transport.
	APIKey string
}

// Service generates embeddings. Safe for concurrent use.
type Service struct {
	embedder ai.Embedder
	cfg      Config
	http     *http.Client
	logger   log.Logger
}

// New creates a Service. embedder is the primary transport.
func New(embedder ai.Embedder, cfg Config, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{
		embedder: embedder,
		cfg:      cfg,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// Embed returns the embedding vector for text using model (or the
// configured default when model is empty).
//
// Empty or whitespace-only text fails validation before any network
// call. Format-class primary failures retry once through the fallback
// transport; every other failure class is classified and returned.
func (s *Service) Embed(ctx context.Context, text, model string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("text for vectorization cannot be empty")
	}
	if model == "" {
		model = s.cfg.Model
	}

	s.logger.Debug("requesting embedding", "text_length", len(text), "model", model)

	vector, err := s.embedPrimary(ctx, text)
	if err == nil {
		s.logger.Debug("embedding obtained", "vector_length", len(vector))
		return vector, nil
	}

	// Only a malformed provider response justifies the second transport;
	// auth and quota failures would fail identically there.
	if !apperr.IsFormat(err) {
		return nil, apperr.Classify(err, "retrieving embedding")
	}

	s.logger.Info("primary embedding transport failed with format error, trying direct API request", "error", err)

	vector, fallbackErr := s.embedFallback(ctx, text, model)
	if fallbackErr != nil {
		s.logger.Error("fallback embedding transport failed", "error", fallbackErr)
		return nil, apperr.Wrap(apperr.KindUpstream, http.StatusInternalServerError,
			"fallback embedding request failed", fallbackErr)
	}

	s.logger.Debug("embedding obtained via direct API request", "vector_length", len(vector))
	return vector, nil
}

// embedPrimary calls the Genkit embedder and validates the result shape.
func (s *Service) embedPrimary(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, apperr.Format("received incorrect embedding format", nil)
	}

	return s.checkDimension(resp.Embeddings[0].Embedding)
}

// embedFallback performs the raw HTTP call used when the SDK response
// cannot be parsed.
func (s *Service) embedFallback(ctx context.Context, text, model string) ([]float32, error) {
	payload, err := json.Marshal(map[string]any{
		"input": text,
		"model": model,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding fallback request: %w", err)
	}

	url := strings.TrimRight(s.cfg.FallbackBaseURL, "/") + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building fallback request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading fallback response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fallback request status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding fallback response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("received incorrect embedding format from API request")
	}

	return s.checkDimension(parsed.Data[0].Embedding)
}

// checkDimension enforces the configured vector length. Vectors are
// never truncated or padded.
func (s *Service) checkDimension(vector []float32) ([]float32, error) {
	if s.cfg.Dimension > 0 && len(vector) != s.cfg.Dimension {
		return nil, apperr.Format(
			fmt.Sprintf("incorrect vector length: %d, expected %d", len(vector), s.cfg.Dimension), nil)
	}
	return vector, nil
}
