// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.faqbot/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, completion model, embedding model, temperature, max tokens
//   - Chroma: vector store URL, default collection, vector dimension
//   - Chatwoot: outbound messaging API base URL and token
//   - Server: listen address, development mode
//   - Ingest: docs directory and embedding-call rate
//
// Security: the Chatwoot API token is masked in MarshalJSON/String.
// Validation: fail-fast range checks with sentinel errors for errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrMissingChromaURL indicates the vector store URL is not set.
	ErrMissingChromaURL = errors.New("missing chroma URL")

	// ErrMissingChatwootToken indicates the Chatwoot API token is not set.
	ErrMissingChatwootToken = errors.New("missing chatwoot API token")

	// ErrMissingAPIKey indicates the provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidVectorLength indicates the vector dimension is not positive.
	ErrInvalidVectorLength = errors.New("invalid vector length")

	// ErrInvalidTopK indicates the top-K default is not positive.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidCollectionName indicates the default collection name is empty.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// DefaultCollection is the collection the chat pipeline reads from when
// none is configured.
const DefaultCollection = "faq_base"

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Server
	ServerAddr  string `mapstructure:"server_addr" json:"server_addr"`
	Development bool   `mapstructure:"development" json:"development"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// AI provider and model configuration
	Provider        string  `mapstructure:"provider" json:"provider"` // "openai" (default), "gemini", "ollama"
	CompletionModel string  `mapstructure:"completion_model" json:"completion_model"`
	EmbeddingModel  string  `mapstructure:"embedding_model" json:"embedding_model"`
	Temperature     float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens" json:"max_tokens"`
	TopK            int     `mapstructure:"top_k" json:"top_k"`

	// OpenAIBaseURL is the endpoint used by the raw HTTP embedding
	// fallback transport. The SDK path configures itself from the
	// provider plugin.
	OpenAIBaseURL string `mapstructure:"openai_base_url" json:"openai_base_url"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Vector store configuration
	ChromaURL      string `mapstructure:"chroma_url" json:"chroma_url"`
	CollectionName string `mapstructure:"collection_name" json:"collection_name"`
	VectorLength   int    `mapstructure:"vector_length" json:"vector_length"`

	// Chatwoot configuration
	ChatwootBaseURL  string `mapstructure:"chatwoot_base_url" json:"chatwoot_base_url"`
	ChatwootAPIToken string `mapstructure:"chatwoot_api_token" json:"chatwoot_api_token"` // SENSITIVE: masked in MarshalJSON

	// Ingestion configuration
	DocsDir       string  `mapstructure:"docs_dir" json:"docs_dir"`
	IngestRate    float64 `mapstructure:"ingest_rate" json:"ingest_rate"` // embedding calls per second
	SampleDocText string  `mapstructure:"sample_doc_text" json:"sample_doc_text"`

	// Tracing configuration (optional OTLP HTTP exporter)
	TracingEnabled  bool   `mapstructure:"tracing_enabled" json:"tracing_enabled"`
	TracingEndpoint string `mapstructure:"tracing_endpoint" json:"tracing_endpoint"`
	ServiceName     string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".faqbot")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Fail fast: a half-configured pipeline must not start serving.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Server defaults
	viper.SetDefault("server_addr", "127.0.0.1:3000")
	viper.SetDefault("development", false)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	// AI defaults
	viper.SetDefault("provider", ProviderOpenAI)
	viper.SetDefault("completion_model", "o3-mini")
	viper.SetDefault("embedding_model", "text-embedding-ada-002")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 1000)
	viper.SetDefault("top_k", 2)
	viper.SetDefault("openai_base_url", "https://api.openai.com")
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Vector store defaults
	viper.SetDefault("collection_name", DefaultCollection)
	viper.SetDefault("vector_length", 1536)

	// Chatwoot defaults
	viper.SetDefault("chatwoot_base_url", "https://app.chatwoot.com")

	// Ingestion defaults
	viper.SetDefault("docs_dir", "docs")
	viper.SetDefault("ingest_rate", 2.0)
	viper.SetDefault("sample_doc_text", "This is a sample document for the knowledge base.")

	// Tracing defaults
	viper.SetDefault("tracing_enabled", false)
	viper.SetDefault("tracing_endpoint", "localhost:4318")
	viper.SetDefault("service_name", "faqbot")
}

// bindEnvVariables binds environment variables explicitly.
// NOTE: OPENAI_API_KEY and GEMINI_API_KEY are read directly by the
// Genkit provider plugins, not via Viper; Validate() only checks their
// presence for the selected provider.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("chroma_url", "CHROMA_DB_URL")
	mustBind("collection_name", "CHROMA_COLLECTION_NAME")
	mustBind("vector_length", "VECTOR_LENGTH")
	mustBind("chatwoot_api_token", "CHATWOOT_API_TOKEN")
	mustBind("chatwoot_base_url", "CHATWOOT_BASE_URL")
	mustBind("server_addr", "FAQBOT_SERVER_ADDR")
	mustBind("provider", "FAQBOT_PROVIDER")
	mustBind("completion_model", "FAQBOT_COMPLETION_MODEL")
	mustBind("embedding_model", "FAQBOT_EMBEDDING_MODEL")
	mustBind("ollama_host", "FAQBOT_OLLAMA_HOST")
	mustBind("log_level", "FAQBOT_LOG_LEVEL")
	mustBind("development", "FAQBOT_DEVELOPMENT")
}

// Validate checks configuration ranges and required values.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderOllama:
		// Ollama needs no key.
	default:
		return fmt.Errorf("%w: %q (want openai, gemini, or ollama)", ErrInvalidProvider, c.Provider)
	}

	if c.ChromaURL == "" {
		return ErrMissingChromaURL
	}
	if c.ChatwootAPIToken == "" {
		return ErrMissingChatwootToken
	}
	if c.CollectionName == "" {
		return ErrInvalidCollectionName
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (want 0..2)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens <= 0 || c.MaxTokens > 100_000 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.VectorLength <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidVectorLength, c.VectorLength)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTopK, c.TopK)
	}

	return nil
}

// FullModelName returns the provider-qualified completion model name for
// Genkit, e.g. "openai/o3-mini" or "ollama/llama3.3".
// If CompletionModel already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.CompletionModel, "/") {
		return c.CompletionModel
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.CompletionModel
	case ProviderGemini:
		return "googleai/" + c.CompletionModel
	default:
		return ProviderOpenAI + "/" + c.CompletionModel
	}
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are
// fully masked to prevent substring matching; longer secrets keep the
// first and last two characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking. When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.ChatwootAPIToken = maskSecret(a.ChatwootAPIToken)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
