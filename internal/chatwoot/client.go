// Package chatwoot is the outbound client for the Chatwoot messaging
// API: posting agent replies into a conversation and reading
// conversation state.
package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/faqbase/faqbot/internal/log"
)

const defaultTimeout = 15 * time.Second

// Config holds connection settings for one Chatwoot installation.
type Config struct {
	// BaseURL is the installation root, e.g. "https://app.chatwoot.com".
	BaseURL string

	// APIToken authenticates every request via the api_access_token
	// header.
	APIToken string
}

// Client talks to one Chatwoot installation. Safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger log.Logger
}

// New creates a Client.
func New(cfg Config, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: logger,
	}
}

// Message is a message inside a conversation.
type Message struct {
	ID          int64  `json:"id"`
	Content     string `json:"content"`
	MessageType any    `json:"message_type"` // string or numeric depending on endpoint
	CreatedAt   int64  `json:"created_at"`
}

// Conversation is the subset of conversation state the bot reads.
type Conversation struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// SendMessage posts an outgoing reply into a conversation. The message
// appears in the conversation as coming from the agent side.
func (c *Client) SendMessage(ctx context.Context, accountID, conversationID int64, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("chatwoot: message content cannot be empty")
	}

	path := fmt.Sprintf("/api/v1/accounts/%d/conversations/%d/messages", accountID, conversationID)
	body := map[string]any{
		"content":      content,
		"message_type": "outgoing",
	}
	var msg Message
	if err := c.do(ctx, http.MethodPost, path, body, &msg); err != nil {
		return fmt.Errorf("sending message to conversation %d: %w", conversationID, err)
	}

	c.logger.Info("reply delivered",
		"account_id", accountID,
		"conversation_id", conversationID,
		"message_id", msg.ID,
		"content_length", len(content))
	return nil
}

// GetConversation fetches conversation state.
func (c *Client) GetConversation(ctx context.Context, accountID, conversationID int64) (*Conversation, error) {
	path := fmt.Sprintf("/api/v1/accounts/%d/conversations/%d", accountID, conversationID)
	var conv Conversation
	if err := c.do(ctx, http.MethodGet, path, nil, &conv); err != nil {
		return nil, fmt.Errorf("getting conversation %d: %w", conversationID, err)
	}
	return &conv, nil
}

// ListMessages fetches the messages of a conversation.
func (c *Client) ListMessages(ctx context.Context, accountID, conversationID int64) ([]Message, error) {
	path := fmt.Sprintf("/api/v1/accounts/%d/conversations/%d/messages", accountID, conversationID)
	var out struct {
		Payload []Message `json:"payload"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("listing messages of conversation %d: %w", conversationID, err)
	}
	return out.Payload, nil
}

// do performs one authenticated JSON round trip.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", c.cfg.APIToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chatwoot: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
