// Package chroma is a minimal HTTP client for a Chroma-style vector
// store. It covers exactly the surface the pipeline needs: collection
// lifecycle plus add/query/get/delete/count on a collection handle.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/faqbase/faqbot/internal/log"
)

const apiPrefix = "/api/v1"

// defaultTimeout bounds any single store call; a slow store stalls one
// request, never the process.
const defaultTimeout = 30 * time.Second

// StatusError is returned when the store answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chroma: status %d: %s", e.Code, e.Body)
}

// IsAlreadyExists reports whether err indicates a create call lost a
// race against a concurrent creator.
func IsAlreadyExists(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusConflict || strings.Contains(se.Body, "already exists")
	}
	return err != nil && strings.Contains(err.Error(), "already exists")
}

// IsNotFound reports whether err indicates a missing collection or document.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to one Chroma server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  log.Logger
}

// New creates a Client for the given base URL (e.g. "http://localhost:8000").
func New(baseURL string, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// CollectionInfo describes a collection as reported by the store.
type CollectionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Collection is a handle bound to one collection on one Client.
type Collection struct {
	info   CollectionInfo
	client *Client
}

// Name returns the collection's human-readable name.
func (c *Collection) Name() string { return c.info.Name }

// ID returns the store-assigned collection identifier.
func (c *Collection) ID() string { return c.info.ID }

// ListCollections returns all collections known to the store.
func (c *Client) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	var out []CollectionInfo
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/collections", nil, &out); err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return out, nil
}

// CreateCollection creates a new collection. A concurrent creator
// winning the race surfaces as an IsAlreadyExists error.
func (c *Client) CreateCollection(ctx context.Context, name string) (*Collection, error) {
	var info CollectionInfo
	body := map[string]any{"name": name}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/collections", body, &info); err != nil {
		return nil, fmt.Errorf("creating collection %q: %w", name, err)
	}
	c.logger.Info("created collection", "name", name)
	return &Collection{info: info, client: c}, nil
}

// GetCollection resolves an existing collection by name.
func (c *Client) GetCollection(ctx context.Context, name string) (*Collection, error) {
	var info CollectionInfo
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/collections/"+name, nil, &info); err != nil {
		return nil, fmt.Errorf("getting collection %q: %w", name, err)
	}
	return &Collection{info: info, client: c}, nil
}

// DeleteCollection removes a collection and all its documents.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodDelete, apiPrefix+"/collections/"+name, nil, nil); err != nil {
		return fmt.Errorf("deleting collection %q: %w", name, err)
	}
	c.logger.Info("deleted collection", "name", name)
	return nil
}

// AddRequest carries parallel slices; index i across all populated
// slices describes one document.
type AddRequest struct {
	IDs        []string         `json:"ids"`
	Embeddings [][]float32      `json:"embeddings"`
	Documents  []string         `json:"documents"`
	Metadatas  []map[string]any `json:"metadatas,omitempty"`
}

// Add inserts documents with their embeddings into the collection.
func (col *Collection) Add(ctx context.Context, req AddRequest) error {
	path := fmt.Sprintf("%s/collections/%s/add", apiPrefix, col.info.ID)
	if err := col.client.do(ctx, http.MethodPost, path, req, nil); err != nil {
		return fmt.Errorf("adding to collection %q: %w", col.info.Name, err)
	}
	return nil
}

// QueryRequest asks for the NResults nearest neighbors of each query
// embedding.
type QueryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include,omitempty"`
}

// QueryResponse mirrors the store's nested layout: the outer index is
// the query embedding, the inner index the neighbor rank.
type QueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Distances [][]float64        `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
}

// Query runs a nearest-neighbor search.
func (col *Collection) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	path := fmt.Sprintf("%s/collections/%s/query", apiPrefix, col.info.ID)
	var out QueryResponse
	if err := col.client.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", col.info.Name, err)
	}
	return &out, nil
}

// GetRequest fetches documents by id or by exact-match metadata filter,
// with optional pagination.
type GetRequest struct {
	IDs     []string       `json:"ids,omitempty"`
	Where   map[string]any `json:"where,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset,omitempty"`
	Include []string       `json:"include,omitempty"`
}

// GetResponse carries flat parallel slices (one entry per document).
type GetResponse struct {
	IDs       []string         `json:"ids"`
	Documents []string         `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
}

// Get fetches documents without similarity scoring.
func (col *Collection) Get(ctx context.Context, req GetRequest) (*GetResponse, error) {
	path := fmt.Sprintf("%s/collections/%s/get", apiPrefix, col.info.ID)
	var out GetResponse
	if err := col.client.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, fmt.Errorf("getting from collection %q: %w", col.info.Name, err)
	}
	return &out, nil
}

// Delete removes documents by id.
func (col *Collection) Delete(ctx context.Context, ids []string) error {
	path := fmt.Sprintf("%s/collections/%s/delete", apiPrefix, col.info.ID)
	body := map[string]any{"ids": ids}
	if err := col.client.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("deleting from collection %q: %w", col.info.Name, err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (col *Collection) Count(ctx context.Context) (int, error) {
	path := fmt.Sprintf("%s/collections/%s/count", apiPrefix, col.info.ID)
	var n int
	if err := col.client.do(ctx, http.MethodGet, path, nil, &n); err != nil {
		return 0, fmt.Errorf("counting collection %q: %w", col.info.Name, err)
	}
	return n, nil
}

// do performs one JSON round trip. A non-2xx response becomes a
// *StatusError carrying the body text.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
