// Package knowledge manages the FAQ document collection: lifecycle,
// document CRUD, and similarity search used to build reply context.
package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/faqbase/faqbot/internal/apperr"
	"github.com/faqbase/faqbot/internal/chroma"
	"github.com/faqbase/faqbot/internal/log"
)

// NoMatchesFound is the context value returned when a search yields no
// usable documents. Callers treat it as "answer without context".
const NoMatchesFound = "No relevant results were found."

// Embedder turns text into a fixed-length vector. Satisfied by
// embed.Service.
type Embedder interface {
	Embed(ctx context.Context, text, model string) ([]float32, error)
}

// Config holds the store's collection settings.
type Config struct {
	// CollectionName is the collection searched by the reply pipeline.
	CollectionName string

	// TopK is the default number of neighbors per search.
	TopK int
}

// Store is the knowledge base backed by one Chroma collection.
// Safe for concurrent use; the collection handle is resolved once and
// cached.
type Store struct {
	client   *chroma.Client
	embedder Embedder
	cfg      Config
	logger   log.Logger

	mu  sync.Mutex
	col *chroma.Collection
}

// New creates a Store. The collection is resolved lazily on first use.
func New(client *chroma.Client, embedder Embedder, cfg Config, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 2
	}
	return &Store{client: client, embedder: embedder, cfg: cfg, logger: logger}
}

// EnsureCollection resolves (creating if necessary) the configured
// collection and caches the handle. Losing the create race to a
// concurrent creator is not an error; the existing collection is used.
func (s *Store) EnsureCollection(ctx context.Context) (*chroma.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.col != nil {
		return s.col, nil
	}

	col, err := s.client.GetCollection(ctx, s.cfg.CollectionName)
	if err == nil {
		s.col = col
		return col, nil
	}
	if !chroma.IsNotFound(err) {
		return nil, apperr.Store(fmt.Sprintf("resolving collection %q", s.cfg.CollectionName), err)
	}

	col, err = s.client.CreateCollection(ctx, s.cfg.CollectionName)
	if err != nil {
		if chroma.IsAlreadyExists(err) {
			col, err = s.client.GetCollection(ctx, s.cfg.CollectionName)
			if err != nil {
				return nil, apperr.Store(fmt.Sprintf("resolving collection %q after create race", s.cfg.CollectionName), err)
			}
			s.col = col
			return col, nil
		}
		return nil, apperr.Store(fmt.Sprintf("creating collection %q", s.cfg.CollectionName), err)
	}

	s.logger.Info("collection ready", "name", s.cfg.CollectionName)
	s.col = col
	return col, nil
}

// Stats reports the current collection name, id and document count.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	col, err := s.EnsureCollection(ctx)
	if err != nil {
		return nil, err
	}
	n, err := col.Count(ctx)
	if err != nil {
		return nil, apperr.Store("counting documents", err)
	}
	return &Stats{Name: col.Name(), ID: col.ID(), Count: n}, nil
}

// Reset drops the collection with all its documents and recreates it
// empty. The cached handle is invalidated first so a failed recreate
// cannot leave a stale handle behind.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.col = nil
	s.mu.Unlock()

	if err := s.client.DeleteCollection(ctx, s.cfg.CollectionName); err != nil && !chroma.IsNotFound(err) {
		return apperr.Store(fmt.Sprintf("deleting collection %q", s.cfg.CollectionName), err)
	}

	_, err := s.EnsureCollection(ctx)
	return err
}

// AddDocument embeds text and stores it. A non-empty "id" string in
// metadata names the document; otherwise a fresh UUID is assigned. The
// returned id addresses the document for Get/Delete.
func (s *Store) AddDocument(ctx context.Context, text string, metadata map[string]any) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperr.Validation("document text cannot be empty")
	}

	col, err := s.EnsureCollection(ctx)
	if err != nil {
		return "", err
	}

	vector, err := s.embedder.Embed(ctx, text, "")
	if err != nil {
		return "", fmt.Errorf("embedding document: %w", err)
	}

	id, _ := metadata["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	req := chroma.AddRequest{
		IDs:        []string{id},
		Embeddings: [][]float32{vector},
		Documents:  []string{text},
	}
	if metadata != nil {
		req.Metadatas = []map[string]any{metadata}
	}
	if err := col.Add(ctx, req); err != nil {
		return "", apperr.Store("adding document", err)
	}

	s.logger.Info("document added", "id", id, "text_length", len(text))
	return id, nil
}

// Document fetches one document by id. A missing id is a not-found
// store error.
func (s *Store) Document(ctx context.Context, id string) (*Document, error) {
	col, err := s.EnsureCollection(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := col.Get(ctx, chroma.GetRequest{
		IDs:     []string{id},
		Include: []string{"documents", "metadatas"},
	})
	if err != nil {
		return nil, apperr.Store("getting document", err)
	}
	if len(resp.IDs) == 0 {
		return nil, apperr.New(apperr.KindStore, 404, fmt.Sprintf("document %q not found", id))
	}

	doc := &Document{ID: resp.IDs[0]}
	if len(resp.Documents) > 0 {
		doc.Content = resp.Documents[0]
	}
	if len(resp.Metadatas) > 0 {
		doc.Metadata = resp.Metadatas[0]
	}
	return doc, nil
}

// DeleteDocument removes one document by id.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	col, err := s.EnsureCollection(ctx)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, []string{id}); err != nil {
		return apperr.Store("deleting document", err)
	}
	s.logger.Info("document deleted", "id", id)
	return nil
}

// Browse lists documents without similarity scoring, paginated by
// limit and offset. A non-nil where narrows the listing to documents
// whose metadata matches every given key exactly.
func (s *Store) Browse(ctx context.Context, where map[string]any, limit, offset int) ([]Document, error) {
	col, err := s.EnsureCollection(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := col.Get(ctx, chroma.GetRequest{
		Where:   where,
		Limit:   limit,
		Offset:  offset,
		Include: []string{"documents", "metadatas"},
	})
	if err != nil {
		return nil, apperr.Store("browsing documents", err)
	}

	docs := make([]Document, 0, len(resp.IDs))
	for i, id := range resp.IDs {
		doc := Document{ID: id}
		if i < len(resp.Documents) {
			doc.Content = resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			doc.Metadata = resp.Metadatas[i]
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Search embeds query and returns up to topK nearest documents, closest
// first. topK <= 0 falls back to the configured default.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validation("search query cannot be empty")
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	col, err := s.EnsureCollection(ctx)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, query, "")
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	resp, err := col.Query(ctx, chroma.QueryRequest{
		QueryEmbeddings: [][]float32{vector},
		NResults:        topK,
		Include:         []string{"documents", "distances", "metadatas"},
	})
	if err != nil {
		return nil, apperr.Store("querying collection", err)
	}

	matches := flattenMatches(resp)

	// The store is expected to rank ascending already; sorting here keeps
	// the closest-first contract independent of the backend.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	s.logger.Debug("similarity search complete",
		"query_length", len(query), "top_k", topK, "matches", len(matches))
	return matches, nil
}

// SearchContext runs Search and joins the matched documents into one
// context block. When nothing usable matches it returns NoMatchesFound.
func (s *Store) SearchContext(ctx context.Context, query string, topK int) (string, error) {
	matches, err := s.Search(ctx, query, topK)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		parts = append(parts, m.Content)
	}
	if len(parts) == 0 {
		return NoMatchesFound, nil
	}
	return strings.Join(parts, "\n\n"), nil
}

// flattenMatches extracts the first query row from the store's nested
// response layout, tolerating missing include sections.
func flattenMatches(resp *chroma.QueryResponse) []Match {
	if len(resp.IDs) == 0 {
		return nil
	}

	ids := resp.IDs[0]
	matches := make([]Match, 0, len(ids))
	for i, id := range ids {
		m := Match{Document: Document{ID: id}}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			m.Content = resp.Documents[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			m.Distance = resp.Distances[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			m.Metadata = resp.Metadatas[0][i]
		}
		matches = append(matches, m)
	}
	return matches
}
