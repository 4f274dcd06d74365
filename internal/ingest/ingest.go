// Package ingest feeds knowledge-base documents from a docs directory
// into the store. Embedding calls are rate limited, and a cache file in
// the docs directory prevents re-embedding unchanged files.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/faqbase/faqbot/internal/log"
)

// cacheFile records the content hash of every ingested file, relative
// to the docs directory.
const cacheFile = ".ingested.json"

// sampleFile is created when the docs directory is empty so a fresh
// install has at least one document to answer from.
const sampleFile = "sample.txt"

// DocumentAdder stores one document. Satisfied by knowledge.Store.
type DocumentAdder interface {
	AddDocument(ctx context.Context, text string, metadata map[string]any) (string, error)
}

// Report summarizes one ingestion run.
type Report struct {
	Scanned  int `json:"scanned"`
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Ingester walks a docs directory and stores its files.
type Ingester struct {
	adder   DocumentAdder
	limiter *rate.Limiter
	logger  log.Logger
}

// New creates an Ingester. callsPerSecond bounds the embedding-call
// rate; zero or negative disables limiting.
func New(adder DocumentAdder, callsPerSecond float64, logger log.Logger) *Ingester {
	if logger == nil {
		logger = log.NewNop()
	}
	limit := rate.Inf
	if callsPerSecond > 0 {
		limit = rate.Limit(callsPerSecond)
	}
	return &Ingester{
		adder:   adder,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Run ingests every .txt and .md file under dir that is new or changed
// since the last run. If dir is missing or holds no documents, a sample
// document with sampleText is created first (when sampleText is
// non-empty).
func (i *Ingester) Run(ctx context.Context, dir, sampleText string) (*Report, error) {
	if err := i.ensureSampleDoc(dir, sampleText); err != nil {
		return nil, err
	}

	cache, err := loadCache(dir)
	if err != nil {
		return nil, err
	}

	var report Report
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDocFile(path) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		report.Scanned++

		data, err := os.ReadFile(path)
		if err != nil {
			i.logger.Error("reading document failed", "file", rel, "error", err)
			report.Failed++
			return nil
		}

		text := strings.TrimSpace(string(data))
		if text == "" {
			report.Skipped++
			return nil
		}

		hash := hashContent(data)
		if cache[rel] == hash {
			i.logger.Debug("document unchanged, skipping", "file", rel)
			report.Skipped++
			return nil
		}

		if err := i.limiter.Wait(ctx); err != nil {
			return err
		}

		id, err := i.adder.AddDocument(ctx, text, map[string]any{
			"source": rel,
			"date":   time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			i.logger.Error("ingesting document failed", "file", rel, "error", err)
			report.Failed++
			return nil
		}

		i.logger.Info("document ingested", "file", rel, "id", id)
		cache[rel] = hash
		report.Ingested++
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking docs directory %q: %w", dir, walkErr)
	}

	if err := saveCache(dir, cache); err != nil {
		return nil, err
	}
	return &report, nil
}

// ensureSampleDoc creates dir and a sample document when no documents
// exist yet.
func (i *Ingester) ensureSampleDoc(dir, sampleText string) error {
	if strings.TrimSpace(sampleText) == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating docs directory %q: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading docs directory %q: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && isDocFile(e.Name()) {
			return nil
		}
	}

	path := filepath.Join(dir, sampleFile)
	if err := os.WriteFile(path, []byte(sampleText+"\n"), 0o640); err != nil {
		return fmt.Errorf("writing sample document: %w", err)
	}
	i.logger.Info("created sample document", "file", path)
	return nil
}

func isDocFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func loadCache(dir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading ingest cache: %w", err)
	}

	cache := map[string]string{}
	if err := json.Unmarshal(data, &cache); err != nil {
		// A corrupt cache only costs re-embedding; start over.
		return map[string]string{}, nil
	}
	return cache, nil
}

func saveCache(dir string, cache map[string]string) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ingest cache: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, cacheFile), data, 0o640); err != nil {
		return fmt.Errorf("writing ingest cache: %w", err)
	}
	return nil
}
