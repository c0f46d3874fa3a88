// Package chromem implements store.SemanticIndex on chromem-go, a pure
// Go embedded vector database. Each profile gets its own collection for
// namespace isolation.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/store"
)

// Index wraps chromem-go as the semantic side of hybrid retrieval.
type Index struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
	logger      *zap.Logger
}

// New creates an in-memory semantic index.
func New(logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		logger:      logger,
	}, nil
}

func (ix *Index) getOrCreateCollection(profileID string) (*chromem.Collection, error) {
	ix.mu.RLock()
	col, exists := ix.collections[profileID]
	ix.mu.RUnlock()
	if exists {
		return col, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if col, exists := ix.collections[profileID]; exists {
		return col, nil
	}

	name := "profile_" + profileID
	if profileID == "" {
		name = "global"
	}
	col, err := ix.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	ix.collections[profileID] = col
	return col, nil
}

// Index adds an entry with its embedding to the profile's collection.
func (ix *Index) Index(ctx context.Context, e *core.MemoryEntry) error {
	if len(e.Embedding) == 0 {
		return fmt.Errorf("entry %s has no embedding", e.ID)
	}

	col, err := ix.getOrCreateCollection(e.ProfileID)
	if err != nil {
		return err
	}

	// The full entry travels as the document body so Query can hand
	// complete candidates back without a second store lookup.
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	doc := chromem.Document{
		ID:        e.ID,
		Content:   string(body),
		Embedding: e.Embedding,
		Metadata: map[string]string{
			"profile_id": e.ProfileID,
			"lane":       string(e.Lane),
			"type":       string(e.Type),
			"status":     string(e.Status),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Query returns up to limit ACTIVE entries nearest to the embedding.
func (ix *Index) Query(ctx context.Context, profileID string, embedding []float32, limit int) ([]store.SemanticHit, error) {
	col, err := ix.getOrCreateCollection(profileID)
	if err != nil {
		return nil, err
	}

	// chromem-go rejects nResults larger than the collection; shrink
	// until the query is accepted.
	var results []chromem.Result
	for n := limit; n >= 1; n-- {
		results, err = col.QueryEmbedding(ctx, embedding, n, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				return nil, nil // empty collection
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]store.SemanticHit, 0, len(results))
	for _, res := range results {
		var e core.MemoryEntry
		if err := json.Unmarshal([]byte(res.Content), &e); err != nil {
			ix.logger.Warn("skipping undecodable semantic result",
				zap.String("id", res.ID), zap.Error(err))
			continue
		}
		e.Normalize()
		if e.Status != core.StatusActive {
			continue
		}
		hits = append(hits, store.SemanticHit{
			Entry:      &e,
			Similarity: float64(res.Similarity),
		})
	}
	return hits, nil
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
