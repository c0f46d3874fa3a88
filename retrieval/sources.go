package retrieval

import (
	"context"
	"fmt"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/store"
)

// SemanticSource queries a vector index with the turn's query embedding.
type SemanticSource struct {
	index store.SemanticIndex
}

// NewSemanticSource wraps a semantic index as a retrieval source.
func NewSemanticSource(index store.SemanticIndex) *SemanticSource {
	return &SemanticSource{index: index}
}

func (s *SemanticSource) Name() string     { return "semantic" }
func (s *SemanticSource) Kind() SourceKind { return KindSemantic }

// Search returns the nearest entries to the query embedding. A query
// with no embedding yields no hits rather than an error, so the engine
// falls through to lexical sources.
func (s *SemanticSource) Search(ctx context.Context, q Query) ([]Hit, error) {
	if len(q.Embedding) == 0 {
		return nil, nil
	}
	results, err := s.index.Query(ctx, q.ProfileID, q.Embedding, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("semantic query: %w", err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if r.Entry == nil {
			continue
		}
		hits = append(hits, Hit{Entry: r.Entry, Similarity: r.Similarity})
	}
	return hits, nil
}

// KeywordSource queries the durable store's full-text index. A scope
// restricts it to one provenance kind, which is how transcript-derived
// memories, document excerpts and training examples become separate
// fan-out branches over the same store.
type KeywordSource struct {
	store store.Store
	name  string
	scope string
}

// NewKeywordSource wraps the store's keyword search, unscoped.
func NewKeywordSource(st store.Store) *KeywordSource {
	return &KeywordSource{store: st, name: "keyword"}
}

// NewScopedKeywordSource wraps the store's keyword search restricted to
// entries with the given source provenance.
func NewScopedKeywordSource(st store.Store, name, scope string) *KeywordSource {
	return &KeywordSource{store: st, name: name, scope: scope}
}

func (s *KeywordSource) Name() string     { return s.name }
func (s *KeywordSource) Kind() SourceKind { return KindLexical }

// Search returns full-text matches for the query keywords. Lexical hits
// carry zero similarity.
func (s *KeywordSource) Search(ctx context.Context, q Query) ([]Hit, error) {
	if len(q.Keywords) == 0 {
		return nil, nil
	}
	entries, err := s.store.SearchKeywords(ctx, store.SearchParams{
		ProfileID: q.ProfileID,
		Keywords:  q.Keywords,
		Source:    s.scope,
		Limit:     q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search %s: %w", s.name, err)
	}
	hits := make([]Hit, 0, len(entries))
	for _, e := range entries {
		hits = append(hits, Hit{Entry: e})
	}
	return hits, nil
}

// ConversationSource surfaces recent CONTEXT entries from the current
// conversation regardless of keyword match, so the persona keeps short
// range continuity even when the user changes subject.
type ConversationSource struct {
	store store.Store
}

// NewConversationSource wraps the store as a current-conversation source.
func NewConversationSource(st store.Store) *ConversationSource {
	return &ConversationSource{store: st}
}

func (s *ConversationSource) Name() string     { return "conversation" }
func (s *ConversationSource) Kind() SourceKind { return KindLexical }

func (s *ConversationSource) Search(ctx context.Context, q Query) ([]Hit, error) {
	if q.ConversationID == "" || len(q.Keywords) == 0 {
		return nil, nil
	}
	entries, err := s.store.SearchKeywords(ctx, store.SearchParams{
		ProfileID: q.ProfileID,
		Keywords:  q.Keywords,
		Limit:     q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("conversation search: %w", err)
	}
	hits := make([]Hit, 0, len(entries))
	for _, e := range entries {
		if e.ConversationID != q.ConversationID || e.Type != core.TypeContext {
			continue
		}
		hits = append(hits, Hit{Entry: e})
	}
	return hits, nil
}
