package retrieval

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nickybot/nicky-go/core"
)

// SourceKind distinguishes how a source matches candidates. The trace
// retrieval method is derived from which kinds contributed hits.
type SourceKind string

const (
	KindSemantic SourceKind = "semantic"
	KindLexical  SourceKind = "lexical"
)

// Query is the request handed to every retrieval source for one turn.
// Sources read it, never mutate it.
type Query struct {
	ProfileID      string
	ConversationID string
	Message        string
	Keywords       []string
	Embedding      []float32
	Limit          int
}

// Hit is one candidate from one source. Similarity is 0 for lexical
// hits; only semantic sources populate it.
type Hit struct {
	Entry      *core.MemoryEntry
	Similarity float64
}

// Source is a single retrieval backend the engine fans out to.
type Source interface {
	Name() string
	Kind() SourceKind
	Search(ctx context.Context, q Query) ([]Hit, error)
}

// SourceReport records how one branch of the fan-out went.
type SourceReport struct {
	Source   string        `json:"source"`
	Kind     SourceKind    `json:"kind"`
	Hits     int           `json:"hits"`
	Elapsed  time.Duration `json:"elapsed"`
	Err      string        `json:"err,omitempty"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

// searchAll runs every source concurrently with an individual timeout
// and merges the settled results. Each branch writes into its own slot,
// so the merge sees no concurrent mutation, and the merged order
// depends only on registration order and entry ids, never on branch
// arrival order. A failed or timed-out branch contributes nothing; the
// report carries the reason.
func searchAll(ctx context.Context, sources []Source, q Query, cfg *Config, log *zap.Logger) ([]Hit, []SourceReport) {
	if len(sources) == 0 {
		return nil, nil
	}

	type slot struct {
		hits   []Hit
		report SourceReport
	}
	slots := make([]slot, len(sources))
	sem := make(chan struct{}, cfg.MaxConcurrentSources)
	done := make(chan int, len(sources))

	for i, src := range sources {
		go func(i int, src Source) {
			defer func() { done <- i }()

			sem <- struct{}{}
			defer func() { <-sem }()

			branchCtx, cancel := context.WithTimeout(ctx, cfg.SourceTimeout)
			defer cancel()

			started := time.Now()
			hits, err := src.Search(branchCtx, q)
			report := SourceReport{
				Source:  src.Name(),
				Kind:    src.Kind(),
				Hits:    len(hits),
				Elapsed: time.Since(started),
			}
			if err != nil {
				report.Err = err.Error()
				report.TimedOut = errors.Is(err, context.DeadlineExceeded)
				report.Hits = 0
				hits = nil
				log.Warn("retrieval source degraded",
					zap.String("source", src.Name()),
					zap.Bool("timed_out", report.TimedOut),
					zap.Error(err))
			}
			slots[i] = slot{hits: hits, report: report}
		}(i, src)
	}

	for range sources {
		<-done
	}

	reports := make([]SourceReport, len(sources))
	var merged []Hit
	for i := range slots {
		reports[i] = slots[i].report
		merged = append(merged, slots[i].hits...)
	}
	return mergePool(merged), reports
}

// mergePool deduplicates hits by entry id, keeping the highest
// similarity seen for each. A lexical hit on an entry the semantic
// index also returned must not erase the similarity signal.
func mergePool(hits []Hit) []Hit {
	if len(hits) == 0 {
		return nil
	}
	best := make(map[string]Hit, len(hits))
	for _, h := range hits {
		if h.Entry == nil || h.Entry.ID == "" {
			continue
		}
		if prev, ok := best[h.Entry.ID]; !ok || h.Similarity > prev.Similarity {
			best[h.Entry.ID] = h
		}
	}
	pool := make([]Hit, 0, len(best))
	for _, h := range best {
		pool = append(pool, h)
	}
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].Entry.ID < pool[j].Entry.ID
	})
	return pool
}
