package retrieval

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/persona"
	"github.com/nickybot/nicky-go/store"
)

// counterTimeout bounds the background retrieval-count bump.
const counterTimeout = 2 * time.Second

// Pipeline runs the full retrieval flow for one conversational turn:
// keyword extraction, enhancement, concurrent multi-source search,
// scoring, diversity adjustment, lane policy, assembly and tracing.
type Pipeline struct {
	cfg      *Config
	store    store.Store
	embedder Embedder
	sources  []Source
	presets  *persona.Set
	log      *zap.Logger

	wg sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConfig overrides the default tunables.
func WithConfig(cfg *Config) Option {
	return func(p *Pipeline) { p.cfg = cfg }
}

// WithEmbedder sets the query embedder. Without one, retrieval runs on
// lexical sources alone.
func WithEmbedder(e Embedder) Option {
	return func(p *Pipeline) { p.embedder = e }
}

// WithSource appends a retrieval source. Sources are searched
// concurrently; merge order follows registration order.
func WithSource(s Source) Option {
	return func(p *Pipeline) { p.sources = append(p.sources, s) }
}

// WithPresets sets the persona preset set used for keyword enhancement.
func WithPresets(set *persona.Set) Option {
	return func(p *Pipeline) { p.presets = set }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// New builds a Pipeline over the store. With no WithSource options it
// registers the store's keyword source, so a minimal setup still
// retrieves.
func New(st store.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   st,
		presets: persona.Defaults(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cfg = p.cfg.withDefaults()
	if len(p.sources) == 0 {
		p.sources = append(p.sources, NewKeywordSource(st))
	}
	return p
}

// Result is everything one retrieval turn produces.
type Result struct {
	Entries []*ScoredEntry
	Trace   *Trace
	Gap     *Gap
}

// RetrieveContext selects the bounded, policy-compliant memory slice
// for the message. It never fails: a degraded or empty retrieval
// returns an empty result whose trace explains what happened, and the
// parent turn proceeds.
func (p *Pipeline) RetrieveContext(ctx context.Context, message, profileID, conversationID string, state core.PersonaState) *Result {
	started := time.Now()
	state = state.Normalize()
	trace := newTrace(message)
	trace.Zone = ZoneFor(state, p.cfg)

	keywords := ExtractKeywords(message)
	if len(keywords) == 0 {
		trace.ExecutionMs = time.Since(started).Milliseconds()
		return &Result{Trace: trace}
	}

	var preset *persona.Preset
	if p.presets != nil {
		if pr, ok := p.presets.Get(state.Preset); ok {
			preset = &pr
		}
	}
	enhanced := EnhanceKeywords(keywords, preset, state.Mode)

	var embedding []float32
	if p.embedder != nil {
		emb, err := p.embedder.Embed(ctx, message)
		if err != nil {
			p.log.Warn("query embedding failed, lexical only", zap.Error(err))
		} else {
			embedding = emb
		}
	}

	q := Query{
		ProfileID:      profileID,
		ConversationID: conversationID,
		Message:        message,
		Keywords:       enhanced,
		Embedding:      embedding,
		Limit:          p.cfg.PerSourceLimit,
	}

	pool, reports := searchAll(ctx, p.sources, q, p.cfg, p.log)
	trace.Sources = reports
	trace.RetrievalMethod = methodFrom(reports)

	intent := DetectIntent(message)
	ranked := scoreCandidates(pool, q, intent, p.cfg.Weights)
	adjustDiversity(ranked, p.cfg.Weights)
	admitted := filterLanes(ranked, state, p.cfg)
	entries := assemble(admitted, p.cfg)

	trace.Entries = make([]TraceEntry, len(entries))
	for i, se := range entries {
		trace.Entries[i] = TraceEntry{ID: se.Entry.ID, Score: se.Score.Final}
	}
	trace.ExecutionMs = time.Since(started).Milliseconds()

	gap := detectGap(admitted, intent, p.cfg)
	if gap != nil {
		p.log.Info("knowledge gap detected",
			zap.String("category", gap.Category),
			zap.Int("priority", gap.Priority))
	}

	p.bumpCounters(entries)

	return &Result{Entries: entries, Trace: trace, Gap: gap}
}

// bumpCounters increments retrieval counts off the critical path. The
// write is fire-and-forget: it runs on a background context so turn
// cancellation cannot abort it, and a failure is logged, never
// escalated.
func (p *Pipeline) bumpCounters(entries []*ScoredEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]string, len(entries))
	for i, se := range entries {
		ids[i] = se.Entry.ID
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), counterTimeout)
		defer cancel()
		if err := p.store.IncrementRetrieval(ctx, ids); err != nil {
			p.log.Warn("retrieval count bump failed", zap.Error(err))
		}
	}()
}

// Close waits for in-flight background counter writes to drain.
func (p *Pipeline) Close() {
	p.wg.Wait()
}
