// Package engine runs one conversational turn end to end: retrieve
// memory context, frame the system prompt, call the generation model
// and record the exchange back into memory.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/persona"
	"github.com/nickybot/nicky-go/retrieval"
	"github.com/nickybot/nicky-go/store"
)

// Engine orchestrates retrieval, generation and recording for a persona.
type Engine struct {
	gen      Generator
	pipeline *retrieval.Pipeline
	store    store.Store
	presets  *persona.Set
	log      *zap.Logger

	model     string
	maxTokens int64
}

// Option configures the engine.
type Option func(*Engine)

// WithStore enables exchange recording into the given store.
func WithStore(st store.Store) Option {
	return func(e *Engine) { e.store = st }
}

// WithPresets sets the persona presets used for prompt framing.
func WithPresets(set *persona.Set) Option {
	return func(e *Engine) { e.presets = set }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithModel overrides the default generation model.
func WithModel(model string) Option {
	return func(e *Engine) { e.model = model }
}

// WithMaxTokens overrides the default response token cap.
func WithMaxTokens(n int64) Option {
	return func(e *Engine) { e.maxTokens = n }
}

// NewEngine creates an engine over a generator and a retrieval pipeline.
func NewEngine(gen Generator, pipeline *retrieval.Pipeline, opts ...Option) *Engine {
	e := &Engine{
		gen:       gen,
		pipeline:  pipeline,
		presets:   persona.Defaults(),
		log:       zap.NewNop(),
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input is one user turn.
type Input struct {
	// UserMessage is the user's message to process.
	UserMessage string

	// ProfileID identifies the persona profile whose memory is searched.
	ProfileID string

	// ConversationID groups turns of one conversation.
	ConversationID string

	// State is the persona volatility snapshot for this turn.
	State core.PersonaState

	// History contains previous messages in the conversation.
	History []Message
}

// Output is the result of one turn.
type Output struct {
	// Text is the persona's response.
	Text string

	// Entries is the memory context that grounded the response.
	Entries []*retrieval.ScoredEntry

	// Trace explains how the context was retrieved.
	Trace *retrieval.Trace

	// Gap is set when the canon lane could not answer the question.
	Gap *retrieval.Gap

	// InputTokens and OutputTokens track model usage for this turn.
	InputTokens  int
	OutputTokens int
}

// Run executes one turn. Retrieval degradation never fails the turn;
// only a generation failure surfaces as an error.
func (e *Engine) Run(ctx context.Context, input *Input) (*Output, error) {
	if input.UserMessage == "" {
		return nil, fmt.Errorf("empty user message")
	}
	state := input.State.Normalize()

	// === PHASE 1: RETRIEVE CONTEXT ===
	res := e.pipeline.RetrieveContext(ctx, input.UserMessage, input.ProfileID, input.ConversationID, state)
	e.log.Debug("context retrieved",
		zap.String("method", res.Trace.RetrievalMethod),
		zap.Int("entries", len(res.Entries)),
		zap.Int64("execution_ms", res.Trace.ExecutionMs))

	// === PHASE 2: FRAME PROMPT ===
	var preset *persona.Preset
	if e.presets != nil {
		if p, ok := e.presets.Get(state.Preset); ok {
			preset = &p
		}
	}
	system := BuildSystemPrompt(preset, state, res.Entries)

	// === PHASE 3: GENERATE ===
	resp, err := e.gen.Generate(ctx, GenerateRequest{
		System:      system,
		History:     input.History,
		UserMessage: input.UserMessage,
		Model:       e.model,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}

	// === PHASE 4: RECORD EXCHANGE ===
	if e.store != nil {
		e.recordExchange(ctx, input, state, resp.Text)
	}

	return &Output{
		Text:         resp.Text,
		Entries:      res.Entries,
		Trace:        res.Trace,
		Gap:          res.Gap,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

// Close drains background work in the retrieval pipeline.
func (e *Engine) Close() {
	if e.pipeline != nil {
		e.pipeline.Close()
	}
}

// recordExchange writes the turn back into memory as a CONTEXT entry.
// Best-effort: a duplicate key means the same exchange was already
// recorded, and any other failure is logged, never escalated.
func (e *Engine) recordExchange(ctx context.Context, input *Input, state core.PersonaState, response string) {
	content := fmt.Sprintf("User: %s\nNicky: %s", input.UserMessage, response)
	entry := &core.MemoryEntry{
		ID:             ulid.Make().String(),
		ProfileID:      input.ProfileID,
		ConversationID: input.ConversationID,
		Content:        content,
		Type:           core.TypeContext,
		Lane:           core.LaneCanon,
		Importance:     30,
		Confidence:     90,
		Keywords:       retrieval.ExtractKeywords(input.UserMessage),
		Source:         "conversation",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	entry.Normalize()

	if err := e.store.Put(ctx, entry); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return
		}
		e.log.Warn("exchange recording failed", zap.Error(err))
	}
}
