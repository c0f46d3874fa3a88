package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickybot/nicky-go/core"
)

func entry(id string, typ core.MemoryType, opts ...func(*core.MemoryEntry)) *core.MemoryEntry {
	e := &core.MemoryEntry{
		ID:         id,
		ProfileID:  "p1",
		Content:    "content " + id,
		Type:       typ,
		Lane:       core.LaneCanon,
		Importance: 50,
		Confidence: 80,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Normalize()
	return e
}

func TestDetectIntent(t *testing.T) {
	assert.Equal(t, core.TypePreference, DetectIntent("what's your favorite pizza topping"))
	assert.Equal(t, core.TypeStory, DetectIntent("do you remember the wedding"))
	assert.Equal(t, core.TypeLore, DetectIntent("is that legend real"))
	assert.Equal(t, core.TypeFact, DetectIntent("where did you grow up"))
	assert.Equal(t, core.MemoryType(""), DetectIntent("hello there"))
}

func TestDetectIntentWholeWords(t *testing.T) {
	// "whatever" must not trip the "what" fact intent
	assert.Equal(t, core.MemoryType(""), DetectIntent("whatever happens happens"))
}

func TestScoreBaseFormula(t *testing.T) {
	w := DefaultConfig.Weights
	pool := []Hit{{
		Entry:      entry("a", core.TypeFact, func(e *core.MemoryEntry) { e.Importance = 50; e.Confidence = 80 }),
		Similarity: 0.9,
	}}

	scored := scoreCandidates(pool, Query{}, "", w)
	require.Len(t, scored, 1)

	wantBase := 0.9*1.2 + 50*0.1 + 80*0.001
	assert.InDelta(t, wantBase, scored[0].Score.Base, 1e-9)
	assert.Equal(t, 1.0, scored[0].Score.DiversityFactor)
}

func TestScoreContextualBonuses(t *testing.T) {
	w := DefaultConfig.Weights
	e := entry("a", core.TypePreference, func(e *core.MemoryEntry) {
		e.ConversationID = "c1"
		e.Importance = 100
		e.Confidence = 100
		e.Keywords = []string{"pizza", "topping"}
	})
	q := Query{ConversationID: "c1", Keywords: []string{"pizza", "topping", "brooklyn"}}

	scored := scoreCandidates([]Hit{{Entry: e}}, q, core.TypePreference, w)
	require.Len(t, scored, 1)

	// conversation + intent + importance + confidence + 2 keyword matches
	want := 0.5 + 0.4 + 0.25 + 0.10 + 2*0.10
	assert.InDelta(t, want, scored[0].Score.Contextual, 1e-9)
}

func TestScoreLexicalOnlyHasZeroSimilarity(t *testing.T) {
	w := DefaultConfig.Weights
	scored := scoreCandidates([]Hit{{Entry: entry("a", core.TypeFact)}}, Query{}, "", w)
	require.Len(t, scored, 1)
	wantBase := 50*0.1 + 80*0.001
	assert.InDelta(t, wantBase, scored[0].Score.Base, 1e-9)
}

func TestScoreTieBreakByID(t *testing.T) {
	w := DefaultConfig.Weights
	pool := []Hit{
		{Entry: entry("zzz", core.TypeFact)},
		{Entry: entry("aaa", core.TypeFact)},
		{Entry: entry("mmm", core.TypeFact)},
	}

	scored := scoreCandidates(pool, Query{}, "", w)
	require.Len(t, scored, 3)
	assert.Equal(t, "aaa", scored[0].Entry.ID)
	assert.Equal(t, "mmm", scored[1].Entry.ID)
	assert.Equal(t, "zzz", scored[2].Entry.ID)
}

func TestScoreClampsMalformedEntry(t *testing.T) {
	w := DefaultConfig.Weights
	e := &core.MemoryEntry{ID: "bad", Content: "x", Importance: 900, Confidence: -5}

	scored := scoreCandidates([]Hit{{Entry: e}}, Query{}, "", w)
	require.Len(t, scored, 1)
	assert.Equal(t, 100.0, scored[0].Entry.Importance)
	assert.Equal(t, 0.0, scored[0].Entry.Confidence)
}
