package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickybot/nicky-go/core"
)

func TestAssembleDedupByCanonicalKey(t *testing.T) {
	same := func(e *core.MemoryEntry) {
		e.Content = "Nicky grew up in Brooklyn."
		e.CanonicalKey = ""
		e.Normalize()
	}
	admitted := []*ScoredEntry{
		{Entry: entry("a", core.TypeFact, same), Score: ScoreBreakdown{Final: 2}},
		{Entry: entry("b", core.TypeFact, same), Score: ScoreBreakdown{Final: 1}},
	}

	out := assemble(admitted, DefaultConfig)

	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Entry.ID, "first (highest-scoring) occurrence wins")
}

func TestAssembleEntryBudget(t *testing.T) {
	cfg := &Config{MaxEntries: 2, MaxChars: 4000}
	admitted := []*ScoredEntry{
		{Entry: entry("a", core.TypeFact)},
		{Entry: entry("b", core.TypeStory)},
		{Entry: entry("c", core.TypeLore)},
	}

	out := assemble(admitted, cfg.withDefaults())
	assert.Len(t, out, 2)
}

func TestAssembleCharBudgetSkipsOversized(t *testing.T) {
	cfg := (&Config{MaxEntries: 8, MaxChars: 60}).withDefaults()
	long := func(e *core.MemoryEntry) { e.Content = strings.Repeat("x", 100) }
	short := func(e *core.MemoryEntry) { e.Content = "short fact" }

	admitted := []*ScoredEntry{
		{Entry: entry("a", core.TypeStory, long)},
		{Entry: entry("b", core.TypeFact, short)},
	}

	out := assemble(admitted, cfg)

	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].Entry.ID, "oversized entry is skipped, not terminal")
}

func TestAssembleEmpty(t *testing.T) {
	assert.Nil(t, assemble(nil, DefaultConfig))
}
