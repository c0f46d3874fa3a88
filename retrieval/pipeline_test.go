package retrieval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/store"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]*core.MemoryEntry
	bumped  map[string]int
}

func newFakeStore(entries ...*core.MemoryEntry) *fakeStore {
	fs := &fakeStore{
		entries: make(map[string]*core.MemoryEntry),
		bumped:  make(map[string]int),
	}
	for _, e := range entries {
		fs.entries[e.ID] = e
	}
	return fs
}

func (f *fakeStore) Put(ctx context.Context, e *core.MemoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.ID] = e
	return nil
}

func (f *fakeStore) Get(ctx context.Context, profileID, id string) (*core.MemoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[id]; ok {
		return e, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) SearchKeywords(ctx context.Context, p store.SearchParams) ([]*core.MemoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*core.MemoryEntry
	for _, e := range f.entries {
		if p.ProfileID != "" && e.ProfileID != p.ProfileID {
			continue
		}
		if p.Source != "" && e.Source != p.Source {
			continue
		}
		for _, kw := range p.Keywords {
			if e.HasKeyword(kw) {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) IncrementRetrieval(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.bumped[id]++
	}
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) bumpCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bumped[id]
}

func poolEntry(id string, typ core.MemoryType, kws ...string) *core.MemoryEntry {
	return entry(id, typ, func(e *core.MemoryEntry) { e.Keywords = kws })
}

func TestRetrieveContextEmptyMessage(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(newFakeStore())
	defer p.Close()

	res := p.RetrieveContext(context.Background(), "   ", "p1", "c1", core.PersonaState{})

	assert.Empty(t, res.Entries)
	require.NotNil(t, res.Trace)
	assert.Equal(t, MethodNone, res.Trace.RetrievalMethod)
	assert.Empty(t, res.Trace.Sources, "no branches executed")
}

func TestRetrieveContextKeywordFallback(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs := newFakeStore(
		poolEntry("a", core.TypeFact, "pizza"),
		poolEntry("b", core.TypeFact, "pizza"),
		poolEntry("c", core.TypeStory, "pizza"),
	)
	slow := &fakeSource{name: "semantic", kind: KindSemantic, delay: time.Second}
	cfg := *DefaultConfig
	cfg.SourceTimeout = 20 * time.Millisecond

	p := New(fs,
		WithConfig(&cfg),
		WithSource(slow),
		WithSource(NewKeywordSource(fs)),
	)
	defer p.Close()

	res := p.RetrieveContext(context.Background(), "tell me a pizza fact", "p1", "c1", core.PersonaState{})

	assert.Len(t, res.Entries, 3)
	assert.Equal(t, MethodKeywordFallback, res.Trace.RetrievalMethod)
	assert.True(t, res.Trace.Sources[0].TimedOut)
}

func TestRetrieveContextDeterministic(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs := newFakeStore(
		poolEntry("m1", core.TypeFact, "pizza"),
		poolEntry("m2", core.TypeFact, "pizza"),
		poolEntry("m3", core.TypeStory, "pizza", "brooklyn"),
		poolEntry("m4", core.TypePreference, "brooklyn"),
	)
	p := New(fs)
	defer p.Close()

	state := core.PersonaState{ChaosLevel: 30, Mode: core.ModeChat}
	var first []string
	for i := 0; i < 10; i++ {
		res := p.RetrieveContext(context.Background(), "pizza stories from brooklyn", "p1", "c1", state)
		ids := make([]string, len(res.Entries))
		for j, se := range res.Entries {
			ids[j] = se.Entry.ID
		}
		if first == nil {
			first = ids
			require.NotEmpty(t, first)
		} else {
			assert.Equal(t, first, ids, "identical inputs must rank identically")
		}
	}
}

func TestRetrieveContextNormalExcludesRumors(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs := newFakeStore(
		poolEntry("c1", core.TypeFact, "pizza"),
		entry("r1", core.TypeLore, func(e *core.MemoryEntry) {
			e.Lane = core.LaneRumor
			e.Keywords = []string{"pizza"}
		}),
	)
	p := New(fs)
	defer p.Close()

	res := p.RetrieveContext(context.Background(), "pizza please", "p1", "c1",
		core.PersonaState{ChaosLevel: 40, Mode: core.ModeChat})

	require.Len(t, res.Entries, 1)
	assert.Equal(t, "c1", res.Entries[0].Entry.ID)
	for _, se := range res.Entries {
		assert.NotEqual(t, core.LaneRumor, se.Entry.Lane)
	}
}

func TestRetrieveContextNoSharedCanonicalKeys(t *testing.T) {
	defer goleak.VerifyNone(t)

	dup := func(e *core.MemoryEntry) {
		e.Content = "Nicky's favorite topping is pepperoni."
		e.Keywords = []string{"pizza"}
		e.CanonicalKey = ""
		e.Normalize()
	}
	fs := newFakeStore(
		entry("a", core.TypeFact, dup),
		entry("b", core.TypeFact, dup),
	)
	p := New(fs)
	defer p.Close()

	res := p.RetrieveContext(context.Background(), "pizza topping", "p1", "c1", core.PersonaState{})

	seen := map[string]bool{}
	for _, se := range res.Entries {
		assert.False(t, seen[se.Entry.CanonicalKey])
		seen[se.Entry.CanonicalKey] = true
	}
	assert.Len(t, res.Entries, 1)
}

func TestRetrieveContextBumpsCounters(t *testing.T) {
	fs := newFakeStore(poolEntry("a", core.TypeFact, "pizza"))
	p := New(fs)

	res := p.RetrieveContext(context.Background(), "pizza time", "p1", "c1", core.PersonaState{})
	require.Len(t, res.Entries, 1)

	p.Close() // drains the async bump
	assert.Equal(t, 1, fs.bumpCount("a"))
}

func TestRetrieveContextGap(t *testing.T) {
	fs := newFakeStore(poolEntry("a", core.TypeStory, "pizza"))
	p := New(fs)
	defer p.Close()

	res := p.RetrieveContext(context.Background(), "what's your favorite pizza", "p1", "c1", core.PersonaState{})

	require.NotNil(t, res.Gap)
	assert.Equal(t, string(core.TypePreference), res.Gap.Category)
	assert.Equal(t, 2, res.Gap.Priority)
}
