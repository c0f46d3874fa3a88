package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntry(profile, content string, opts ...func(*core.MemoryEntry)) *core.MemoryEntry {
	e := &core.MemoryEntry{
		ProfileID:  profile,
		Content:    content,
		Type:       core.TypeFact,
		Lane:       core.LaneCanon,
		Importance: 50,
		Confidence: 80,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := testEntry("p1", "Nicky grew up above a pizzeria in Brooklyn.", func(e *core.MemoryEntry) {
		e.ConversationID = "c1"
		e.Keywords = []string{"pizza", "brooklyn"}
		e.Source = "manual"
	})
	require.NoError(t, s.Put(ctx, e))
	require.NotEmpty(t, e.ID, "Put assigns an id")

	got, err := s.Get(ctx, "p1", e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Content, got.Content)
	assert.Equal(t, core.TypeFact, got.Type)
	assert.Equal(t, core.LaneCanon, got.Lane)
	assert.Equal(t, core.StatusActive, got.Status)
	assert.Equal(t, "c1", got.ConversationID)
	assert.Equal(t, []string{"pizza", "brooklyn"}, got.Keywords)
	assert.Equal(t, e.CanonicalKey, got.CanonicalKey)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "p1", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPutDuplicateCanonicalKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testEntry("p1", "Nicky hates pineapple on pizza.")))

	// same content normalizes to the same canonical key
	err := s.Put(ctx, testEntry("p1", "Nicky hates pineapple, on PIZZA!"))
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	// a different profile is a different namespace
	assert.NoError(t, s.Put(ctx, testEntry("p2", "Nicky hates pineapple on pizza.")))
}

func TestPutAtomicInheritsParentLane(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parent := testEntry("p1", "The raccoon incident of 2019, as Nicky tells it.", func(e *core.MemoryEntry) {
		e.Type = core.TypeStory
		e.Lane = core.LaneRumor
	})
	require.NoError(t, s.Put(ctx, parent))

	child := &core.MemoryEntry{
		ProfileID:    "p1",
		Content:      "Nicky claims he wrestled a raccoon.",
		Type:         core.TypeAtomic,
		ParentFactID: parent.ID,
	}
	require.NoError(t, s.Put(ctx, child))

	got, err := s.Get(ctx, "p1", child.ID)
	require.NoError(t, err)
	assert.Equal(t, core.LaneRumor, got.Lane, "atomic child inherits parent lane")
}

func TestPutAtomicLaneConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parent := testEntry("p1", "A verified story.", func(e *core.MemoryEntry) {
		e.Type = core.TypeStory
	})
	require.NoError(t, s.Put(ctx, parent))

	child := testEntry("p1", "A rumor fragment of the verified story.", func(e *core.MemoryEntry) {
		e.Type = core.TypeAtomic
		e.Lane = core.LaneRumor
		e.ParentFactID = parent.ID
	})
	assert.Error(t, s.Put(ctx, child))
}

func TestSearchKeywords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testEntry("p1", "Best pizza in Brooklyn is at Sal's.", func(e *core.MemoryEntry) {
		e.Keywords = []string{"pizza", "brooklyn"}
	})))
	require.NoError(t, s.Put(ctx, testEntry("p1", "Nicky's cousin drives a cab.", func(e *core.MemoryEntry) {
		e.Keywords = []string{"cousin", "cab"}
	})))
	require.NoError(t, s.Put(ctx, testEntry("p2", "Other profile pizza entry.", func(e *core.MemoryEntry) {
		e.Keywords = []string{"pizza"}
	})))

	results, err := s.SearchKeywords(ctx, store.SearchParams{
		ProfileID: "p1",
		Keywords:  []string{"pizza"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "Sal's")
}

func TestSearchKeywordsMatchesKeywordColumn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testEntry("p1", "He never talks about the incident.", func(e *core.MemoryEntry) {
		e.Keywords = []string{"raccoon"}
	})))

	results, err := s.SearchKeywords(ctx, store.SearchParams{
		ProfileID: "p1",
		Keywords:  []string{"raccoon"},
	})
	require.NoError(t, err)
	assert.Len(t, results, 1, "keyword column is indexed too")
}

func TestSearchKeywordsSourceFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testEntry("p1", "Pizza talk from episode 12.", func(e *core.MemoryEntry) {
		e.Keywords = []string{"pizza"}
		e.Source = "podcast_transcript"
	})))
	require.NoError(t, s.Put(ctx, testEntry("p1", "Pizza fact entered by hand.", func(e *core.MemoryEntry) {
		e.Keywords = []string{"pizza"}
		e.Source = "manual"
	})))

	results, err := s.SearchKeywords(ctx, store.SearchParams{
		ProfileID: "p1",
		Keywords:  []string{"pizza"},
		Source:    "podcast_transcript",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "episode 12")
}

func TestSearchKeywordsExcludesArchived(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testEntry("p1", "Archived pizza opinion.", func(e *core.MemoryEntry) {
		e.Keywords = []string{"pizza"}
		e.Status = core.StatusArchived
	})))

	results, err := s.SearchKeywords(ctx, store.SearchParams{
		ProfileID: "p1",
		Keywords:  []string{"pizza"},
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchKeywordsEmptyQuery(t *testing.T) {
	s := newTestStore(t)
	results, err := s.SearchKeywords(context.Background(), store.SearchParams{ProfileID: "p1"})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestIncrementRetrieval(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testEntry("p1", "Entry A.")
	b := testEntry("p1", "Entry B.")
	require.NoError(t, s.Put(ctx, a))
	require.NoError(t, s.Put(ctx, b))

	require.NoError(t, s.IncrementRetrieval(ctx, []string{a.ID, b.ID}))
	require.NoError(t, s.IncrementRetrieval(ctx, []string{a.ID}))

	gotA, err := s.Get(ctx, "p1", a.ID)
	require.NoError(t, err)
	gotB, err := s.Get(ctx, "p1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotA.RetrievalCount)
	assert.Equal(t, 1, gotB.RetrievalCount)

	assert.NoError(t, s.IncrementRetrieval(ctx, nil))
}

func TestListActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testEntry("p1", "Minor detail.", func(e *core.MemoryEntry) {
		e.Importance = 10
	})))
	require.NoError(t, s.Put(ctx, testEntry("p1", "Core identity fact.", func(e *core.MemoryEntry) {
		e.Importance = 95
	})))
	require.NoError(t, s.Put(ctx, testEntry("p1", "Old archived fact.", func(e *core.MemoryEntry) {
		e.Status = core.StatusArchived
	})))

	entries, err := s.ListActive(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Core identity fact.", entries[0].Content, "importance first")
}

func TestReopenKeepsSearchWorking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), testEntry("p1", "Pizza memory from the first run.", func(e *core.MemoryEntry) {
		e.Keywords = []string{"pizza"}
	})))
	require.NoError(t, s.Close())

	// migration (schema + fts triggers) must be idempotent on reopen
	s2, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s2.Close() })

	require.NoError(t, s2.Put(context.Background(), testEntry("p1", "Pizza memory from the second run.", func(e *core.MemoryEntry) {
		e.Keywords = []string{"pizza"}
	})))

	results, err := s2.SearchKeywords(context.Background(), store.SearchParams{
		ProfileID: "p1",
		Keywords:  []string{"pizza"},
	})
	require.NoError(t, err)
	assert.Len(t, results, 2, "entries from both runs stay indexed")
}

func TestPutClampsMalformedValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := testEntry("p1", "Suspiciously confident fact.", func(e *core.MemoryEntry) {
		e.Importance = 400
		e.Confidence = -3
	})
	require.NoError(t, s.Put(ctx, e))

	got, err := s.Get(ctx, "p1", e.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Importance)
	assert.Equal(t, 0.0, got.Confidence)
}
