package retrieval

import (
	"sort"
	"strings"

	"github.com/nickybot/nicky-go/core"
)

// ScoreBreakdown names every contributing term so scoring stays
// auditable. Final = Base*DiversityFactor + Contextual*Weights.Contextual.
type ScoreBreakdown struct {
	Base            float64 `json:"base"`
	Contextual      float64 `json:"contextual"`
	DiversityFactor float64 `json:"diversity_factor"`
	Final           float64 `json:"final"`
}

// ScoredEntry is a candidate with its composite relevance score.
type ScoredEntry struct {
	Entry      *core.MemoryEntry
	Similarity float64
	Score      ScoreBreakdown
}

// intentTerms maps query vocabulary to the memory type it signals.
// First matching type in checking order wins.
var intentTerms = map[core.MemoryType][]string{
	core.TypePreference: {"favorite", "prefer", "hate", "love", "like", "enjoy", "best", "worst"},
	core.TypeStory:      {"story", "remember", "happened", "once"},
	core.TypeLore:       {"legend", "rumor", "heard", "true", "secret"},
	core.TypeFact:       {"what", "when", "where", "why", "name", "does"},
}

// intentOrder fixes the check order so detection is deterministic.
var intentOrder = []core.MemoryType{
	core.TypePreference, core.TypeStory, core.TypeLore, core.TypeFact,
}

// DetectIntent guesses which memory type the message is asking about.
// Returns "" when nothing signals an intent.
func DetectIntent(message string) core.MemoryType {
	lower := strings.ToLower(message)
	for _, mt := range intentOrder {
		for _, term := range intentTerms[mt] {
			if containsWord(lower, term) {
				return mt
			}
		}
	}
	return ""
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		leftOK := start == 0 || !isWordByte(text[start-1])
		rightOK := end == len(text) || !isWordByte(text[end])
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// scoreCandidates computes the provisional score for every pooled hit.
// Pure and order-independent: each candidate is scored against the
// query alone, with diversity factor 1 until the diversity pass runs.
func scoreCandidates(pool []Hit, q Query, intent core.MemoryType, w ScoreWeights) []*ScoredEntry {
	scored := make([]*ScoredEntry, 0, len(pool))
	for _, h := range pool {
		e := h.Entry
		e.Normalize()

		base := h.Similarity*w.Semantic + e.Importance*w.Importance + e.Confidence*w.Confidence

		var contextual float64
		if q.ConversationID != "" && e.ConversationID == q.ConversationID {
			contextual += w.ConversationBonus
		}
		if intent != "" && e.Type == intent {
			contextual += w.IntentBonus
		}
		contextual += w.ImportanceBonus * (e.Importance / 100)
		contextual += w.ConfidenceBonus * (e.Confidence / 100)
		for _, kw := range q.Keywords {
			if e.HasKeyword(kw) {
				contextual += w.KeywordBonus
			}
		}

		se := &ScoredEntry{Entry: e, Similarity: h.Similarity}
		se.Score = ScoreBreakdown{
			Base:            base,
			Contextual:      contextual,
			DiversityFactor: 1,
		}
		se.Score.Final = finalScore(se.Score, w)
		scored = append(scored, se)
	}
	sortByScore(scored)
	return scored
}

func finalScore(s ScoreBreakdown, w ScoreWeights) float64 {
	return s.Base*s.DiversityFactor + s.Contextual*w.Contextual
}

// sortByScore orders highest final score first, ties broken by id so
// identical inputs always produce identical output order.
func sortByScore(entries []*ScoredEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score.Final != entries[j].Score.Final {
			return entries[i].Score.Final > entries[j].Score.Final
		}
		return entries[i].Entry.ID < entries[j].Entry.ID
	})
}
