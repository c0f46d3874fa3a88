package retrieval

import "github.com/nickybot/nicky-go/core"

// Gap flags a question the canon lane could not answer adequately.
// Downstream consumers queue it for content curation; it never alters
// the assembled context.
type Gap struct {
	Category string `json:"category"`
	Priority int    `json:"priority"`
}

// gapPriority ranks how urgently a missing category should be curated.
var gapPriority = map[core.MemoryType]int{
	core.TypeFact:       3,
	core.TypePreference: 2,
	core.TypeStory:      1,
	core.TypeLore:       1,
}

// detectGap reports a knowledge gap when no admitted canon entry above
// the confidence floor matches the detected intent. Nil when the pool
// covered the question or no intent was detected.
func detectGap(admitted []*ScoredEntry, intent core.MemoryType, cfg *Config) *Gap {
	if intent == "" {
		return nil
	}
	for _, se := range admitted {
		if se.Entry.Lane != core.LaneCanon {
			continue
		}
		if se.Entry.Type == intent && se.Entry.Confidence >= cfg.GapMinConfidence {
			return nil
		}
	}
	priority := gapPriority[intent]
	if priority == 0 {
		priority = 1
	}
	return &Gap{Category: string(intent), Priority: priority}
}
