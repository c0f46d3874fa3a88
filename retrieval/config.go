package retrieval

import "time"

// ScoreWeights holds every constant in the composite relevance formula.
// The defaults were tuned empirically in the original system; treat
// them as tunables and validate behavior, not the literal numbers.
type ScoreWeights struct {
	// base = similarity*Semantic + importance*Importance + confidence*Confidence
	Semantic   float64
	Importance float64
	Confidence float64

	// contextual bonuses
	ConversationBonus float64 // memory originated in the current conversation
	IntentBonus       float64 // memory type matches detected query intent
	ImportanceBonus   float64 // scaled by importance/100
	ConfidenceBonus   float64 // scaled by confidence/100
	KeywordBonus      float64 // per matching keyword

	// final = base*diversityFactor + contextual*Contextual
	Contextual float64

	// diversity penalties, subtracted from the diversity factor
	SameTypePenalty float64
	OverlapPenalty  float64
}

// Config carries the pipeline tunables.
type Config struct {
	// MaxEntries and MaxChars bound the assembled context.
	MaxEntries int
	MaxChars   int

	// PerSourceLimit is K, the candidate cap per retrieval source.
	PerSourceLimit int

	// SourceTimeout bounds each retrieval branch individually.
	SourceTimeout time.Duration

	// MaxConcurrentSources caps the fan-out width per turn.
	MaxConcurrentSources int

	// NormalMinConfidence is the admission floor for canon entries.
	NormalMinConfidence float64

	// TheaterChaosThreshold splits capped from unlimited rumor
	// admission inside the theater zone.
	TheaterChaosThreshold float64

	// TheaterRumorCap bounds rumor admissions at or below the
	// threshold.
	TheaterRumorCap int

	// GapMinConfidence is the floor below which no canon match counts
	// as adequate for gap detection.
	GapMinConfidence float64

	Weights ScoreWeights
}

// DefaultConfig mirrors the production tuning.
var DefaultConfig = &Config{
	MaxEntries:            8,
	MaxChars:              4000,
	PerSourceLimit:        10,
	SourceTimeout:         300 * time.Millisecond,
	MaxConcurrentSources:  7,
	NormalMinConfidence:   60,
	TheaterChaosThreshold: 70,
	TheaterRumorCap:       3,
	GapMinConfidence:      40,
	Weights: ScoreWeights{
		Semantic:          1.2,
		Importance:        0.1,
		Confidence:        0.001,
		ConversationBonus: 0.5,
		IntentBonus:       0.4,
		ImportanceBonus:   0.25,
		ConfidenceBonus:   0.10,
		KeywordBonus:      0.10,
		Contextual:        0.3,
		SameTypePenalty:   0.1,
		OverlapPenalty:    0.2,
	},
}

// withDefaults fills zero values so a partially specified config
// behaves sanely.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig
	}
	out := *c
	d := DefaultConfig
	if out.MaxEntries <= 0 {
		out.MaxEntries = d.MaxEntries
	}
	if out.MaxChars <= 0 {
		out.MaxChars = d.MaxChars
	}
	if out.PerSourceLimit <= 0 {
		out.PerSourceLimit = d.PerSourceLimit
	}
	if out.SourceTimeout <= 0 {
		out.SourceTimeout = d.SourceTimeout
	}
	if out.MaxConcurrentSources <= 0 {
		out.MaxConcurrentSources = d.MaxConcurrentSources
	}
	if out.TheaterChaosThreshold <= 0 {
		out.TheaterChaosThreshold = d.TheaterChaosThreshold
	}
	if out.TheaterRumorCap <= 0 {
		out.TheaterRumorCap = d.TheaterRumorCap
	}
	if out.NormalMinConfidence <= 0 {
		out.NormalMinConfidence = d.NormalMinConfidence
	}
	if out.GapMinConfidence <= 0 {
		out.GapMinConfidence = d.GapMinConfidence
	}
	if out.Weights == (ScoreWeights{}) {
		out.Weights = d.Weights
	}
	return &out
}
