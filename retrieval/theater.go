package retrieval

import "github.com/nickybot/nicky-go/core"

// Zone is the lane exposure state for one turn.
type Zone string

const (
	ZoneNormal  Zone = "NORMAL"
	ZoneTheater Zone = "THEATER"
)

// ZoneFor classifies the persona state. NORMAL requires a calm chaos
// level and a non-performance mode; anything else is THEATER.
func ZoneFor(state core.PersonaState, cfg *Config) Zone {
	if state.ChaosLevel <= cfg.TheaterChaosThreshold && !state.Mode.Performance() {
		return ZoneNormal
	}
	return ZoneTheater
}

// filterLanes applies the lane admission policy to a score-ranked list.
// Canon entries need the confidence floor in every zone. Rumor entries
// are rejected in NORMAL, capped at the highest-scoring few in THEATER
// under the chaos threshold, and unlimited above it. Pure: the input
// order is preserved and nothing is mutated.
func filterLanes(ranked []*ScoredEntry, state core.PersonaState, cfg *Config) []*ScoredEntry {
	zone := ZoneFor(state, cfg)

	rumorCap := 0
	if zone == ZoneTheater {
		if state.ChaosLevel > cfg.TheaterChaosThreshold {
			rumorCap = len(ranked)
		} else {
			rumorCap = cfg.TheaterRumorCap
		}
	}

	admitted := make([]*ScoredEntry, 0, len(ranked))
	rumors := 0
	for _, se := range ranked {
		switch se.Entry.Lane {
		case core.LaneRumor:
			if rumors >= rumorCap {
				continue
			}
			rumors++
			admitted = append(admitted, se)
		default:
			if se.Entry.Confidence < cfg.NormalMinConfidence {
				continue
			}
			admitted = append(admitted, se)
		}
	}
	return admitted
}
