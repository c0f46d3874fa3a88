package retrieval

import "strings"

// adjustDiversity applies redundancy penalties in two passes over the
// provisionally ranked list: walk it in rank order treating each
// candidate as accepted, penalize later candidates that repeat an
// accepted type or overlap an accepted keyword set, then re-rank with
// the adjusted factors. The factor floors at zero so a heavily
// redundant candidate is buried, not flipped negative.
func adjustDiversity(ranked []*ScoredEntry, w ScoreWeights) {
	if len(ranked) < 2 {
		return
	}

	accepted := ranked[:0:0]
	for _, cand := range ranked {
		penalty := 0.0
		for _, prev := range accepted {
			if prev.Entry.Type == cand.Entry.Type {
				penalty += w.SameTypePenalty
			}
			if keywordsOverlap(prev.Entry.Keywords, cand.Entry.Keywords) {
				penalty += w.OverlapPenalty
			}
		}
		factor := 1 - penalty
		if factor < 0 {
			factor = 0
		}
		cand.Score.DiversityFactor = factor
		cand.Score.Final = finalScore(cand.Score, w)
		accepted = append(accepted, cand)
	}

	sortByScore(ranked)
}

func keywordsOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	for _, ka := range a {
		for _, kb := range b {
			if strings.EqualFold(ka, kb) {
				return true
			}
		}
	}
	return false
}
