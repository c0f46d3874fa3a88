package retrieval

// assemble produces the final context slice from the admitted,
// score-ranked list: canonical-key dedup (first occurrence wins, which
// is the highest-scoring one given the prior sort), then greedy
// truncation to the entry and character budgets. An entry that would
// blow the character budget is skipped rather than ending assembly, so
// a long story does not starve out short facts behind it.
func assemble(admitted []*ScoredEntry, cfg *Config) []*ScoredEntry {
	if len(admitted) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(admitted))
	out := make([]*ScoredEntry, 0, cfg.MaxEntries)
	chars := 0
	for _, se := range admitted {
		if len(out) >= cfg.MaxEntries {
			break
		}
		key := se.Entry.CanonicalKey
		if key != "" && seen[key] {
			continue
		}
		if chars+len(se.Entry.Content) > cfg.MaxChars {
			continue
		}
		if key != "" {
			seen[key] = true
		}
		chars += len(se.Entry.Content)
		out = append(out, se)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
