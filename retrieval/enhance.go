package retrieval

import (
	"strings"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/persona"
)

// modeTerms are fixed domain terms tied to the interaction surface.
var modeTerms = map[core.Mode][]string{
	core.ModePodcast:   {"podcast", "episode", "cohost"},
	core.ModeStreaming: {"stream", "chat", "viewers"},
}

// EnhanceKeywords augments extracted keywords with the domain terms of
// the active preset and mode. Base terms are never removed or
// reordered; additions are deduplicated against them. Pure function of
// its inputs.
func EnhanceKeywords(base []string, preset *persona.Preset, mode core.Mode) []string {
	if preset == nil && len(modeTerms[mode]) == 0 {
		return base
	}

	seen := make(map[string]bool, len(base))
	for _, kw := range base {
		seen[kw] = true
	}

	out := make([]string, len(base), len(base)+8)
	copy(out, base)

	add := func(terms []string) {
		for _, t := range terms {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}

	if preset != nil {
		add(preset.DomainTerms)
	}
	add(modeTerms[mode])
	return out
}
