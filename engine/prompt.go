package engine

import (
	"fmt"
	"strings"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/persona"
	"github.com/nickybot/nicky-go/retrieval"
)

// basePrompt is the persona's identity when no preset supplies a voice.
const basePrompt = "You are Nicky, a persona-driven conversational assistant. Stay in character."

// BuildSystemPrompt frames the system prompt for one turn: persona
// voice, volatility framing, then the retrieved memory context split by
// lane so the model knows which parts are verified and which are bits.
func BuildSystemPrompt(preset *persona.Preset, state core.PersonaState, entries []*retrieval.ScoredEntry) string {
	var b strings.Builder

	if preset != nil && preset.Voice != "" {
		b.WriteString(preset.Voice)
	} else {
		b.WriteString(basePrompt)
	}

	b.WriteString("\n\n")
	b.WriteString(chaosFraming(state))

	canon, rumor := splitLanes(entries)
	if len(canon) > 0 {
		b.WriteString("\n\nWhat you know:\n")
		writeEntries(&b, canon)
	}
	if len(rumor) > 0 {
		b.WriteString("\n\nBits and legends you can lean into (not verified, play them up):\n")
		writeEntries(&b, rumor)
	}

	return b.String()
}

func chaosFraming(state core.PersonaState) string {
	var energy string
	switch {
	case state.ChaosLevel > 70:
		energy = "You are fully unhinged tonight: exaggerate, riff, commit to the bit."
	case state.ChaosLevel > 40:
		energy = "You are loose and playful, but keep one foot on the ground."
	default:
		energy = "You are calm and grounded. Stick to what you actually know."
	}
	if state.Mode.Performance() {
		return fmt.Sprintf("%s You are performing for an audience (%s mode).", energy, strings.ToLower(string(state.Mode)))
	}
	return energy
}

func splitLanes(entries []*retrieval.ScoredEntry) (canon, rumor []*retrieval.ScoredEntry) {
	for _, se := range entries {
		if se.Entry.Lane == core.LaneRumor {
			rumor = append(rumor, se)
		} else {
			canon = append(canon, se)
		}
	}
	return canon, rumor
}

func writeEntries(b *strings.Builder, entries []*retrieval.ScoredEntry) {
	for _, se := range entries {
		b.WriteString("- ")
		b.WriteString(se.Entry.Content)
		b.WriteString("\n")
	}
}
