// Package persona holds the persona presets that drive keyword
// enhancement and prompt framing. Presets are static configuration,
// loadable from YAML; the live volatility signal (chaos level, mode)
// arrives per turn as a core.PersonaState snapshot.
package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nickybot/nicky-go/core"
)

// Preset describes one persona configuration.
type Preset struct {
	Name string `yaml:"name"`

	// Voice is a short system-prompt fragment describing how the
	// persona speaks in this preset.
	Voice string `yaml:"voice"`

	// DomainTerms are appended to extracted query keywords when this
	// preset is active. They widen lexical recall toward the preset's
	// subject matter without ever removing a user term.
	DomainTerms []string `yaml:"domain_terms"`

	// BaseChaos seeds the chaos level when a caller has no live signal.
	BaseChaos float64 `yaml:"base_chaos"`

	// DefaultMode is used when the caller does not specify one.
	DefaultMode core.Mode `yaml:"default_mode"`
}

// Set is a named collection of presets.
type Set struct {
	presets map[string]Preset
}

// Load reads presets from a YAML file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var file struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if len(file.Presets) == 0 {
		return nil, fmt.Errorf("no presets defined in %s", path)
	}
	return NewSet(file.Presets...), nil
}

// NewSet builds a Set from presets.
func NewSet(presets ...Preset) *Set {
	s := &Set{presets: make(map[string]Preset, len(presets))}
	for _, p := range presets {
		s.presets[p.Name] = p
	}
	return s
}

// Get returns the named preset, or false if unknown.
func (s *Set) Get(name string) (Preset, bool) {
	p, ok := s.presets[name]
	return p, ok
}

// State builds a PersonaState snapshot for a preset, using the preset's
// defaults where the caller supplied nothing.
func (s *Set) State(name string, chaos float64, mode core.Mode) core.PersonaState {
	ps := core.PersonaState{Preset: name, ChaosLevel: chaos, Mode: mode}
	if p, ok := s.presets[name]; ok {
		if chaos < 0 {
			ps.ChaosLevel = p.BaseChaos
		}
		if mode == "" {
			ps.Mode = p.DefaultMode
		}
	}
	return ps.Normalize()
}

// Defaults returns the built-in presets used when no YAML file is given.
func Defaults() *Set {
	return NewSet(
		Preset{
			Name:  "default",
			Voice: "Conversational, warm, a little chaotic.",
			DomainTerms: []string{
				"nicky", "pizza", "brooklyn", "family",
			},
			BaseChaos:   30,
			DefaultMode: core.ModeChat,
		},
		Preset{
			Name:  "story",
			Voice: "Animated storyteller, leans into embellishment.",
			DomainTerms: []string{
				"story", "remember", "legend", "back in the day", "tony",
			},
			BaseChaos:   55,
			DefaultMode: core.ModeChat,
		},
		Preset{
			Name:  "podcast",
			Voice: "High-energy co-host riffing for an audience.",
			DomainTerms: []string{
				"podcast", "episode", "listeners", "bit", "riff",
			},
			BaseChaos:   75,
			DefaultMode: core.ModePodcast,
		},
	)
}
