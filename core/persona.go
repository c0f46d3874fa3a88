package core

// Mode is the interaction surface the persona is currently performing on.
type Mode string

const (
	ModeChat      Mode = "CHAT"
	ModePodcast   Mode = "PODCAST"
	ModeStreaming Mode = "STREAMING"
)

// Performance reports whether the mode is a performance surface.
// Performance modes push the persona into the theater zone regardless
// of chaos level.
func (m Mode) Performance() bool {
	return m == ModePodcast || m == ModeStreaming
}

// PersonaState is a read-only snapshot of the persona's volatility for
// one conversational turn. It is passed explicitly through the call
// chain rather than held as shared mutable state.
type PersonaState struct {
	Preset     string  `json:"preset,omitempty"`
	ChaosLevel float64 `json:"chaos_level"` // [0,100]
	Mode       Mode    `json:"mode"`
}

// Normalize clamps the chaos level and defaults the mode.
func (p PersonaState) Normalize() PersonaState {
	p.ChaosLevel = Clamp100(p.ChaosLevel)
	if p.Mode == "" {
		p.Mode = ModeChat
	}
	return p
}
