package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// MemoryType classifies what kind of knowledge an entry holds.
type MemoryType string

const (
	TypeFact       MemoryType = "FACT"
	TypePreference MemoryType = "PREFERENCE"
	TypeLore       MemoryType = "LORE"
	TypeContext    MemoryType = "CONTEXT"
	TypeStory      MemoryType = "STORY"
	TypeAtomic     MemoryType = "ATOMIC"
)

// Lane separates verified canon content from fictional rumor content.
// Rumor entries are only exposed while the persona is in the theater zone.
type Lane string

const (
	LaneCanon Lane = "CANON"
	LaneRumor Lane = "RUMOR"
)

// Status tracks entry lifecycle. Retrieval only ever sees ACTIVE entries.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

// MemoryEntry is a single unit of retrievable knowledge about the persona
// or the people it talks to.
type MemoryEntry struct {
	ID             string     `json:"id"`
	ProfileID      string     `json:"profile_id"`
	ConversationID string     `json:"conversation_id,omitempty"`
	Content        string     `json:"content"`
	Type           MemoryType `json:"type"`
	Lane           Lane       `json:"lane"`
	Status         Status     `json:"status"`
	Importance     float64    `json:"importance"` // [0,100]
	Confidence     float64    `json:"confidence"` // [0,100]
	Keywords       []string   `json:"keywords,omitempty"`
	Embedding      []float32  `json:"embedding,omitempty"`
	CanonicalKey   string     `json:"canonical_key"`
	RetrievalCount int        `json:"retrieval_count"`

	// SuccessRate and QualityScore are tracked for forward compatibility
	// but are not consulted by the scoring pipeline.
	SuccessRate  float64 `json:"success_rate"`
	QualityScore float64 `json:"quality_score"`

	Source       string `json:"source,omitempty"`
	SourceID     string `json:"source_id,omitempty"`
	ParentFactID string `json:"parent_fact_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize clamps out-of-range numeric fields and fills in derived
// defaults. Malformed values are repaired, never rejected, so a bad
// entry can't abort a conversational turn.
func (e *MemoryEntry) Normalize() {
	e.Importance = Clamp100(e.Importance)
	e.Confidence = Clamp100(e.Confidence)
	e.SuccessRate = Clamp100(e.SuccessRate)
	e.QualityScore = Clamp100(e.QualityScore)
	if e.Lane == "" {
		e.Lane = LaneCanon
	}
	if e.Status == "" {
		e.Status = StatusActive
	}
	if e.Type == "" {
		e.Type = TypeFact
	}
	if e.CanonicalKey == "" {
		e.CanonicalKey = CanonicalKey(e.Content)
	}
}

// HasKeyword reports whether the entry carries the keyword (case-insensitive).
func (e *MemoryEntry) HasKeyword(kw string) bool {
	for _, k := range e.Keywords {
		if strings.EqualFold(k, kw) {
			return true
		}
	}
	return false
}

// Clamp100 bounds a value to [0,100]. NaN collapses to 0.
func Clamp100(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// CanonicalKey derives the dedup identity for a piece of content:
// lowercase, punctuation stripped, whitespace collapsed, then hashed.
// Two entries with the same canonical key are the same fact.
func CanonicalKey(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	prevSpace := true
	for _, r := range strings.ToLower(content) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		}
	}
	normalized := strings.TrimSpace(b.String())
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}
