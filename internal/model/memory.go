package model

import "time"

// MemoryKind classifies an extracted user memory.
type MemoryKind string

const (
	KindPreference MemoryKind = "preference"
	KindGoal       MemoryKind = "goal"
	KindFact       MemoryKind = "fact"
	KindDecision   MemoryKind = "decision"
	KindSummary    MemoryKind = "summary"
)

// ProfileKinds are always-relevant personalization memories, retrieved by
// confidence independent of the query.
var ProfileKinds = []MemoryKind{KindPreference, KindFact}

// ContextualKinds are situational memories, retrieved by semantic similarity
// to the query.
var ContextualKinds = []MemoryKind{KindGoal, KindDecision, KindSummary}

// ValidKind reports whether k is one of the five recognized kinds.
func ValidKind(k MemoryKind) bool {
	switch k {
	case KindPreference, KindGoal, KindFact, KindDecision, KindSummary:
		return true
	}
	return false
}

// MaxAge returns the age ceiling for the kind, or 0 for kinds that never
// expire (preference, fact).
func (k MemoryKind) MaxAge() time.Duration {
	switch k {
	case KindGoal, KindSummary:
		return 90 * 24 * time.Hour
	case KindDecision:
		return 30 * 24 * time.Hour
	}
	return 0
}

// Memory is a short extracted fact or preference about a user.
type Memory struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Kind       MemoryKind `json:"kind"`
	Content    string     `json:"content"`
	Confidence float64    `json:"confidence"` // assigned at extraction time, [0,1]
	CreatedAt  time.Time  `json:"created_at"`
	Embedding  []float32  `json:"embedding,omitempty"`
}

// Expired reports whether the memory has exceeded its kind's age ceiling at
// the given reference time.
func (m *Memory) Expired(now time.Time) bool {
	max := m.Kind.MaxAge()
	if max == 0 {
		return false
	}
	return now.Sub(m.CreatedAt) > max
}
