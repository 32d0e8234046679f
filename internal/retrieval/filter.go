package retrieval

import (
	"strings"
	"time"

	"github.com/keepstack/mnemo/internal/model"
)

// Structural sanity thresholds, independent of search score. Passing these
// is necessary but not sufficient for final inclusion.
const (
	MinPassageChars = 30
	MaxPassageAge   = 360 * 24 * time.Hour
	MinConfidence   = 0.6
)

// allowedFileTypes is the allow-list applied when a passage carries a
// recognized file-type tag. Untagged passages pass.
var allowedFileTypes = map[string]bool{
	"txt":  true,
	"md":   true,
	"pdf":  true,
	"docx": true,
	"html": true,
}

// PassageRelevant is the pure predicate that discards structurally unusable
// candidates: too short, stale or unparseable timestamp, or a disallowed
// file type. Corrupt stored data is a rejection here, never an error;
// bad historical rows must not crash current requests.
func PassageRelevant(p *model.Passage, now time.Time) bool {
	if len(strings.TrimSpace(p.Content)) < MinPassageChars {
		return false
	}
	ts, ok := p.EffectiveTimestamp()
	if !ok {
		return false
	}
	if now.Sub(ts) > MaxPassageAge {
		return false
	}
	if ft := strings.ToLower(p.Metadata.FileType); ft != "" && !allowedFileTypes[ft] {
		return false
	}
	return true
}

// MemoryRelevant is the memory analogue: confidence floor, non-empty
// content, parseable timestamp, and the kind's age ceiling.
func MemoryRelevant(m *model.Memory, now time.Time) bool {
	if m.Confidence < MinConfidence {
		return false
	}
	if strings.TrimSpace(m.Content) == "" {
		return false
	}
	if m.CreatedAt.IsZero() {
		return false
	}
	return !m.Expired(now)
}

// FilterPassages applies PassageRelevant in order, preserving relative
// order, and records the surviving count into diag when non-nil.
func FilterPassages(in []FusedPassage, now time.Time, diag *Diagnostics) []FusedPassage {
	out := in[:0:0]
	for _, fp := range in {
		p := fp.Passage
		if PassageRelevant(&p, now) {
			out = append(out, fp)
		}
	}
	if diag != nil {
		diag.PostFilterCount = len(out)
	}
	return out
}

// FilterMemories applies MemoryRelevant in order, preserving relative order.
func FilterMemories(in []model.Memory, now time.Time) []model.Memory {
	out := in[:0:0]
	for _, m := range in {
		mm := m
		if MemoryRelevant(&mm, now) {
			out = append(out, m)
		}
	}
	return out
}
