package retrieval

import (
	"math"

	"github.com/keepstack/mnemo/internal/model"
)

// Near-duplicate thresholds. Retrieval-time dedup is slightly looser than
// the write-time check so stored variants can still be collapsed.
const (
	PassageDupThreshold     = 0.92
	MemoryWriteDupThreshold = 0.90
)

// CosineSimilarity returns dot(a,b)/(|a|*|b|). Defined as 0 (not an error)
// when either vector is all-zero or lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Dedup removes near-duplicate passages from a score-ordered list, keeping
// the earliest (most relevant) occurrence. Passages without an embedding are
// never treated as duplicates of anything; absence of signal must not cause
// silent data loss.
//
// Quadratic in the kept-list size; n is bounded upstream by the search topK,
// so a few dozen at most.
func Dedup(passages []model.Passage, threshold float64) []model.Passage {
	if threshold <= 0 {
		threshold = PassageDupThreshold
	}
	kept := make([]model.Passage, 0, len(passages))
	for _, cand := range passages {
		if len(cand.Embedding) == 0 {
			kept = append(kept, cand)
			continue
		}
		dup := false
		for _, k := range kept {
			if len(k.Embedding) == 0 {
				continue
			}
			if CosineSimilarity(cand.Embedding, k.Embedding) >= threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, cand)
		}
	}
	return kept
}
