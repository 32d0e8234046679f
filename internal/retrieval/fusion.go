package retrieval

import (
	"sort"

	"github.com/keepstack/mnemo/internal/model"
)

// rrfK is the standard RRF damping constant (Cormack et al., 2009). Large
// enough that rank-1 vs rank-2 differences are smoothed, so neither signal
// dominates purely by being first.
const rrfK = 60

// FusedPassage is a passage with its combined RRF score.
type FusedPassage struct {
	Passage model.Passage
	Score   float64
}

// FuseRanked merges the vector-search list (ascending distance) and the
// keyword-search list (descending rank) with reciprocal rank fusion: each
// appearance at rank r contributes 1/(rrfK+r+1). Items seen in both lists
// accumulate both contributions and therefore outrank single-list items at
// the same ranks. Ties break stably by original vector-search order, keyword
// order for vector-absent items.
//
// If either list is empty fusion degrades to ranking by the other alone.
// Counts for both inputs, their overlap, and the fused output are recorded
// into diag when non-nil.
func FuseRanked(vector, keyword []model.Passage, diag *Diagnostics) []FusedPassage {
	type acc struct {
		passage model.Passage
		score   float64
		order   int // stable tie-break: vector rank, then keyword rank offset
		both    bool
	}

	byID := make(map[string]*acc, len(vector)+len(keyword))

	for rank, p := range vector {
		byID[p.ID] = &acc{
			passage: p,
			score:   1.0 / float64(rrfK+rank+1),
			order:   rank,
		}
	}
	for rank, p := range keyword {
		if a, ok := byID[p.ID]; ok {
			a.score += 1.0 / float64(rrfK+rank+1)
			a.both = true
			// Keep the vector copy: it carries the embedding and distance.
			continue
		}
		byID[p.ID] = &acc{
			passage: p,
			score:   1.0 / float64(rrfK+rank+1),
			order:   len(vector) + rank,
		}
	}

	fused := make([]*acc, 0, len(byID))
	overlap := 0
	for _, a := range byID {
		if a.both {
			overlap++
		}
		fused = append(fused, a)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].order < fused[j].order
	})

	out := make([]FusedPassage, len(fused))
	for i, a := range fused {
		out[i] = FusedPassage{Passage: a.passage, Score: a.score}
	}

	if diag != nil {
		diag.EmbeddingCandidates = len(vector)
		diag.KeywordCandidates = len(keyword)
		diag.OverlapCount = overlap
		diag.FusedCount = len(out)
	}
	return out
}
