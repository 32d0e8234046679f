package retrieval

// Diagnostics records candidate counts and scores at each pipeline stage of
// a single retrieval call. It is a closed, typed record (not an open map) so
// shape drift is caught at compile time. Built once per call, never
// persisted; consumed by the observability layer.
type Diagnostics struct {
	EmbeddingCandidates int `json:"embedding_candidates"`
	KeywordCandidates   int `json:"keyword_candidates"`
	OverlapCount        int `json:"overlap_count"`
	FusedCount          int `json:"fused_count"`
	PostFilterCount     int `json:"post_filter_count"`
	PostDedupCount      int `json:"post_dedup_count"`
	PostBudgetCount     int `json:"post_budget_count"`

	TopScore        float64 `json:"top_score"`
	ScoreSpread     float64 `json:"score_spread"`
	DistinctSources int     `json:"distinct_sources"`

	// YearFilter is the query year pushed into the stores, 0 when no
	// temporal filter applied.
	YearFilter int `json:"year_filter,omitempty"`

	ProfileMemories    int `json:"profile_memories"`
	ContextualMemories int `json:"contextual_memories"`

	// Branch failures, degraded to empty results rather than surfaced.
	DocumentErr string `json:"document_err,omitempty"`
	MemoryErr   string `json:"memory_err,omitempty"`
}

// recordScores captures the top fused score, the spread between top and
// bottom, and the number of distinct owning documents.
func (d *Diagnostics) recordScores(fused []FusedPassage) {
	if len(fused) == 0 {
		return
	}
	d.TopScore = fused[0].Score
	d.ScoreSpread = fused[0].Score - fused[len(fused)-1].Score
	sources := make(map[string]struct{}, len(fused))
	for _, fp := range fused {
		sources[fp.Passage.DocumentID] = struct{}{}
	}
	d.DistinctSources = len(sources)
}
