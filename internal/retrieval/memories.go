package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/keepstack/mnemo/internal/model"
	"github.com/keepstack/mnemo/internal/store"
)

// BudgetTier selects how much of the context window the memory side may
// claim.
type BudgetTier string

const (
	TierFull    BudgetTier = "full"
	TierMinimal BudgetTier = "minimal"
)

// Tier caps. On a minimal budget contextual memories are skipped entirely.
func profileLimit(t BudgetTier) int {
	if t == TierMinimal {
		return 2
	}
	return 3
}

func contextualLimit(t BudgetTier) int {
	if t == TierMinimal {
		return 0
	}
	return 2
}

// candidateOverfetch widens store fetches so relevance-filter rejections
// don't starve a tier of its cap.
const candidateOverfetch = 4

// MemoryRetriever selects memories in two concurrent tiers: an
// always-included profile tier (preferences and facts by confidence) and a
// query-ranked contextual tier (goals, decisions, summaries by similarity,
// re-ranked by a cheap heuristic).
type MemoryRetriever struct {
	store store.MemoryStore
}

func NewMemoryRetriever(s store.MemoryStore) *MemoryRetriever {
	return &MemoryRetriever{store: s}
}

// Retrieve returns the budgeted memory set for a query: profile tier first,
// then contextual, then the count/token budget. Tier fetches run
// concurrently; a failed tier degrades to empty, and the first tier error is
// returned alongside whatever succeeded so the caller can record it.
func (r *MemoryRetriever) Retrieve(ctx context.Context, ownerID, query string, embedding []float32, tier BudgetTier, requested []model.MemoryKind) ([]model.Memory, error) {
	now := time.Now()

	var (
		wg         sync.WaitGroup
		profile    []model.Memory
		contextual []model.Memory
		profileErr error
		ctxErr     error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		profile, profileErr = r.profileTier(ctx, ownerID, tier, now)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		contextual, ctxErr = r.contextualTier(ctx, ownerID, query, embedding, tier, requested, now)
	}()

	wg.Wait()

	combined := append(profile, contextual...)
	combined = ApplyMemoryBudget(combined, 0, 0)

	err := profileErr
	if err == nil {
		err = ctxErr
	}
	return combined, err
}

// profileTier fetches the top preference/fact memories by confidence,
// independent of the query's semantic content.
func (r *MemoryRetriever) profileTier(ctx context.Context, ownerID string, tier BudgetTier, now time.Time) ([]model.Memory, error) {
	limit := profileLimit(tier)
	if limit == 0 {
		return nil, nil
	}
	fetched, err := r.store.ListByConfidence(ctx, ownerID, model.ProfileKinds, limit*candidateOverfetch, MinConfidence)
	if err != nil {
		return nil, &StoreQueryError{Op: "memory_profile", Err: err}
	}
	kept := FilterMemories(fetched, now)
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}

// contextualTier fetches goal/decision/summary memories by similarity to the
// query embedding, then re-ranks them with the heuristic score. Similarity
// search produces the candidate pool; the heuristic only reorders within it.
func (r *MemoryRetriever) contextualTier(ctx context.Context, ownerID, query string, embedding []float32, tier BudgetTier, requested []model.MemoryKind, now time.Time) ([]model.Memory, error) {
	limit := contextualLimit(tier)
	if limit == 0 || len(embedding) == 0 {
		return nil, nil
	}
	fetched, err := r.store.ListBySimilarity(ctx, ownerID, embedding, model.ContextualKinds, limit*candidateOverfetch, MinConfidence)
	if err != nil {
		return nil, &StoreQueryError{Op: "memory_contextual", Err: err}
	}
	kept := FilterMemories(fetched, now)

	sort.SliceStable(kept, func(i, j int) bool {
		return scoreMemory(&kept[i], query, requested) > scoreMemory(&kept[j], query, requested)
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}

// queryPrefixLen is how many leading query characters the content-match
// boost looks for.
const queryPrefixLen = 12

// scoreMemory is the cheap heuristic boost layered on top of the
// similarity-ranked pool:
//
//	3·(kind in requested set) + 2·(kind ∈ {fact, preference})
//	+ 2·confidence + 1·(content contains query prefix, case-insensitive)
func scoreMemory(m *model.Memory, query string, requested []model.MemoryKind) float64 {
	score := 2 * m.Confidence
	for _, k := range requested {
		if m.Kind == k {
			score += 3
			break
		}
	}
	if m.Kind == model.KindFact || m.Kind == model.KindPreference {
		score += 2
	}
	prefix := query
	if len(prefix) > queryPrefixLen {
		prefix = prefix[:queryPrefixLen]
	}
	if prefix != "" && strings.Contains(strings.ToLower(m.Content), strings.ToLower(prefix)) {
		score += 1
	}
	return score
}
