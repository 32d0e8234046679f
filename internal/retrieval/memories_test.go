package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/keepstack/mnemo/internal/model"
)

// fakeMemoryStore serves canned tier results and records what was asked.
// The tiers run concurrently, hence the mutex around the counters.
type fakeMemoryStore struct {
	profile    []model.Memory
	contextual []model.Memory
	profileErr error
	ctxErr     error

	mu              sync.Mutex
	confidenceCalls int
	similarityCalls int
}

func (f *fakeMemoryStore) Add(ctx context.Context, mem model.Memory) error { return nil }

func (f *fakeMemoryStore) ListByConfidence(ctx context.Context, ownerID string, kinds []model.MemoryKind, limit int, minConfidence float64) ([]model.Memory, error) {
	f.mu.Lock()
	f.confidenceCalls++
	f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	out := f.profile
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMemoryStore) ListBySimilarity(ctx context.Context, ownerID string, embedding []float32, kinds []model.MemoryKind, limit int, minConfidence float64) ([]model.Memory, error) {
	f.mu.Lock()
	f.similarityCalls++
	f.mu.Unlock()
	if f.ctxErr != nil {
		return nil, f.ctxErr
	}
	out := f.contextual
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMemoryStore) Delete(ctx context.Context, ownerID, memoryID string) error { return nil }
func (f *fakeMemoryStore) Close() error                                              { return nil }

func mem(id string, kind model.MemoryKind, conf float64) model.Memory {
	return model.Memory{
		ID: id, OwnerID: "u1", Kind: kind, Content: "memory " + id,
		Confidence: conf, CreatedAt: time.Now().Add(-time.Hour),
	}
}

func memoryIDs(mems []model.Memory) []string {
	ids := make([]string, len(mems))
	for i, m := range mems {
		ids[i] = m.ID
	}
	return ids
}

func TestMemoryRetrieverFullTier(t *testing.T) {
	fake := &fakeMemoryStore{
		profile: []model.Memory{
			mem("p1", model.KindPreference, 0.95),
			mem("p2", model.KindFact, 0.9),
			mem("p3", model.KindFact, 0.85),
			mem("p4", model.KindPreference, 0.8), // over the cap of 3
		},
		contextual: []model.Memory{
			mem("c1", model.KindGoal, 0.8),
			mem("c2", model.KindDecision, 0.8),
			mem("c3", model.KindSummary, 0.8), // over the cap of 2
		},
	}
	r := NewMemoryRetriever(fake)

	got, err := r.Retrieve(context.Background(), "u1", "coffee plans", []float32{1, 0}, TierFull, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("got %v, want 3 profile + 2 contextual", memoryIDs(got))
	}
	// Profile first, then contextual.
	for i, want := range []string{"p1", "p2", "p3"} {
		if got[i].ID != want {
			t.Fatalf("profile order = %v", memoryIDs(got))
		}
	}
}

func TestMemoryRetrieverMinimalTierSkipsContextual(t *testing.T) {
	fake := &fakeMemoryStore{
		profile: []model.Memory{
			mem("p1", model.KindFact, 0.9),
			mem("p2", model.KindFact, 0.85),
			mem("p3", model.KindFact, 0.8),
		},
		contextual: []model.Memory{mem("c1", model.KindGoal, 0.9)},
	}
	r := NewMemoryRetriever(fake)

	got, err := r.Retrieve(context.Background(), "u1", "q", []float32{1, 0}, TierMinimal, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want the minimal profile cap of 2", memoryIDs(got))
	}
	if fake.similarityCalls != 0 {
		t.Error("contextual tier should not hit the store on a minimal budget")
	}
}

func TestMemoryRetrieverNoEmbeddingSkipsContextual(t *testing.T) {
	fake := &fakeMemoryStore{
		contextual: []model.Memory{mem("c1", model.KindGoal, 0.9)},
	}
	r := NewMemoryRetriever(fake)

	got, err := r.Retrieve(context.Background(), "u1", "q", nil, TierFull, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want none without a query embedding", memoryIDs(got))
	}
	if fake.similarityCalls != 0 {
		t.Error("similarity search should be skipped without an embedding")
	}
}

func TestMemoryRetrieverFiltersExpired(t *testing.T) {
	stale := mem("old-goal", model.KindGoal, 0.9)
	stale.CreatedAt = time.Now().Add(-95 * 24 * time.Hour)
	fake := &fakeMemoryStore{
		contextual: []model.Memory{stale, mem("c1", model.KindDecision, 0.8)},
	}
	r := NewMemoryRetriever(fake)

	got, err := r.Retrieve(context.Background(), "u1", "q", []float32{1, 0}, TierFull, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("got %v, want the expired goal dropped", memoryIDs(got))
	}
}

func TestMemoryRetrieverTierFailureDegrades(t *testing.T) {
	fake := &fakeMemoryStore{
		profileErr: errors.New("profile query timeout"),
		contextual: []model.Memory{mem("c1", model.KindGoal, 0.9)},
	}
	r := NewMemoryRetriever(fake)

	got, err := r.Retrieve(context.Background(), "u1", "q", []float32{1, 0}, TierFull, nil)
	if err == nil {
		t.Fatal("expected the tier error to be reported")
	}
	var sqe *StoreQueryError
	if !errors.As(err, &sqe) || sqe.Op != "memory_profile" {
		t.Fatalf("error = %v, want a memory_profile StoreQueryError", err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("got %v, want the surviving contextual tier alongside the error", memoryIDs(got))
	}
}

func TestScoreMemoryHeuristic(t *testing.T) {
	requested := []model.MemoryKind{model.KindDecision}

	decision := mem("d", model.KindDecision, 0.7)
	goal := mem("g", model.KindGoal, 0.7)
	// 3 (requested) vs 0: decision wins regardless of equal confidence.
	if scoreMemory(&decision, "query", requested) <= scoreMemory(&goal, "query", requested) {
		t.Error("requested-kind boost missing")
	}

	fact := mem("f", model.KindFact, 0.7)
	if scoreMemory(&fact, "query", nil) <= scoreMemory(&goal, "query", nil) {
		t.Error("fact/preference boost missing")
	}

	matching := mem("m", model.KindGoal, 0.7)
	matching.Content = "Plans for the VELO project launch"
	if scoreMemory(&matching, "velo project timeline", nil) <= scoreMemory(&goal, "velo project timeline", nil) {
		t.Error("query-prefix content boost missing")
	}

	hi := mem("hi", model.KindGoal, 0.9)
	lo := mem("lo", model.KindGoal, 0.6)
	if scoreMemory(&hi, "q", nil) <= scoreMemory(&lo, "q", nil) {
		t.Error("confidence term missing")
	}
}
