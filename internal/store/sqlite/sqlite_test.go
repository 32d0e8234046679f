package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/keepstack/mnemo/internal/model"
	"github.com/keepstack/mnemo/internal/store"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func putDoc(t *testing.T, s *Store, owner, source string, passages []model.Passage) string {
	t.Helper()
	ctx := context.Background()
	docID, err := s.PutDocument(ctx, model.Document{OwnerID: owner, Source: source})
	if err != nil {
		t.Fatal(err)
	}
	for i := range passages {
		passages[i].DocumentID = docID
		passages[i].OwnerID = owner
		passages[i].Ordinal = i
	}
	if err := s.PutPassages(ctx, docID, passages); err != nil {
		t.Fatal(err)
	}
	return docID
}

func TestDocumentLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id1 := putDoc(t, s, "u1", "notes.md", []model.Passage{
		{Content: "alpha passage"},
		{Content: "beta passage"},
	})
	if n := s.PassageCount(ctx, "u1"); n != 2 {
		t.Fatalf("passage count = %d, want 2", n)
	}

	// Re-putting the same (owner, source) keeps the document ID and
	// replaces the passages.
	id2 := putDoc(t, s, "u1", "notes.md", []model.Passage{
		{Content: "gamma passage"},
	})
	if id1 != id2 {
		t.Errorf("replacement changed the document ID: %s vs %s", id1, id2)
	}
	if n := s.PassageCount(ctx, "u1"); n != 1 {
		t.Fatalf("passage count after replace = %d, want 1", n)
	}

	docs, err := s.ListDocuments(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Source != "notes.md" {
		t.Fatalf("documents = %+v", docs)
	}

	if err := s.DeleteDocument(ctx, "u1", "notes.md"); err != nil {
		t.Fatal(err)
	}
	if n := s.PassageCount(ctx, "u1"); n != 0 {
		t.Fatalf("passage count after delete = %d, want 0", n)
	}
}

func TestSearchByEmbedding(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	putDoc(t, s, "u1", "doc", []model.Passage{
		{Content: "exact match content", Embedding: []float32{1, 0, 0}},
		{Content: "nearby content", Embedding: []float32{0.9, 0.1, 0}},
		{Content: "unrelated content", Embedding: []float32{0, 0, 1}},
	})

	got, err := s.SearchByEmbedding(ctx, "u1", []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want topK=2", len(got))
	}
	if got[0].Content != "exact match content" {
		t.Errorf("nearest first: got %q", got[0].Content)
	}
	if got[0].Distance == nil || got[1].Distance == nil {
		t.Fatal("distances not attached")
	}
	if *got[0].Distance > *got[1].Distance {
		t.Error("results not ascending by distance")
	}
}

func TestSearchByKeyword(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	putDoc(t, s, "u1", "doc", []model.Passage{
		{Content: "notes about coffee roasting temperatures"},
		{Content: "completely unrelated gardening advice"},
	})

	got, err := s.SearchByKeyword(ctx, "u1", "coffee roasting", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].Distance == nil {
		t.Fatal("keyword result has no distance")
	}
	if d := *got[0].Distance; d < 0 || d > 1 {
		t.Errorf("distance %v outside [0,1]", d)
	}

	// No usable tokens: empty result, not an error.
	got, err = s.SearchByKeyword(ctx, "u1", "a of to", 10, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("got %d/%v for a tokenless query", len(got), err)
	}
}

func TestSearchMatchAll(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	putDoc(t, s, "u1", "doc", []model.Passage{
		{Content: "coffee roasting temperatures"},
		{Content: "coffee brewing ratios"},
	})

	s.MatchAll = true
	got, err := s.SearchByKeyword(ctx, "u1", "coffee roasting", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("AND semantics: got %d results, want 1", len(got))
	}

	s.MatchAll = false
	got, err = s.SearchByKeyword(ctx, "u1", "coffee roasting", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("OR semantics: got %d results, want 2", len(got))
	}
}

func TestYearFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	y2019, y2021, y2022 := 2019, 2021, 2022
	putDoc(t, s, "u1", "doc", []model.Passage{
		{Content: "closed range passage", Embedding: []float32{1, 0},
			Validity: &model.YearRange{StartYear: &y2019, EndYear: &y2021}},
		{Content: "ongoing range passage", Embedding: []float32{1, 0},
			Validity: &model.YearRange{StartYear: &y2022}},
		{Content: "untagged passage", Embedding: []float32{1, 0}},
	})

	got, err := s.SearchByEmbedding(ctx, "u1", []float32{1, 0}, 10, &store.YearFilter{Year: 2020})
	if err != nil {
		t.Fatal(err)
	}
	// 2020: the closed range covers it, the 2022-ongoing range does not,
	// the untagged passage always passes.
	if len(got) != 2 {
		t.Fatalf("got %d results for 2020, want 2", len(got))
	}
	for _, p := range got {
		if p.Content == "ongoing range passage" {
			t.Error("2022-ongoing range should not cover 2020")
		}
	}

	got, err = s.SearchByEmbedding(ctx, "u1", []float32{1, 0}, 10, &store.YearFilter{Year: time.Now().Year()})
	if err != nil {
		t.Fatal(err)
	}
	// Current year: the ongoing range covers it, the closed range ended in
	// 2021.
	if len(got) != 2 {
		t.Fatalf("got %d results for the current year, want 2", len(got))
	}
	for _, p := range got {
		if p.Content == "closed range passage" {
			t.Error("range closed in 2021 should not cover the current year")
		}
	}
}

func TestOwnerIsolation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	putDoc(t, s, "alice", "doc", []model.Passage{
		{Content: "alice private coffee notes", Embedding: []float32{1, 0}},
	})
	putDoc(t, s, "bob", "doc", []model.Passage{
		{Content: "bob private coffee notes", Embedding: []float32{1, 0}},
	})

	got, err := s.SearchByEmbedding(ctx, "alice", []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].OwnerID != "alice" {
		t.Fatalf("vector search crossed owners: %+v", got)
	}

	got, err = s.SearchByKeyword(ctx, "alice", "coffee notes", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].OwnerID != "alice" {
		t.Fatalf("keyword search crossed owners: %+v", got)
	}
}

func TestMemoryAddAndList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, m := range []model.Memory{
		{OwnerID: "u1", Kind: model.KindPreference, Content: "prefers dark roast", Confidence: 0.9, Embedding: []float32{1, 0}},
		{OwnerID: "u1", Kind: model.KindFact, Content: "lives in Lisbon", Confidence: 0.7, Embedding: []float32{0, 1}},
		{OwnerID: "u1", Kind: model.KindGoal, Content: "run a marathon", Confidence: 0.8, Embedding: []float32{0.5, 0.5}},
	} {
		if err := s.Add(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListByConfidence(ctx, "u1", []model.MemoryKind{model.KindPreference, model.KindFact}, 10, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d memories, want the 2 profile kinds", len(got))
	}
	if got[0].Confidence < got[1].Confidence {
		t.Error("not descending by confidence")
	}

	got, err = s.ListBySimilarity(ctx, "u1", []float32{1, 0}, []model.MemoryKind{model.KindGoal}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "run a marathon" {
		t.Fatalf("similarity list = %+v", got)
	}
}

func TestMemoryAddRejectsUnknownKind(t *testing.T) {
	s := testStore(t)
	err := s.Add(context.Background(), model.Memory{OwnerID: "u1", Kind: "opinion", Content: "x"})
	if err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestMemoryWriteDedup(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := model.Memory{OwnerID: "u1", Kind: model.KindFact, Content: "drinks tea", Confidence: 0.8, Embedding: []float32{1, 0, 0}}
	if err := s.Add(ctx, first); err != nil {
		t.Fatal(err)
	}
	// Near-identical embedding: silently skipped.
	dup := model.Memory{OwnerID: "u1", Kind: model.KindFact, Content: "drinks tea daily", Confidence: 0.8, Embedding: []float32{0.99, 0.01, 0}}
	if err := s.Add(ctx, dup); err != nil {
		t.Fatal(err)
	}
	// Same embedding, different owner: stored.
	other := model.Memory{OwnerID: "u2", Kind: model.KindFact, Content: "drinks tea", Confidence: 0.8, Embedding: []float32{1, 0, 0}}
	if err := s.Add(ctx, other); err != nil {
		t.Fatal(err)
	}

	mems, err := s.ListMemories(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != 1 {
		t.Fatalf("u1 has %d memories, want the duplicate skipped", len(mems))
	}
	mems, err = s.ListMemories(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != 1 {
		t.Fatalf("u2 has %d memories, want 1", len(mems))
	}
}

func TestMemoryDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	m := model.Memory{ID: "mem-1", OwnerID: "u1", Kind: model.KindFact, Content: "x", Confidence: 0.8}
	if err := s.Add(ctx, m); err != nil {
		t.Fatal(err)
	}

	// Wrong owner: no effect.
	if err := s.Delete(ctx, "u2", "mem-1"); err != nil {
		t.Fatal(err)
	}
	mems, _ := s.ListMemories(ctx, "u1")
	if len(mems) != 1 {
		t.Fatal("cross-owner delete removed the memory")
	}

	if err := s.Delete(ctx, "u1", "mem-1"); err != nil {
		t.Fatal(err)
	}
	mems, _ = s.ListMemories(ctx, "u1")
	if len(mems) != 0 {
		t.Fatal("memory not deleted")
	}
}
