package retrieval

import (
	"errors"
	"testing"

	"github.com/keepstack/mnemo/internal/model"
)

func bp(id, doc string, tokens int) model.Passage {
	return model.Passage{ID: id, DocumentID: doc, TokenCount: tokens, Content: "content of " + id}
}

func passageIDs(ps []model.Passage) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}

func TestApplyBudgetValidation(t *testing.T) {
	for _, spec := range []BudgetSpec{
		{MaxTotalTokens: -1},
		{MaxItems: -1},
		{MaxPerSource: -5},
		{MaxItemTokens: -100},
	} {
		if _, err := ApplyBudget(nil, spec, nil); !errors.Is(err, ErrInvalidBudget) {
			t.Errorf("spec %+v: error = %v, want ErrInvalidBudget", spec, err)
		}
	}
	if err := (BudgetSpec{}).Validate(); err != nil {
		t.Errorf("zero spec should validate, got %v", err)
	}
}

func TestApplyBudgetFirstItemExemptFromSizeCap(t *testing.T) {
	in := []model.Passage{
		bp("big", "d1", 1200),   // oversized but top-ranked: kept
		bp("huge", "d2", 1100),  // oversized, not first: dropped
		bp("small", "d3", 100),  // fits
	}
	spec := BudgetSpec{MaxItemTokens: 800, MaxTotalTokens: 5000, MaxItems: 10, MaxPerSource: 5}

	out, err := ApplyBudget(in, spec, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := passageIDs(out)
	want := []string{"big", "small"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestApplyBudgetPerSourceCap(t *testing.T) {
	in := []model.Passage{
		bp("a1", "d1", 10), bp("a2", "d1", 10), bp("a3", "d1", 10),
		bp("b1", "d2", 10),
	}
	spec := BudgetSpec{MaxPerSource: 2, MaxItems: 10, MaxTotalTokens: 5000, MaxItemTokens: 800}

	out, err := ApplyBudget(in, spec, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := passageIDs(out)
	want := []string{"a1", "a2", "b1"}
	if len(got) != 3 || got[0] != "a1" || got[1] != "a2" || got[2] != "b1" {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestApplyBudgetTokenSkipNotStop(t *testing.T) {
	// The 200-token middle item overflows the 250 cap; the 50-token item
	// after it must still be admitted.
	in := []model.Passage{
		bp("a", "d1", 100),
		bp("b", "d2", 200),
		bp("c", "d3", 50),
	}
	spec := BudgetSpec{MaxTotalTokens: 250, MaxItems: 10, MaxPerSource: 5, MaxItemTokens: 800}

	out, err := ApplyBudget(in, spec, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := passageIDs(out)
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("got %v, want [a c]", got)
	}
}

func TestApplyBudgetMaxItems(t *testing.T) {
	in := []model.Passage{
		bp("a", "d1", 10), bp("b", "d2", 10), bp("c", "d3", 10), bp("d", "d4", 10),
	}
	spec := BudgetSpec{MaxItems: 2, MaxTotalTokens: 5000, MaxPerSource: 5, MaxItemTokens: 800}

	out, err := ApplyBudget(in, spec, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d items, want 2", len(out))
	}
}

func TestApplyBudgetPreservesOrder(t *testing.T) {
	in := []model.Passage{
		bp("a", "d1", 10), bp("b", "d2", 900), bp("c", "d3", 10), bp("d", "d4", 10),
	}
	out, err := ApplyBudget(in, BudgetSpec{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Output must be a subsequence of the input.
	j := 0
	for _, p := range out {
		for j < len(in) && in[j].ID != p.ID {
			j++
		}
		if j == len(in) {
			t.Fatalf("output %v is not a subsequence of input", passageIDs(out))
		}
		j++
	}
}

func TestApplyBudgetDefaultsAndDiag(t *testing.T) {
	in := make([]model.Passage, 0, 12)
	for i := 0; i < 12; i++ {
		in = append(in, bp(string(rune('a'+i)), "doc"+string(rune('a'+i)), 100))
	}
	var diag Diagnostics
	out, err := ApplyBudget(in, BudgetSpec{}, &diag)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != DefaultMaxItems {
		t.Fatalf("got %d items, want the default cap %d", len(out), DefaultMaxItems)
	}
	if diag.PostBudgetCount != len(out) {
		t.Errorf("diag.PostBudgetCount = %d, want %d", diag.PostBudgetCount, len(out))
	}
}

func TestApplyBudgetEstimatesWhenNoStoredCount(t *testing.T) {
	// 400 chars and no TokenCount: the ceil(len/4) heuristic says 100.
	long := model.Passage{ID: "a", DocumentID: "d1", Content: string(make([]byte, 400))}
	spec := BudgetSpec{MaxTotalTokens: 99, MaxItems: 10, MaxPerSource: 5, MaxItemTokens: 800}

	out, err := ApplyBudget([]model.Passage{{ID: "z", DocumentID: "d0", TokenCount: 1, Content: "x"}, long}, spec, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "z" {
		t.Fatalf("estimated 100-token passage should overflow the 99 cap, got %v", passageIDs(out))
	}
}

func TestApplyMemoryBudget(t *testing.T) {
	mems := []model.Memory{
		{ID: "m1", Content: "short"},
		{ID: "m2", Content: string(make([]byte, 2000))}, // 500 tokens, overflows
		{ID: "m3", Content: "also short"},
	}
	out := ApplyMemoryBudget(mems, 0, 0)
	if len(out) != 2 || out[0].ID != "m1" || out[1].ID != "m3" {
		t.Fatalf("got %d memories, want m1 and m3", len(out))
	}

	out = ApplyMemoryBudget(mems, 1, 0)
	if len(out) != 1 || out[0].ID != "m1" {
		t.Fatalf("count cap: got %d, want just m1", len(out))
	}
}
