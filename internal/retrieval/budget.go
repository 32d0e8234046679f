package retrieval

import (
	"fmt"

	"github.com/keepstack/mnemo/internal/model"
)

// Budget defaults. Each option defaults independently; a zero option means
// "use the default", negative values are rejected.
const (
	DefaultMaxTotalTokens = 1800
	DefaultMaxItems       = 8
	DefaultMaxPerSource   = 3
	DefaultMaxItemTokens  = 800

	DefaultMemoryMaxTokens = 400
	DefaultMemoryMaxItems  = 6
)

// BudgetSpec is the set of caps applied to shrink a ranked list to what the
// generator can consume.
type BudgetSpec struct {
	MaxTotalTokens int `yaml:"max_total_tokens"`
	MaxItems       int `yaml:"max_items"`
	MaxPerSource   int `yaml:"max_per_source"`
	MaxItemTokens  int `yaml:"max_item_tokens"`
}

// Validate rejects malformed options eagerly, before any I/O. Wraps
// ErrInvalidBudget so callers can errors.Is.
func (b BudgetSpec) Validate() error {
	if b.MaxTotalTokens < 0 {
		return fmt.Errorf("%w: max_total_tokens %d", ErrInvalidBudget, b.MaxTotalTokens)
	}
	if b.MaxItems < 0 {
		return fmt.Errorf("%w: max_items %d", ErrInvalidBudget, b.MaxItems)
	}
	if b.MaxPerSource < 0 {
		return fmt.Errorf("%w: max_per_source %d", ErrInvalidBudget, b.MaxPerSource)
	}
	if b.MaxItemTokens < 0 {
		return fmt.Errorf("%w: max_item_tokens %d", ErrInvalidBudget, b.MaxItemTokens)
	}
	return nil
}

func (b BudgetSpec) withDefaults() BudgetSpec {
	if b.MaxTotalTokens == 0 {
		b.MaxTotalTokens = DefaultMaxTotalTokens
	}
	if b.MaxItems == 0 {
		b.MaxItems = DefaultMaxItems
	}
	if b.MaxPerSource == 0 {
		b.MaxPerSource = DefaultMaxPerSource
	}
	if b.MaxItemTokens == 0 {
		b.MaxItemTokens = DefaultMaxItemTokens
	}
	return b
}

// ApplyBudget shrinks a relevance-sorted passage list to fit the budget,
// preserving relative order. Stages run in this exact order, each narrowing
// what the next sees:
//
//  1. Per-item size soft-filter: drop passages over MaxItemTokens, except
//     the single highest-ranked passage, which is always retained even when
//     oversized. A strictly relevant but long result must not vanish
//     silently. (This assumes the input is already relevance-sorted; with an
//     unsorted input the exempted element is arbitrary.)
//  2. Per-source cap: at most MaxPerSource passages per owning document.
//  3. Joint count+token cap: an item that would overflow MaxTotalTokens is
//     skipped, not a scan-stopper; a smaller later item may still fit. The
//     scan ends once MaxItems are accepted.
func ApplyBudget(passages []model.Passage, spec BudgetSpec, diag *Diagnostics) ([]model.Passage, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec = spec.withDefaults()

	// Stage 1: per-item size, first item exempt.
	sized := make([]model.Passage, 0, len(passages))
	for i, p := range passages {
		if i > 0 && passageTokens(p.Content, p.TokenCount) > spec.MaxItemTokens {
			continue
		}
		sized = append(sized, p)
	}

	// Stage 2: per-source cap.
	perSource := make(map[string]int, len(sized))
	capped := sized[:0:0]
	for _, p := range sized {
		if perSource[p.DocumentID] >= spec.MaxPerSource {
			continue
		}
		perSource[p.DocumentID]++
		capped = append(capped, p)
	}

	// Stage 3: joint count and token caps, skip-not-stop on tokens.
	out := make([]model.Passage, 0, len(capped))
	total := 0
	for _, p := range capped {
		if len(out) >= spec.MaxItems {
			break
		}
		tok := passageTokens(p.Content, p.TokenCount)
		if total+tok > spec.MaxTotalTokens {
			continue
		}
		out = append(out, p)
		total += tok
	}

	if diag != nil {
		diag.PostBudgetCount = len(out)
	}
	return out, nil
}

// ApplyMemoryBudget is the memory analogue: count and token caps only, since
// memories have no source grouping and are already short.
func ApplyMemoryBudget(memories []model.Memory, maxItems, maxTokens int) []model.Memory {
	if maxItems <= 0 {
		maxItems = DefaultMemoryMaxItems
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMemoryMaxTokens
	}
	out := make([]model.Memory, 0, len(memories))
	total := 0
	for _, m := range memories {
		if len(out) >= maxItems {
			break
		}
		tok := heuristicTokens(m.Content)
		if total+tok > maxTokens {
			continue
		}
		out = append(out, m)
		total += tok
	}
	return out
}
