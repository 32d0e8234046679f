package retrieval

import (
	"testing"
	"time"

	"github.com/keepstack/mnemo/internal/model"
)

const longEnough = "this content is comfortably longer than thirty characters"

func TestPassageRelevant(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	fresh := func() model.Passage {
		return model.Passage{Content: longEnough, CreatedAt: now.Add(-24 * time.Hour)}
	}

	tests := []struct {
		name string
		mod  func(*model.Passage)
		want bool
	}{
		{"fresh and long enough", func(p *model.Passage) {}, true},
		{"too short", func(p *model.Passage) { p.Content = "tiny" }, false},
		{"whitespace padding does not count", func(p *model.Passage) {
			p.Content = "short                                        "
		}, false},
		{"older than the age ceiling", func(p *model.Passage) {
			p.CreatedAt = now.Add(-400 * 24 * time.Hour)
		}, false},
		{"just inside the age ceiling", func(p *model.Passage) {
			p.CreatedAt = now.Add(-359 * 24 * time.Hour)
		}, true},
		{"metadata timestamp overrides stale creation", func(p *model.Passage) {
			p.CreatedAt = now.Add(-400 * 24 * time.Hour)
			p.Metadata.Timestamp = now.Add(-time.Hour).Format(time.RFC3339)
		}, true},
		{"malformed metadata timestamp rejects", func(p *model.Passage) {
			p.Metadata.Timestamp = "last tuesday"
		}, false},
		{"no usable timestamp rejects", func(p *model.Passage) {
			p.CreatedAt = time.Time{}
		}, false},
		{"allowed file type", func(p *model.Passage) { p.Metadata.FileType = "md" }, true},
		{"allowed file type, mixed case", func(p *model.Passage) { p.Metadata.FileType = "PDF" }, true},
		{"disallowed file type", func(p *model.Passage) { p.Metadata.FileType = "exe" }, false},
		{"untagged file type passes", func(p *model.Passage) { p.Metadata.FileType = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fresh()
			tt.mod(&p)
			if got := PassageRelevant(&p, now); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryRelevant(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	base := func() model.Memory {
		return model.Memory{
			Kind:       model.KindFact,
			Content:    "prefers dark roast",
			Confidence: 0.8,
			CreatedAt:  now.Add(-24 * time.Hour),
		}
	}

	tests := []struct {
		name string
		mod  func(*model.Memory)
		want bool
	}{
		{"valid fact", func(m *model.Memory) {}, true},
		{"below confidence floor", func(m *model.Memory) { m.Confidence = 0.59 }, false},
		{"at confidence floor", func(m *model.Memory) { m.Confidence = 0.6 }, true},
		{"empty content", func(m *model.Memory) { m.Content = "   " }, false},
		{"zero timestamp", func(m *model.Memory) { m.CreatedAt = time.Time{} }, false},
		{"goal at 60 days", func(m *model.Memory) {
			m.Kind = model.KindGoal
			m.CreatedAt = now.Add(-60 * 24 * time.Hour)
		}, true},
		{"goal at 95 days expired", func(m *model.Memory) {
			m.Kind = model.KindGoal
			m.CreatedAt = now.Add(-95 * 24 * time.Hour)
		}, false},
		{"summary at 95 days expired", func(m *model.Memory) {
			m.Kind = model.KindSummary
			m.CreatedAt = now.Add(-95 * 24 * time.Hour)
		}, false},
		{"decision at 31 days expired", func(m *model.Memory) {
			m.Kind = model.KindDecision
			m.CreatedAt = now.Add(-31 * 24 * time.Hour)
		}, false},
		{"decision at 29 days", func(m *model.Memory) {
			m.Kind = model.KindDecision
			m.CreatedAt = now.Add(-29 * 24 * time.Hour)
		}, true},
		{"preference never expires", func(m *model.Memory) {
			m.Kind = model.KindPreference
			m.CreatedAt = now.Add(-365 * 24 * time.Hour)
		}, true},
		{"fact never expires", func(m *model.Memory) {
			m.CreatedAt = now.Add(-3 * 365 * 24 * time.Hour)
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base()
			tt.mod(&m)
			if got := MemoryRelevant(&m, now); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterPassagesPreservesOrderAndCounts(t *testing.T) {
	now := time.Now()
	mk := func(id, content string) FusedPassage {
		return FusedPassage{Passage: model.Passage{ID: id, Content: content, CreatedAt: now}}
	}
	in := []FusedPassage{
		mk("a", longEnough),
		mk("b", "too short"),
		mk("c", longEnough+" second"),
	}
	var diag Diagnostics
	out := FilterPassages(in, now, &diag)
	if len(out) != 2 || out[0].Passage.ID != "a" || out[1].Passage.ID != "c" {
		t.Fatalf("got %d survivors, want a then c", len(out))
	}
	if diag.PostFilterCount != 2 {
		t.Errorf("diag.PostFilterCount = %d, want 2", diag.PostFilterCount)
	}
}
