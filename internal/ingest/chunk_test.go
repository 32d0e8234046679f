package ingest

import (
	"strings"
	"testing"
)

func TestChunkTextEmpty(t *testing.T) {
	if got := ChunkText("", 0); len(got) != 0 {
		t.Fatalf("got %d chunks from empty input", len(got))
	}
	if got := ChunkText("   \n\n  ", 0); len(got) != 0 {
		t.Fatalf("got %d chunks from whitespace input", len(got))
	}
}

func TestChunkTextSingleParagraph(t *testing.T) {
	got := ChunkText("a single short paragraph", 1000)
	if len(got) != 1 {
		t.Fatalf("got %d chunks, want 1", len(got))
	}
	if got[0].Text != "a single short paragraph" || got[0].Ordinal != 0 {
		t.Errorf("chunk = %+v", got[0])
	}
}

func TestChunkTextSplitsAtParagraphBreaks(t *testing.T) {
	para1 := strings.Repeat("first paragraph sentence. ", 5)
	para2 := strings.Repeat("second paragraph sentence. ", 5)
	text := para1 + "\n\n" + para2

	got := ChunkText(text, 200)
	if len(got) < 2 {
		t.Fatalf("got %d chunks, want a split at the blank line", len(got))
	}
	for i, c := range got {
		if c.Ordinal != i {
			t.Errorf("chunk %d has ordinal %d", i, c.Ordinal)
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}

func TestChunkTextForceSplitsOversized(t *testing.T) {
	// 100 lines of 50 chars with no paragraph breaks must still split near
	// the target size.
	text := strings.Repeat("a line of filler text that keeps going without a break\n", 100)
	got := ChunkText(text, 1000)
	if len(got) < 4 {
		t.Fatalf("got %d chunks, want the oversized run force-split", len(got))
	}
	for _, c := range got {
		if len(c.Text) > 1100 {
			t.Errorf("chunk of %d chars exceeds the target by too much", len(c.Text))
		}
	}
}

func TestChunkTextSmallParagraphsCoalesce(t *testing.T) {
	// Tiny paragraphs well under half the target stay together.
	text := "one\n\ntwo\n\nthree"
	got := ChunkText(text, 1000)
	if len(got) != 1 {
		t.Fatalf("got %d chunks, want tiny paragraphs coalesced into 1", len(got))
	}
}
