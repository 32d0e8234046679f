// Package ingest turns raw document text into stored, embedded passages.
// Text extraction from rich formats happens upstream; this package starts
// from plain text.
package ingest

import "strings"

// DefaultMaxChunkLen is the target passage size in characters.
const DefaultMaxChunkLen = 1000

// Chunk is a passage-to-be with its ordinal position in the document.
type Chunk struct {
	Text    string
	Ordinal int
}

// ChunkText splits text into chunks at paragraph boundaries. A paragraph
// break flushes the current chunk once it is at least half the target size;
// oversized paragraphs are force-split.
func ChunkText(text string, maxChunkLen int) []Chunk {
	if maxChunkLen <= 0 {
		maxChunkLen = DefaultMaxChunkLen
	}

	lines := strings.Split(text, "\n")
	var chunks []Chunk
	var current strings.Builder

	flush := func() {
		content := strings.TrimSpace(current.String())
		if content != "" {
			chunks = append(chunks, Chunk{Text: content, Ordinal: len(chunks)})
		}
		current.Reset()
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" && current.Len() > 0 {
			if current.Len() >= maxChunkLen/2 {
				flush()
				continue
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)

		if current.Len() >= maxChunkLen {
			flush()
		}
	}
	flush()

	return chunks
}
