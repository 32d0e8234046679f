package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/keepstack/mnemo/internal/embedding"
	"github.com/keepstack/mnemo/internal/model"
	"github.com/keepstack/mnemo/internal/retrieval"
	"github.com/keepstack/mnemo/internal/store"
)

// Indexer chunks, embeds, and stores documents.
type Indexer struct {
	store    store.PassageStore
	embedder embedding.Provider

	// MaxChunkLen overrides the default passage size when > 0.
	MaxChunkLen int
}

// NewIndexer wires an Indexer. embedder may be nil; passages are then stored
// without vectors and only keyword search will find them.
func NewIndexer(s store.PassageStore, embedder embedding.Provider) *Indexer {
	return &Indexer{store: s, embedder: embedder}
}

// Options carries per-document ingest metadata.
type Options struct {
	Title    string
	FileType string
	// Validity tags every passage of the document with a year range.
	Validity *model.YearRange
}

// IndexDocument replaces the document identified by (ownerID, source) with
// passages chunked from text. Returns the passage count.
func (ix *Indexer) IndexDocument(ctx context.Context, ownerID, source, text string, opts Options) (int, error) {
	if err := store.ValidateOwnerID(ownerID); err != nil {
		return 0, err
	}

	chunks := ChunkText(text, ix.MaxChunkLen)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %q has no indexable content", source)
	}

	docID, err := ix.store.PutDocument(ctx, model.Document{
		OwnerID:  ownerID,
		Source:   source,
		Title:    opts.Title,
		FileType: opts.FileType,
	})
	if err != nil {
		return 0, fmt.Errorf("store document: %w", err)
	}

	var vectors [][]float32
	if ix.embedder != nil {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err = ix.embedder.Embed(ctx, texts, embedding.ModeDocument)
		if err != nil {
			// Store without vectors rather than failing the ingest; a
			// backfill can embed later.
			slog.Warn("embedding failed, storing passages without vectors", "source", source, "err", err)
			vectors = nil
		}
	}

	now := time.Now()
	passages := make([]model.Passage, len(chunks))
	for i, c := range chunks {
		p := model.Passage{
			DocumentID: docID,
			OwnerID:    ownerID,
			Ordinal:    c.Ordinal,
			Content:    c.Text,
			TokenCount: retrieval.EstimateTokens(c.Text),
			Metadata: model.PassageMetadata{
				FileType: opts.FileType,
				Title:    opts.Title,
			},
			Validity:  opts.Validity,
			CreatedAt: now,
		}
		if vectors != nil && i < len(vectors) {
			p.Embedding = vectors[i]
		}
		passages[i] = p
	}

	if err := ix.store.PutPassages(ctx, docID, passages); err != nil {
		return 0, fmt.Errorf("store passages: %w", err)
	}

	slog.Info("document indexed", "owner", ownerID, "source", source, "passages", len(passages))
	return len(passages), nil
}
