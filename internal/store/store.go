// Package store defines the datastore contracts the retrieval core consumes.
// Implementations live in store/pg (Postgres + pgvector) and store/sqlite
// (embedded FTS5). Stores are passed in explicitly, never through a
// process-wide singleton, so tests can substitute fakes.
package store

import (
	"context"

	"github.com/keepstack/mnemo/internal/model"
)

// YearFilter narrows a search to passages whose validity range covers Year.
// It must be applied inside the store query, not as a post-filter: it changes
// which candidates exist, not merely their order.
type YearFilter struct {
	Year int
}

// VectorSearcher performs nearest-neighbor search over passage embeddings,
// scoped by owner. Results come back ascending by distance with Distance set.
type VectorSearcher interface {
	SearchByEmbedding(ctx context.Context, ownerID string, embedding []float32, topK int, year *YearFilter) ([]model.Passage, error)
}

// KeywordSearcher performs full-text relevance search over passage content,
// scoped by owner. Results come back descending by rank score with Distance
// set to 1-score so downstream confidence math is uniform.
type KeywordSearcher interface {
	SearchByKeyword(ctx context.Context, ownerID, query string, topK int, year *YearFilter) ([]model.Passage, error)
}

// PassageStore is the full document-side contract: hybrid search plus
// document/passage lifecycle.
type PassageStore interface {
	VectorSearcher
	KeywordSearcher

	// PutDocument creates or replaces the document identified by
	// (ownerID, source) and returns its ID.
	PutDocument(ctx context.Context, doc model.Document) (string, error)
	// PutPassages replaces the passages of a document.
	PutPassages(ctx context.Context, documentID string, passages []model.Passage) error
	// DeleteDocument removes a document and cascades to its passages.
	DeleteDocument(ctx context.Context, ownerID, source string) error
	// ListDocuments returns the owner's documents.
	ListDocuments(ctx context.Context, ownerID string) ([]model.Document, error)

	Close() error
}

// MemoryStore is the memory-side contract.
type MemoryStore interface {
	// Add stores a memory. Implementations reject near-duplicates of an
	// existing memory (cosine >= 0.9) to keep the corpus clean.
	Add(ctx context.Context, mem model.Memory) error
	// ListByConfidence returns up to limit memories of the given kinds,
	// descending by confidence, at or above minConfidence.
	ListByConfidence(ctx context.Context, ownerID string, kinds []model.MemoryKind, limit int, minConfidence float64) ([]model.Memory, error)
	// ListBySimilarity returns up to limit memories of the given kinds
	// ranked by similarity to the embedding, at or above minConfidence.
	ListBySimilarity(ctx context.Context, ownerID string, embedding []float32, kinds []model.MemoryKind, limit int, minConfidence float64) ([]model.Memory, error)
	// Delete removes a memory by ID.
	Delete(ctx context.Context, ownerID, memoryID string) error

	Close() error
}
