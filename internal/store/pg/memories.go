package pg

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/keepstack/mnemo/internal/model"
	"github.com/keepstack/mnemo/internal/retrieval"
)

type memoryRow struct {
	ID         uuid.UUID `db:"id"`
	OwnerID    string    `db:"owner_id"`
	Kind       string    `db:"kind"`
	Content    string    `db:"content"`
	Confidence float64   `db:"confidence"`
	Embedding  *string   `db:"embedding"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r memoryRow) toModel() model.Memory {
	m := model.Memory{
		ID:         r.ID.String(),
		OwnerID:    r.OwnerID,
		Kind:       model.MemoryKind(r.Kind),
		Content:    r.Content,
		Confidence: r.Confidence,
		CreatedAt:  r.CreatedAt,
	}
	if r.Embedding != nil {
		m.Embedding = parseVector(*r.Embedding)
	}
	return m
}

// Add stores a memory unless the owner already holds a near-duplicate
// (pgvector cosine distance <= 1-0.9 against any existing memory).
func (s *Store) Add(ctx context.Context, mem model.Memory) error {
	if !model.ValidKind(mem.Kind) {
		return fmt.Errorf("unknown memory kind %q", mem.Kind)
	}

	if len(mem.Embedding) > 0 {
		var dupID *uuid.UUID
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM memories
			 WHERE owner_id = $1 AND embedding IS NOT NULL
			   AND (embedding <=> $2::vector) <= $3
			 LIMIT 1`,
			mem.OwnerID, vectorToString(mem.Embedding), 1-retrieval.MemoryWriteDupThreshold).Scan(&dupID)
		if err == nil && dupID != nil {
			slog.Debug("memory skipped as near-duplicate", "owner", mem.OwnerID, "existing", dupID)
			return nil
		}
	}

	id := uuid.Must(uuid.NewV7())
	if mem.ID != "" {
		if parsed, err := uuid.Parse(mem.ID); err == nil {
			id = parsed
		}
	}
	createdAt := mem.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var emb any
	if len(mem.Embedding) > 0 {
		emb = vectorToString(mem.Embedding)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, owner_id, kind, content, confidence, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::vector, $7)`,
		id, mem.OwnerID, string(mem.Kind), mem.Content, mem.Confidence, emb, createdAt)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// ListByConfidence returns the owner's memories of the given kinds,
// descending by confidence.
func (s *Store) ListByConfidence(ctx context.Context, ownerID string, kinds []model.MemoryKind, limit int, minConfidence float64) ([]model.Memory, error) {
	q, args, err := sqlx.In(
		`SELECT id, owner_id, kind, content, confidence, embedding::text AS embedding, created_at
		 FROM memories
		 WHERE owner_id = ? AND kind IN (?) AND confidence >= ?
		 ORDER BY confidence DESC
		 LIMIT ?`,
		ownerID, kindStrings(kinds), minConfidence, limit)
	if err != nil {
		return nil, err
	}

	var rows []memoryRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list by confidence: %w", err)
	}
	return toMemories(rows), nil
}

// ListBySimilarity ranks the owner's memories of the given kinds by pgvector
// cosine similarity to the embedding.
func (s *Store) ListBySimilarity(ctx context.Context, ownerID string, embedding []float32, kinds []model.MemoryKind, limit int, minConfidence float64) ([]model.Memory, error) {
	q, args, err := sqlx.In(
		`SELECT id, owner_id, kind, content, confidence, embedding::text AS embedding, created_at
		 FROM memories
		 WHERE owner_id = ? AND kind IN (?) AND confidence >= ? AND embedding IS NOT NULL
		 ORDER BY embedding <=> ?::vector
		 LIMIT ?`,
		ownerID, kindStrings(kinds), minConfidence, vectorToString(embedding), limit)
	if err != nil {
		return nil, err
	}

	var rows []memoryRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list by similarity: %w", err)
	}
	return toMemories(rows), nil
}

// Delete removes a memory by ID, scoped to its owner.
func (s *Store) Delete(ctx context.Context, ownerID, memoryID string) error {
	id, err := uuid.Parse(memoryID)
	if err != nil {
		return fmt.Errorf("parse memory id: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"DELETE FROM memories WHERE owner_id = $1 AND id = $2", ownerID, id)
	return err
}

func kindStrings(kinds []model.MemoryKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func toMemories(rows []memoryRow) []model.Memory {
	out := make([]model.Memory, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}
