package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keepstack/mnemo/internal/model"
	"github.com/keepstack/mnemo/internal/retrieval"
)

// Add stores a memory unless a near-duplicate (cosine >= 0.9 against the
// owner's existing memories) is already present.
func (s *Store) Add(ctx context.Context, mem model.Memory) error {
	if !model.ValidKind(mem.Kind) {
		return fmt.Errorf("unknown memory kind %q", mem.Kind)
	}

	if len(mem.Embedding) > 0 {
		existing, err := s.loadMemories(ctx, ownerKinds{owner: mem.OwnerID})
		if err != nil {
			return err
		}
		for _, e := range existing {
			if retrieval.CosineSimilarity(mem.Embedding, e.Embedding) >= retrieval.MemoryWriteDupThreshold {
				slog.Debug("memory skipped as near-duplicate", "owner", mem.OwnerID, "existing", e.ID)
				return nil
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := mem.ID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	createdAt := mem.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	embJSON, err := json.Marshal(mem.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, owner_id, kind, content, confidence, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, mem.OwnerID, string(mem.Kind), mem.Content, mem.Confidence, string(embJSON), createdAt.Unix())
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// ListByConfidence returns the owner's memories of the given kinds ordered
// by confidence descending.
func (s *Store) ListByConfidence(ctx context.Context, ownerID string, kinds []model.MemoryKind, limit int, minConfidence float64) ([]model.Memory, error) {
	mems, err := s.loadMemories(ctx, ownerKinds{owner: ownerID, kinds: kinds, minConfidence: minConfidence})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(mems, func(i, j int) bool { return mems[i].Confidence > mems[j].Confidence })
	if limit > 0 && len(mems) > limit {
		mems = mems[:limit]
	}
	return mems, nil
}

// ListBySimilarity ranks the owner's memories of the given kinds by cosine
// similarity to the embedding. Memories without embeddings are skipped.
func (s *Store) ListBySimilarity(ctx context.Context, ownerID string, embedding []float32, kinds []model.MemoryKind, limit int, minConfidence float64) ([]model.Memory, error) {
	mems, err := s.loadMemories(ctx, ownerKinds{owner: ownerID, kinds: kinds, minConfidence: minConfidence})
	if err != nil {
		return nil, err
	}

	type scored struct {
		m   model.Memory
		sim float64
	}
	var results []scored
	for _, m := range mems {
		if len(m.Embedding) == 0 {
			continue
		}
		results = append(results, scored{m: m, sim: retrieval.CosineSimilarity(embedding, m.Embedding)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].sim > results[j].sim })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	out := make([]model.Memory, len(results))
	for i, r := range results {
		out[i] = r.m
	}
	return out, nil
}

// Delete removes a memory by ID, scoped to its owner.
func (s *Store) Delete(ctx context.Context, ownerID, memoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE owner_id = ? AND id = ?", ownerID, memoryID)
	return err
}

// ListMemories returns all of an owner's memories, newest first. Used by the
// CLI listing.
func (s *Store) ListMemories(ctx context.Context, ownerID string) ([]model.Memory, error) {
	mems, err := s.loadMemories(ctx, ownerKinds{owner: ownerID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(mems, func(i, j int) bool { return mems[i].CreatedAt.After(mems[j].CreatedAt) })
	return mems, nil
}

type ownerKinds struct {
	owner         string
	kinds         []model.MemoryKind
	minConfidence float64
}

func (s *Store) loadMemories(ctx context.Context, f ownerKinds) ([]model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	args := []any{f.owner}
	q := "SELECT id, owner_id, kind, content, confidence, embedding, created_at FROM memories WHERE owner_id = ?"
	if len(f.kinds) > 0 {
		ph := make([]string, len(f.kinds))
		for i, k := range f.kinds {
			ph[i] = "?"
			args = append(args, string(k))
		}
		q += " AND kind IN (" + strings.Join(ph, ",") + ")"
	}
	if f.minConfidence > 0 {
		q += " AND confidence >= ?"
		args = append(args, f.minConfidence)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Memory
	for rows.Next() {
		var m model.Memory
		var kind, embJSON string
		var created int64
		if err := rows.Scan(&m.ID, &m.OwnerID, &kind, &m.Content, &m.Confidence, &embJSON, &created); err != nil {
			continue
		}
		m.Kind = model.MemoryKind(kind)
		m.CreatedAt = time.Unix(created, 0)
		json.Unmarshal([]byte(embJSON), &m.Embedding)
		out = append(out, m)
	}
	return out, nil
}
