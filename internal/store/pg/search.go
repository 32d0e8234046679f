package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/keepstack/mnemo/internal/model"
	"github.com/keepstack/mnemo/internal/store"
)

const passageColumns = `id, document_id, owner_id, ordinal, content, token_count,
	ts_override, file_type, title, start_year, end_year, embedding::text AS embedding, created_at`

// SearchByEmbedding delegates nearest-neighbor search to pgvector, ascending
// cosine distance, owner-scoped with the year filter in SQL.
func (s *Store) SearchByEmbedding(ctx context.Context, ownerID string, embedding []float32, topK int, year *store.YearFilter) ([]model.Passage, error) {
	if topK <= 0 {
		topK = 10
	}
	vec := vectorToString(embedding)

	args := []any{vec, ownerID}
	where := "owner_id = $2 AND embedding IS NOT NULL"
	if year != nil {
		where += " AND " + yearClause(year.Year, &args)
	}
	args = append(args, topK)

	q := fmt.Sprintf(`SELECT %s, (embedding <=> $1::vector) AS score
		FROM passages
		WHERE %s
		ORDER BY embedding <=> $1::vector
		LIMIT $%d`, passageColumns, where, len(args))

	var rows []passageRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	out := make([]model.Passage, len(rows))
	for i, r := range rows {
		p := r.toModel()
		dist := r.Score
		p.Distance = &dist
		out[i] = p
	}
	return out, nil
}

// SearchByKeyword runs a tsquery over the generated tsvector column,
// descending ts_rank. Distance is 1-rank clamped to [0,1] so downstream
// confidence math stays uniform.
func (s *Store) SearchByKeyword(ctx context.Context, ownerID, query string, topK int, year *store.YearFilter) ([]model.Passage, error) {
	if topK <= 0 {
		topK = 10
	}

	tokens := store.KeywordTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	op := " | "
	if s.MatchAll {
		op = " & "
	}
	clean := tokens[:0]
	for _, t := range tokens {
		if t = sanitizeTsToken(t); t != "" {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		return nil, nil
	}
	tsq := strings.Join(clean, op)

	args := []any{tsq, ownerID}
	where := "owner_id = $2 AND tsv @@ to_tsquery('simple', $1)"
	if year != nil {
		where += " AND " + yearClause(year.Year, &args)
	}
	args = append(args, topK)

	q := fmt.Sprintf(`SELECT %s, ts_rank(tsv, to_tsquery('simple', $1)) AS score
		FROM passages
		WHERE %s
		ORDER BY score DESC
		LIMIT $%d`, passageColumns, where, len(args))

	var rows []passageRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	out := make([]model.Passage, len(rows))
	for i, r := range rows {
		p := r.toModel()
		dist := 1 - r.Score
		if dist < 0 {
			dist = 0
		}
		p.Distance = &dist
		out[i] = p
	}
	return out, nil
}

// yearClause renders the temporal push-down with the next free placeholder
// positions, appending the year to args. A null end year covers through the
// present calendar year.
func yearClause(year int, args *[]any) string {
	*args = append(*args, year)
	n := len(*args)
	clause := fmt.Sprintf("(start_year IS NULL OR start_year <= $%d) AND (end_year >= $%d", n, n)
	if year <= time.Now().Year() {
		clause += " OR end_year IS NULL"
	}
	clause += ")"
	return clause
}

// sanitizeTsToken strips tsquery operator characters from a raw token.
func sanitizeTsToken(t string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '&', '|', '!', '(', ')', ':', '*', '\'':
			return -1
		}
		return r
	}, t)
}
