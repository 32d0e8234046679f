package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/keepstack/mnemo/internal/model"
	"github.com/keepstack/mnemo/internal/retrieval"
	"github.com/keepstack/mnemo/internal/store"
)

// SearchByEmbedding scans the owner's passages (year-filtered in SQL) and
// ranks them by cosine distance in memory. Fine at personal-corpus scale;
// the Postgres store delegates to pgvector instead.
func (s *Store) SearchByEmbedding(ctx context.Context, ownerID string, embedding []float32, topK int, year *store.YearFilter) ([]model.Passage, error) {
	if topK <= 0 {
		topK = 10
	}

	passages, err := s.loadPassages(ctx, ownerID, year)
	if err != nil {
		return nil, err
	}

	type scored struct {
		p    model.Passage
		dist float64
	}
	var results []scored
	for _, p := range passages {
		if len(p.Embedding) == 0 {
			continue
		}
		dist := 1 - retrieval.CosineSimilarity(embedding, p.Embedding)
		results = append(results, scored{p: p, dist: dist})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].dist < results[j].dist })
	if len(results) > topK {
		results = results[:topK]
	}

	out := make([]model.Passage, len(results))
	for i, r := range results {
		d := r.dist
		r.p.Distance = &d
		out[i] = r.p
	}
	return out, nil
}

// SearchByKeyword runs an FTS5 MATCH over the owner's passages with bm25
// ranking normalized to [0,1] via 1/(1+|rank|); Distance is 1-score so both
// channels speak the same scale. The year filter joins back to the passages
// table since FTS columns are unindexed shadows.
func (s *Store) SearchByKeyword(ctx context.Context, ownerID, query string, topK int, year *store.YearFilter) ([]model.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		topK = 10
	}

	tokens := store.KeywordTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	for i, t := range tokens {
		tokens[i] = `"` + strings.ReplaceAll(t, `"`, ``) + `"`
	}
	op := " OR "
	if s.MatchAll {
		op = " AND "
	}
	match := strings.Join(tokens, op)

	args := []any{match, ownerID}
	where := ""
	if year != nil {
		where = " AND " + yearClause(year.Year, time.Now().Year(), &args)
	}
	args = append(args, topK)

	q := fmt.Sprintf(`SELECT p.id, p.document_id, p.owner_id, p.ordinal, p.content, p.token_count,
			p.ts_override, p.file_type, p.title, p.start_year, p.end_year, p.embedding, p.created_at,
			1.0 / (1.0 + abs(f.rank)) AS score
		FROM passages_fts f
		JOIN passages p ON p.id = f.id
		WHERE f.content MATCH ? AND p.owner_id = ?%s
		ORDER BY f.rank
		LIMIT ?`, where)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var out []model.Passage
	for rows.Next() {
		p, score, err := scanPassage(rows)
		if err != nil {
			continue
		}
		d := 1 - score
		p.Distance = &d
		out = append(out, p)
	}
	return out, nil
}

// loadPassages fetches the owner's passages, applying the year filter in
// SQL.
func (s *Store) loadPassages(ctx context.Context, ownerID string, year *store.YearFilter) ([]model.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	args := []any{ownerID}
	where := ""
	if year != nil {
		where = " AND " + yearClause(year.Year, time.Now().Year(), &args)
	}

	q := fmt.Sprintf(`SELECT id, document_id, owner_id, ordinal, content, token_count,
			ts_override, file_type, title, start_year, end_year, embedding, created_at,
			0.0 AS score
		FROM passages WHERE owner_id = ?%s`, where)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Passage
	for rows.Next() {
		p, _, err := scanPassage(rows)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassage(rows rowScanner) (model.Passage, float64, error) {
	var p model.Passage
	var embJSON string
	var created int64
	var score float64
	var startYear, endYear *int

	err := rows.Scan(&p.ID, &p.DocumentID, &p.OwnerID, &p.Ordinal, &p.Content, &p.TokenCount,
		&p.Metadata.Timestamp, &p.Metadata.FileType, &p.Metadata.Title,
		&startYear, &endYear, &embJSON, &created, &score)
	if err != nil {
		return p, 0, err
	}
	json.Unmarshal([]byte(embJSON), &p.Embedding)
	p.CreatedAt = time.Unix(created, 0)
	if startYear != nil || endYear != nil {
		p.Validity = &model.YearRange{StartYear: startYear, EndYear: endYear}
	}
	return p, score, nil
}
