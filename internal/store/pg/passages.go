package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/keepstack/mnemo/internal/model"
)

// Store is the Postgres-backed passage and memory store.
type Store struct {
	db *sqlx.DB

	// MatchAll switches the tsquery from OR- to AND-combined tokens.
	MatchAll bool
}

// New wraps an open connection. Run Migrate first.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// passageRow maps the passages table for sqlx scanning.
type passageRow struct {
	ID         uuid.UUID      `db:"id"`
	DocumentID uuid.UUID      `db:"document_id"`
	OwnerID    string         `db:"owner_id"`
	Ordinal    int            `db:"ordinal"`
	Content    string         `db:"content"`
	TokenCount int            `db:"token_count"`
	TsOverride string         `db:"ts_override"`
	FileType   string         `db:"file_type"`
	Title      string         `db:"title"`
	StartYear  *int           `db:"start_year"`
	EndYear    *int           `db:"end_year"`
	Embedding  sql.NullString `db:"embedding"`
	CreatedAt  time.Time      `db:"created_at"`
	Score      float64        `db:"score"`
}

func (r passageRow) toModel() model.Passage {
	p := model.Passage{
		ID:         r.ID.String(),
		DocumentID: r.DocumentID.String(),
		OwnerID:    r.OwnerID,
		Ordinal:    r.Ordinal,
		Content:    r.Content,
		TokenCount: r.TokenCount,
		Metadata: model.PassageMetadata{
			Timestamp: r.TsOverride,
			FileType:  r.FileType,
			Title:     r.Title,
		},
		CreatedAt: r.CreatedAt,
	}
	if r.Embedding.Valid {
		p.Embedding = parseVector(r.Embedding.String)
	}
	if r.StartYear != nil || r.EndYear != nil {
		p.Validity = &model.YearRange{StartYear: r.StartYear, EndYear: r.EndYear}
	}
	return p
}

// PutDocument creates or updates the document keyed by (owner, source) and
// returns its ID.
func (s *Store) PutDocument(ctx context.Context, doc model.Document) (string, error) {
	id := uuid.Must(uuid.NewV7())
	if doc.ID != "" {
		parsed, err := uuid.Parse(doc.ID)
		if err != nil {
			return "", fmt.Errorf("parse document id: %w", err)
		}
		id = parsed
	}

	var out uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO documents (id, owner_id, source, title, file_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (owner_id, source)
		 DO UPDATE SET title = EXCLUDED.title, file_type = EXCLUDED.file_type, updated_at = now()
		 RETURNING id`,
		id, doc.OwnerID, doc.Source, doc.Title, doc.FileType).Scan(&out)
	if err != nil {
		return "", fmt.Errorf("upsert document: %w", err)
	}
	return out.String(), nil
}

// PutPassages replaces a document's passages.
func (s *Store) PutPassages(ctx context.Context, documentID string, passages []model.Passage) error {
	docID, err := uuid.Parse(documentID)
	if err != nil {
		return fmt.Errorf("parse document id: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM passages WHERE document_id = $1", docID); err != nil {
		return fmt.Errorf("clear passages: %w", err)
	}

	for _, p := range passages {
		id := uuid.Must(uuid.NewV7())
		if p.ID != "" {
			if parsed, err := uuid.Parse(p.ID); err == nil {
				id = parsed
			}
		}
		var startYear, endYear *int
		if p.Validity != nil {
			startYear, endYear = p.Validity.StartYear, p.Validity.EndYear
		}
		var emb any
		if len(p.Embedding) > 0 {
			emb = vectorToString(p.Embedding)
		}
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO passages (id, document_id, owner_id, ordinal, content, token_count,
				ts_override, file_type, title, start_year, end_year, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::vector, $13)`,
			id, docID, p.OwnerID, p.Ordinal, p.Content, p.TokenCount,
			p.Metadata.Timestamp, p.Metadata.FileType, p.Metadata.Title,
			startYear, endYear, emb, createdAt)
		if err != nil {
			return fmt.Errorf("insert passage: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document; passages cascade via the foreign key.
func (s *Store) DeleteDocument(ctx context.Context, ownerID, source string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE owner_id = $1 AND source = $2", ownerID, source)
	return err
}

// ListDocuments returns the owner's documents ordered by source.
func (s *Store) ListDocuments(ctx context.Context, ownerID string) ([]model.Document, error) {
	type docRow struct {
		ID        uuid.UUID `db:"id"`
		OwnerID   string    `db:"owner_id"`
		Source    string    `db:"source"`
		Title     string    `db:"title"`
		FileType  string    `db:"file_type"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	var rows []docRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, owner_id, source, title, file_type, created_at, updated_at FROM documents WHERE owner_id = $1 ORDER BY source",
		ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	docs := make([]model.Document, len(rows))
	for i, r := range rows {
		docs[i] = model.Document{
			ID:        r.ID.String(),
			OwnerID:   r.OwnerID,
			Source:    r.Source,
			Title:     r.Title,
			FileType:  r.FileType,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return docs, nil
}

// Close is a no-op; the caller owns the connection pool.
func (s *Store) Close() error { return nil }
