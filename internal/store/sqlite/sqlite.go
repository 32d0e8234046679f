// Package sqlite implements store.PassageStore and store.MemoryStore on a
// single embedded SQLite file: FTS5 (porter stemming) for keyword search and
// an in-memory cosine scan for vector search.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/keepstack/mnemo/internal/model"
)

// Store holds passages, documents, and memories in one SQLite database.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	// MatchAll switches the FTS query from OR- to AND-combined tokens.
	MatchAll bool
}

// Open opens (or creates) the database at path and runs the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite store opened", "path", path)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			source TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			file_type TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(owner_id, source)
		)`,
		`CREATE TABLE IF NOT EXISTS passages (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			owner_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			content TEXT NOT NULL,
			token_count INTEGER NOT NULL DEFAULT 0,
			ts_override TEXT NOT NULL DEFAULT '',
			file_type TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			start_year INTEGER,
			end_year INTEGER,
			embedding TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_passages_owner ON passages(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_passages_document ON passages(document_id)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS passages_fts USING fts5(
			content,
			id UNINDEXED,
			owner_id UNINDEXED,
			tokenize='porter unicode61'
		)`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			confidence REAL NOT NULL,
			embedding TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_owner_kind ON memories(owner_id, kind)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

// PutDocument creates or replaces the document identified by (owner,
// source). Replacement keeps the document ID so passages cascade correctly
// on the next PutPassages.
func (s *Store) PutDocument(ctx context.Context, doc model.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM documents WHERE owner_id = ? AND source = ?",
		doc.OwnerID, doc.Source).Scan(&existing)
	now := time.Now()

	if err == nil {
		_, err = s.db.ExecContext(ctx,
			"UPDATE documents SET title = ?, file_type = ?, updated_at = ? WHERE id = ?",
			doc.Title, doc.FileType, now.Unix(), existing)
		return existing, err
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup document: %w", err)
	}

	id := doc.ID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, owner_id, source, title, file_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, doc.OwnerID, doc.Source, doc.Title, doc.FileType, now.Unix(), now.Unix())
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// PutPassages replaces a document's passages and their FTS entries.
func (s *Store) PutPassages(ctx context.Context, documentID string, passages []model.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tx.ExecContext(ctx, "DELETE FROM passages_fts WHERE id IN (SELECT id FROM passages WHERE document_id = ?)", documentID)
	tx.ExecContext(ctx, "DELETE FROM passages WHERE document_id = ?", documentID)

	for _, p := range passages {
		id := p.ID
		if id == "" {
			id = uuid.Must(uuid.NewV7()).String()
		}
		embJSON, err := json.Marshal(p.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		var startYear, endYear any
		if p.Validity != nil {
			if p.Validity.StartYear != nil {
				startYear = *p.Validity.StartYear
			}
			if p.Validity.EndYear != nil {
				endYear = *p.Validity.EndYear
			}
		}
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO passages (id, document_id, owner_id, ordinal, content, token_count,
				ts_override, file_type, title, start_year, end_year, embedding, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, documentID, p.OwnerID, p.Ordinal, p.Content, p.TokenCount,
			p.Metadata.Timestamp, p.Metadata.FileType, p.Metadata.Title,
			startYear, endYear, string(embJSON), createdAt.Unix())
		if err != nil {
			return fmt.Errorf("insert passage: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO passages_fts (content, id, owner_id) VALUES (?, ?, ?)",
			p.Content, id, p.OwnerID)
		if err != nil {
			return fmt.Errorf("insert fts: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document; passages cascade via the foreign key,
// FTS rows are cleared explicitly (virtual tables have no constraints).
func (s *Store) DeleteDocument(ctx context.Context, ownerID, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tx.ExecContext(ctx, `DELETE FROM passages_fts WHERE id IN (
		SELECT p.id FROM passages p
		JOIN documents d ON p.document_id = d.id
		WHERE d.owner_id = ? AND d.source = ?)`, ownerID, source)
	tx.ExecContext(ctx, "DELETE FROM documents WHERE owner_id = ? AND source = ?", ownerID, source)

	return tx.Commit()
}

// ListDocuments returns the owner's documents ordered by source.
func (s *Store) ListDocuments(ctx context.Context, ownerID string) ([]model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner_id, source, title, file_type, created_at, updated_at FROM documents WHERE owner_id = ? ORDER BY source",
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		var created, updated int64
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Source, &d.Title, &d.FileType, &created, &updated); err != nil {
			continue
		}
		d.CreatedAt = time.Unix(created, 0)
		d.UpdatedAt = time.Unix(updated, 0)
		docs = append(docs, d)
	}
	return docs, nil
}

// PassageCount returns the number of stored passages for an owner.
func (s *Store) PassageCount(ctx context.Context, ownerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages WHERE owner_id = ?", ownerID).Scan(&count)
	return count
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// yearClause renders the temporal push-down: the validity range must cover
// the query year, with a null end bounded by the current calendar year.
func yearClause(year, currentYear int, args *[]any) string {
	*args = append(*args, year, year)
	covered := "(start_year IS NULL OR start_year <= ?) AND (end_year >= ?"
	if year <= currentYear {
		covered += " OR end_year IS NULL"
	}
	covered += ")"
	return covered
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
