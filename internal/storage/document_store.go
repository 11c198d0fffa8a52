package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reportstudio/internal/domain"
)

// SQLStore implements domain.DocumentStore and domain.HistoryStore on a SQL
// database. Trees and snapshots are stored as JSON text.
type SQLStore struct {
	db           *DB
	historyDepth int
}

// NewSQLStore creates a store. historyDepth caps the persisted undo stack;
// values <= 0 keep everything the caller passes.
func NewSQLStore(db *DB, historyDepth int) *SQLStore {
	return &SQLStore{db: db, historyDepth: historyDepth}
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Put(ctx context.Context, doc *domain.Document) error {
	treeJSON, err := json.Marshal(doc.Tree)
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	q := s.db.upsert("documents",
		[]string{"id", "title", "tree_json", "version", "created_at", "updated_at"},
		"created_at",
	)
	_, err = s.db.Conn().ExecContext(ctx, s.db.rebind(q),
		doc.ID, doc.Title, string(treeJSON), doc.Version, doc.CreatedAt.UnixMilli(), doc.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	var (
		doc                  domain.Document
		treeJSON             string
		createdAt, updatedAt int64
	)
	err := s.db.Conn().QueryRowContext(ctx, s.db.rebind(
		`SELECT id, title, tree_json, version, created_at, updated_at FROM documents WHERE id = ?`), id,
	).Scan(&doc.ID, &doc.Title, &treeJSON, &doc.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(treeJSON), &doc.Tree); err != nil {
		return nil, fmt.Errorf("decode tree of %s: %w", id, err)
	}
	doc.CreatedAt = time.UnixMilli(createdAt).UTC()
	doc.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &doc, nil
}

func (s *SQLStore) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, title, version, updated_at FROM documents ORDER BY updated_at DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentInfo
	for rows.Next() {
		var (
			info      domain.DocumentInfo
			updatedAt int64
		)
		if err := rows.Scan(&info.ID, &info.Title, &info.Version, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		info.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a document and its history.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM documents WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM history_entries WHERE doc_id = ?`), id); err != nil {
		return fmt.Errorf("delete history of %s: %w", id, err)
	}
	return tx.Commit()
}
