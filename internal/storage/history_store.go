package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reportstudio/internal/domain"
)

const (
	stackPast   = "past"
	stackFuture = "future"
)

// SaveHistory replaces the persisted undo/redo stacks of a document. The past
// stack is pruned to the newest historyDepth entries.
func (s *SQLStore) SaveHistory(ctx context.Context, docID string, past, future []domain.HistoryEntry) error {
	if s.historyDepth > 0 && len(past) > s.historyDepth {
		past = past[len(past)-s.historyDepth:]
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM history_entries WHERE doc_id = ?`), docID); err != nil {
		return fmt.Errorf("clear history of %s: %w", docID, err)
	}

	insert := s.db.rebind(`INSERT INTO history_entries (doc_id, stack, seq, label, snapshot_json, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for stack, entries := range map[string][]domain.HistoryEntry{stackPast: past, stackFuture: future} {
		for i, e := range entries {
			snapshot, err := json.Marshal(e.Tree)
			if err != nil {
				return fmt.Errorf("encode snapshot %q: %w", e.Label, err)
			}
			if _, err := tx.ExecContext(ctx, insert,
				docID, stack, i, e.Label, string(snapshot), e.RecordedAt.UnixMilli(),
			); err != nil {
				return fmt.Errorf("insert history entry: %w", err)
			}
		}
	}
	return tx.Commit()
}

// LoadHistory returns the persisted stacks, oldest entry first in each.
func (s *SQLStore) LoadHistory(ctx context.Context, docID string) (past, future []domain.HistoryEntry, err error) {
	rows, err := s.db.Conn().QueryContext(ctx, s.db.rebind(
		`SELECT stack, label, snapshot_json, recorded_at FROM history_entries
		 WHERE doc_id = ? ORDER BY stack ASC, seq ASC`), docID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("load history of %s: %w", docID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stack, snapshot string
			recordedAt      int64
			e               domain.HistoryEntry
		)
		if err := rows.Scan(&stack, &e.Label, &snapshot, &recordedAt); err != nil {
			return nil, nil, fmt.Errorf("scan history entry: %w", err)
		}
		if err := json.Unmarshal([]byte(snapshot), &e.Tree); err != nil {
			return nil, nil, fmt.Errorf("decode snapshot %q: %w", e.Label, err)
		}
		e.RecordedAt = time.UnixMilli(recordedAt).UTC()
		if stack == stackFuture {
			future = append(future, e)
		} else {
			past = append(past, e)
		}
	}
	return past, future, rows.Err()
}
