// Package history keeps bounded undo/redo stacks of content tree snapshots.
package history

import (
	"time"

	"reportstudio/internal/domain"
)

// DefaultLimit is the number of undo steps kept when no limit is configured.
const DefaultLimit = 50

// Manager holds two stacks: past (oldest first) and future (most recently
// undone last). It is not safe for concurrent use; the document service
// serializes access.
type Manager struct {
	limit  int
	past   []domain.HistoryEntry
	future []domain.HistoryEntry
	now    func() time.Time
}

// New creates a Manager keeping at most limit undo steps. limit <= 0 selects
// DefaultLimit.
func New(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{limit: limit, now: time.Now}
}

// Limit returns the undo depth.
func (m *Manager) Limit() int { return m.limit }

// Record pushes a snapshot of tree, the state before the labelled operation,
// and clears the redo stack. The oldest entry is evicted past the limit.
func (m *Manager) Record(tree domain.ContentTree, label string) {
	m.past = append(m.past, m.entry(tree, label))
	if over := len(m.past) - m.limit; over > 0 {
		m.past = append([]domain.HistoryEntry(nil), m.past[over:]...)
	}
	m.future = nil
}

// Undo pops the newest past snapshot and pushes current onto the redo stack.
// ok is false when there is nothing to undo.
func (m *Manager) Undo(current domain.ContentTree) (domain.ContentTree, bool) {
	if len(m.past) == 0 {
		return domain.ContentTree{}, false
	}
	last := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	m.future = append(m.future, m.entry(current, last.Label))
	return last.Tree.Clone(), true
}

// Redo pops the most recently undone snapshot and pushes current back onto
// the past stack. ok is false when there is nothing to redo.
func (m *Manager) Redo(current domain.ContentTree) (domain.ContentTree, bool) {
	if len(m.future) == 0 {
		return domain.ContentTree{}, false
	}
	next := m.future[len(m.future)-1]
	m.future = m.future[:len(m.future)-1]
	m.past = append(m.past, m.entry(current, next.Label))
	return next.Tree.Clone(), true
}

func (m *Manager) CanUndo() bool { return len(m.past) > 0 }
func (m *Manager) CanRedo() bool { return len(m.future) > 0 }

// UndoLabel names the operation Undo would revert, or "".
func (m *Manager) UndoLabel() string {
	if len(m.past) == 0 {
		return ""
	}
	return m.past[len(m.past)-1].Label
}

// RedoLabel names the operation Redo would reapply, or "".
func (m *Manager) RedoLabel() string {
	if len(m.future) == 0 {
		return ""
	}
	return m.future[len(m.future)-1].Label
}

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.past = nil
	m.future = nil
}

// Entries returns copies of both stacks for persistence.
func (m *Manager) Entries() (past, future []domain.HistoryEntry) {
	return cloneEntries(m.past), cloneEntries(m.future)
}

// Restore replaces both stacks, keeping the newest entries within the limit.
func (m *Manager) Restore(past, future []domain.HistoryEntry) {
	if over := len(past) - m.limit; over > 0 {
		past = past[over:]
	}
	m.past = cloneEntries(past)
	m.future = cloneEntries(future)
}

func (m *Manager) entry(tree domain.ContentTree, label string) domain.HistoryEntry {
	return domain.HistoryEntry{Label: label, Tree: tree.Clone(), RecordedAt: m.now().UTC()}
}

func cloneEntries(in []domain.HistoryEntry) []domain.HistoryEntry {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.HistoryEntry, len(in))
	for i, e := range in {
		e.Tree = e.Tree.Clone()
		out[i] = e
	}
	return out
}
