package domain

import (
	"context"
	"time"
)

// Document is the persisted envelope of a report's content tree.
type Document struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Tree      ContentTree `json:"tree"`
	Version   int64       `json:"version"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// DocumentInfo is the list view of a document without its tree.
type DocumentInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HistoryEntry is a snapshot of the tree taken right before a mutation.
type HistoryEntry struct {
	Label      string      `json:"label"`
	Tree       ContentTree `json:"tree"`
	RecordedAt time.Time   `json:"recordedAt"`
}

// DocumentStore persists documents. Get returns ErrDocumentNotFound for
// unknown ids.
type DocumentStore interface {
	Put(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]DocumentInfo, error)
	Delete(ctx context.Context, id string) error
}

// HistoryStore persists the undo/redo stacks of a document. Past is ordered
// oldest first, future is ordered with the next redo last.
type HistoryStore interface {
	SaveHistory(ctx context.Context, docID string, past, future []HistoryEntry) error
	LoadHistory(ctx context.Context, docID string) (past, future []HistoryEntry, err error)
}
