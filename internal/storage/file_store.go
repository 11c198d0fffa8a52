package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"reportstudio/internal/domain"
)

const (
	docExt     = ".json"
	historyExt = ".history.json"
)

// FileStore keeps one JSON file per document in a directory, next to a
// history file. The files are human editable; external edits are picked up by
// the service watcher.
type FileStore struct {
	dir          string
	historyDepth int
}

type fileHistory struct {
	Past   []domain.HistoryEntry `json:"past"`
	Future []domain.HistoryEntry `json:"future"`
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, historyDepth int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}
	return &FileStore{dir: dir, historyDepth: historyDepth}, nil
}

// Dir returns the document directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file holding the document with the given id.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+docExt)
}

// DocumentID maps a file path back to a document id. ok is false for files
// that are not document files.
func (s *FileStore) DocumentID(path string) (id string, ok bool) {
	name := filepath.Base(path)
	if filepath.Dir(path) != filepath.Clean(s.dir) || !strings.HasSuffix(name, docExt) || strings.HasSuffix(name, historyExt) {
		return "", false
	}
	return strings.TrimSuffix(name, docExt), true
}

// Close is a no-op; it lets FileStore satisfy the same interface as the
// database-backed stores.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) Put(ctx context.Context, doc *domain.Document) error {
	if err := checkID(doc.ID); err != nil {
		return err
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}
	return writeFileAtomic(s.Path(doc.ID), data)
}

func (s *FileStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", id, err)
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return &doc, nil
}

func (s *FileStore) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var out []domain.DocumentInfo
	for _, e := range entries {
		id, ok := s.DocumentID(filepath.Join(s.dir, e.Name()))
		if e.IsDir() || !ok {
			continue
		}
		doc, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.DocumentInfo{ID: doc.ID, Title: doc.Title, Version: doc.Version, UpdatedAt: doc.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	err := os.Remove(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if err := os.Remove(s.historyPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete history of %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) SaveHistory(ctx context.Context, docID string, past, future []domain.HistoryEntry) error {
	if err := checkID(docID); err != nil {
		return err
	}
	if s.historyDepth > 0 && len(past) > s.historyDepth {
		past = past[len(past)-s.historyDepth:]
	}
	data, err := json.Marshal(fileHistory{Past: past, Future: future})
	if err != nil {
		return fmt.Errorf("encode history of %s: %w", docID, err)
	}
	return writeFileAtomic(s.historyPath(docID), data)
}

func (s *FileStore) LoadHistory(ctx context.Context, docID string) (past, future []domain.HistoryEntry, err error) {
	if err := checkID(docID); err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(s.historyPath(docID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read history of %s: %w", docID, err)
	}
	var h fileHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, nil, fmt.Errorf("decode history of %s: %w", docID, err)
	}
	return h.Past, h.Future, nil
}

func (s *FileStore) historyPath(id string) string {
	return filepath.Join(s.dir, id+historyExt)
}

// checkID rejects ids that would escape the document directory.
func checkID(id string) error {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: invalid document id %q", domain.ErrDocumentNotFound, id)
	}
	return nil
}

// writeFileAtomic writes through a temp file so readers never see a partial
// document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
