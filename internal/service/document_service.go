package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"reportstudio/internal/blocks"
	"reportstudio/internal/domain"
	"reportstudio/internal/history"
	"reportstudio/internal/ids"
	"reportstudio/internal/logger"
	"reportstudio/internal/metrics"
	"reportstudio/internal/tree"
)

// ─────────────────────────────────────────────────────────────
// DocumentService: the single entry point for editing a report
// ─────────────────────────────────────────────────────────────

// DefaultTitle names documents created without a title.
const DefaultTitle = "Untitled report"

// Deps holds the collaborators of a DocumentService. Store is required;
// everything else has a usable default.
type Deps struct {
	Store        domain.DocumentStore
	History      domain.HistoryStore
	Emitter      EventEmitter
	IDs          ids.Generator
	Blocks       *blocks.Factory
	HistoryDepth int
	DefaultZoom  int
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
}

// ChangeEvent is emitted after every applied mutation, undo and redo.
type ChangeEvent struct {
	DocumentID string             `json:"documentId"`
	Operation  string             `json:"operation"`
	Version    int64              `json:"version"`
	CanUndo    bool               `json:"canUndo"`
	CanRedo    bool               `json:"canRedo"`
	Editor     domain.EditorState `json:"editor"`
}

// SavedEvent is emitted when a write reached the store.
type SavedEvent struct {
	DocumentID string `json:"documentId"`
	Version    int64  `json:"version"`
}

// SaveFailedEvent is emitted when a background write failed. The in-memory
// document is kept as is.
type SaveFailedEvent struct {
	DocumentID string `json:"documentId"`
	Version    int64  `json:"version"`
	Error      string `json:"error"`
}

// DocumentService owns the open document: its tree, editor state and undo
// history. Operations are serialized; the published tree is swapped
// atomically and never modified in place.
type DocumentService struct {
	store    domain.DocumentStore
	hstore   domain.HistoryStore
	emitter  EventEmitter
	ids      ids.Generator
	factory  *blocks.Factory
	log      *logger.Logger
	metrics  *metrics.Metrics
	saver    *saver
	zoom     int
	ctx      context.Context
	checkVer int64 // document version at the last history checkpoint

	mu      sync.Mutex
	doc     domain.Document // Tree mirrors current
	current atomic.Pointer[domain.ContentTree]
	history *history.Manager
	editor  domain.EditorState
}

// NewDocumentService creates a service holding a new, unsaved, empty document.
func NewDocumentService(deps Deps) *DocumentService {
	if deps.Emitter == nil {
		deps.Emitter = NopEmitter{}
	}
	if deps.IDs == nil {
		deps.IDs = ids.UUIDGenerator{}
	}
	if deps.Blocks == nil {
		deps.Blocks = blocks.NewFactory(deps.IDs, nil)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.DefaultZoom == 0 {
		deps.DefaultZoom = domain.DefaultZoom
	}
	log := deps.Logger.With("document_service")

	s := &DocumentService{
		store:   deps.Store,
		hstore:  deps.History,
		emitter: deps.Emitter,
		ids:     deps.IDs,
		factory: deps.Blocks,
		log:     log,
		metrics: deps.Metrics,
		saver:   newSaver(deps.Store, deps.History, deps.Emitter, log, deps.Metrics),
		zoom:    domain.ClampZoom(deps.DefaultZoom),
		ctx:     context.Background(),
		history: history.New(deps.HistoryDepth),
	}
	s.reset(s.blankDocument(DefaultTitle))
	return s
}

func (s *DocumentService) blankDocument(title string) domain.Document {
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now().UTC()
	return domain.Document{
		ID:        s.ids.NextID(ids.PrefixDocument),
		Title:     title,
		Tree:      domain.ContentTree{Sections: []*domain.Section{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// reset installs doc as the open document with fresh editor state. Callers
// hold mu or own s exclusively.
func (s *DocumentService) reset(doc domain.Document) {
	s.doc = doc
	t := doc.Tree
	s.current.Store(&t)
	s.checkVer = doc.Version
	s.editor = domain.NewEditorState()
	s.editor.ZoomLevel = s.zoom
	s.metrics.SetTreeSize(t.Counts())
}

// ── Document lifecycle ─────────────────────────────────────

// New replaces the open document with an empty one and saves it.
func (s *DocumentService) New(ctx context.Context, title string) (domain.DocumentInfo, error) {
	s.mu.Lock()
	s.reset(s.blankDocument(title))
	s.history.Clear()
	job := s.nextSaveLocked(true)
	s.checkVer = s.doc.Version
	info := s.infoLocked()
	s.saver.schedule(job)
	s.mu.Unlock()

	s.emitter.Emit(ctx, EventDocumentOpened, info)
	s.log.Info().Str("document", info.ID).Msg("document created")
	return info, nil
}

// Open loads a document and its persisted history from the store.
func (s *DocumentService) Open(ctx context.Context, id string) (domain.DocumentInfo, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("open document: %w", err)
	}
	if err := tree.Validate(doc.Tree); err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("open document %s: %w", id, err)
	}
	var past, future []domain.HistoryEntry
	if s.hstore != nil {
		if past, future, err = s.hstore.LoadHistory(ctx, id); err != nil {
			return domain.DocumentInfo{}, fmt.Errorf("open document %s: %w", id, err)
		}
	}

	s.saver.remember(*doc)
	s.mu.Lock()
	// Keep versions increasing past writes still queued for this id.
	doc.Version = max(doc.Version, s.saver.version(id))
	s.reset(*doc)
	s.history.Restore(past, future)
	info := s.infoLocked()
	s.mu.Unlock()

	s.emitter.Emit(ctx, EventDocumentOpened, info)
	s.log.Info().Str("document", id).Int64("version", doc.Version).Msg("document opened")
	return info, nil
}

// Reload replaces the open document with the stored copy when someone else
// changed it: the stored version is newer, or its content is not what this
// process last wrote (a hand edit that left the version alone). History is
// dropped because its snapshots no longer lead to the new tree. It reports
// whether a reload happened.
func (s *DocumentService) Reload(ctx context.Context) (bool, error) {
	id := s.DocumentID()
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("reload document: %w", err)
	}
	if err := tree.Validate(doc.Tree); err != nil {
		return false, fmt.Errorf("reload document %s: %w", id, err)
	}

	s.mu.Lock()
	if doc.ID != s.doc.ID {
		s.mu.Unlock()
		return false, nil
	}
	external := doc.Version > s.doc.Version || !s.saver.wrote(*doc)
	if !external || fingerprint(*doc) == fingerprint(s.doc) {
		s.mu.Unlock()
		return false, nil
	}
	s.saver.remember(*doc)
	doc.Version = max(doc.Version, s.doc.Version)
	editor := s.editor
	s.reset(*doc)
	s.editor = editor
	s.reconcileSelectionLocked()
	s.history.Clear()
	evt := s.changeEventLocked("reload")
	s.mu.Unlock()

	s.emitter.Emit(ctx, EventDocumentReloaded, evt)
	s.log.Info().Str("document", id).Int64("version", doc.Version).Msg("document reloaded from store")
	return true, nil
}

// Checkpoint saves the document together with its undo history when it
// changed since the last checkpoint. It reports whether a write was queued.
func (s *DocumentService) Checkpoint() bool {
	s.mu.Lock()
	if s.doc.Version == s.checkVer {
		s.mu.Unlock()
		return false
	}
	job := s.nextSaveLocked(true)
	s.checkVer = s.doc.Version
	s.saver.schedule(job)
	s.mu.Unlock()
	return true
}

// Flush waits until every queued write finished.
func (s *DocumentService) Flush(ctx context.Context) error {
	return s.saver.flush(ctx)
}

// Close checkpoints history, waits for pending writes and stops accepting
// new ones.
func (s *DocumentService) Close(ctx context.Context) error {
	s.Checkpoint()
	return s.saver.close(ctx)
}

// ── Reads ──────────────────────────────────────────────────

// DocumentID returns the id of the open document.
func (s *DocumentService) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ID
}

// Document returns a copy of the open document.
func (s *DocumentService) Document() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	doc.Tree = s.current.Load().Clone()
	return doc
}

// Tree returns a copy of the current content tree.
func (s *DocumentService) Tree() domain.ContentTree {
	return s.current.Load().Clone()
}

// Editor returns the current editor state.
func (s *DocumentService) Editor() domain.EditorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// List returns the stored documents.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	return s.store.List(ctx)
}

// Find fuzzy-searches section titles and block text.
func (s *DocumentService) Find(query string, limit int) []tree.Match {
	return tree.Search(*s.current.Load(), query, limit)
}

func (s *DocumentService) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *DocumentService) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// CreateBlock returns a default block of the given kind with a fresh id. The
// block is not inserted.
func (s *DocumentService) CreateBlock(kind domain.BlockType) (domain.Block, error) {
	return s.factory.Create(kind)
}

// BlockKinds lists the block types CreateBlock accepts.
func (s *DocumentService) BlockKinds() []domain.BlockType {
	return s.factory.Kinds()
}

// ── Editor state ───────────────────────────────────────────

// SelectSection selects a section and clears the block selection. An empty
// id clears both.
func (s *DocumentService) SelectSection(id string) error {
	s.mu.Lock()
	if id != "" {
		if _, err := tree.FindSection(*s.current.Load(), id); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.editor.SelectedSectionID = id
	s.editor.SelectedBlockID = ""
	editor := s.editor
	s.mu.Unlock()

	s.emitter.Emit(s.ctx, EventEditorChanged, editor)
	return nil
}

// SelectBlock selects a block and its owning section. An empty id clears the
// block selection only.
func (s *DocumentService) SelectBlock(id string) error {
	s.mu.Lock()
	if id != "" {
		_, owner, err := tree.FindBlock(*s.current.Load(), id)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.editor.SelectedSectionID = owner.ID
	}
	s.editor.SelectedBlockID = id
	editor := s.editor
	s.mu.Unlock()

	s.emitter.Emit(s.ctx, EventEditorChanged, editor)
	return nil
}

// SetEditing toggles the inline edit flag.
func (s *DocumentService) SetEditing(enabled bool) {
	s.mu.Lock()
	s.editor.IsEditing = enabled
	editor := s.editor
	s.mu.Unlock()

	s.emitter.Emit(s.ctx, EventEditorChanged, editor)
}

// SetZoomLevel sets the zoom, clamped to [MinZoom, MaxZoom], and returns the
// applied value.
func (s *DocumentService) SetZoomLevel(percent int) int {
	s.mu.Lock()
	s.editor.ZoomLevel = domain.ClampZoom(percent)
	editor := s.editor
	s.mu.Unlock()

	s.emitter.Emit(s.ctx, EventEditorChanged, editor)
	return editor.ZoomLevel
}

// ── Section operations ─────────────────────────────────────

// AddSection appends a section to the root or under parentID and selects it.
// An empty section id is generated. It returns the section id.
func (s *DocumentService) AddSection(section *domain.Section, parentID string) (string, error) {
	if section == nil {
		section = &domain.Section{}
	}
	ns := *section
	if ns.ID == "" {
		ns.ID = s.ids.NextID(ids.PrefixSection)
	}
	err := s.mutate("add_section", func(t domain.ContentTree) (domain.ContentTree, error) {
		return tree.AddSection(t, &ns, parentID)
	}, func(e *domain.EditorState) {
		e.SelectedSectionID = ns.ID
		e.SelectedBlockID = ""
	})
	if err != nil {
		return "", err
	}
	return ns.ID, nil
}

// UpdateSection applies a partial update to a section.
func (s *DocumentService) UpdateSection(id string, patch domain.SectionPatch) error {
	return s.mutate("update_section", func(t domain.ContentTree) (domain.ContentTree, error) {
		return tree.UpdateSection(t, id, patch)
	}, nil)
}

// DeleteSection removes a section and its subtree. Selections inside it are
// cleared.
func (s *DocumentService) DeleteSection(id string) error {
	return s.mutate("delete_section", func(t domain.ContentTree) (domain.ContentTree, error) {
		return tree.DeleteSection(t, id)
	}, nil)
}

// ReorderSections moves a top-level section; indices are clamped.
func (s *DocumentService) ReorderSections(from, to int) error {
	return s.mutate("reorder_sections", func(t domain.ContentTree) (domain.ContentTree, error) {
		return tree.ReorderSections(t, from, to)
	}, nil)
}

// ── Block operations ───────────────────────────────────────

// AddBlock inserts b into a section after afterBlockID, or at the end, and
// selects it. An empty block id is generated. It returns the block id.
func (s *DocumentService) AddBlock(sectionID string, b domain.Block, afterBlockID string) (string, error) {
	if b.ID == "" {
		b.ID = s.ids.NextID(ids.PrefixBlock)
	}
	b = b.Clone()
	err := s.mutate("add_block", func(t domain.ContentTree) (domain.ContentTree, error) {
		return tree.InsertBlock(t, sectionID, b, afterBlockID)
	}, func(e *domain.EditorState) {
		e.SelectedSectionID = sectionID
		e.SelectedBlockID = b.ID
	})
	if err != nil {
		return "", err
	}
	return b.ID, nil
}

// UpdateBlock merges patch into a block. sectionID may be empty.
func (s *DocumentService) UpdateBlock(sectionID, blockID string, patch domain.BlockPatch) error {
	return s.mutate("update_block", func(t domain.ContentTree) (domain.ContentTree, error) {
		return tree.UpdateBlock(t, sectionID, blockID, patch)
	}, nil)
}

// DeleteBlock removes a block. A selection of it is cleared.
func (s *DocumentService) DeleteBlock(sectionID, blockID string) error {
	return s.mutate("delete_block", func(t domain.ContentTree) (domain.ContentTree, error) {
		return tree.DeleteBlock(t, sectionID, blockID)
	}, nil)
}

// MoveBlock moves a block to toIndex of the destination section.
func (s *DocumentService) MoveBlock(fromSectionID, blockID, toSectionID string, toIndex int) error {
	return s.mutate("move_block", func(t domain.ContentTree) (domain.ContentTree, error) {
		return tree.MoveBlock(t, fromSectionID, blockID, toSectionID, toIndex)
	}, nil)
}

// DuplicateBlock inserts a deep copy right after a block and selects the
// copy. It returns the new block id.
func (s *DocumentService) DuplicateBlock(sectionID, blockID string) (string, error) {
	newID := s.ids.NextID(ids.PrefixBlock)
	err := s.mutate("duplicate_block", func(t domain.ContentTree) (domain.ContentTree, error) {
		return tree.DuplicateBlock(t, sectionID, blockID, newID)
	}, func(e *domain.EditorState) {
		e.SelectedSectionID = sectionID
		e.SelectedBlockID = newID
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

// ── History ────────────────────────────────────────────────

// Undo restores the tree before the last operation. It reports whether
// anything was undone.
func (s *DocumentService) Undo() bool {
	return s.travel("undo", (*history.Manager).Undo)
}

// Redo reapplies the last undone operation. It reports whether anything was
// redone.
func (s *DocumentService) Redo() bool {
	return s.travel("redo", (*history.Manager).Redo)
}

func (s *DocumentService) travel(direction string, step func(*history.Manager, domain.ContentTree) (domain.ContentTree, bool)) bool {
	s.mu.Lock()
	next, ok := step(s.history, *s.current.Load())
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.publishLocked(next)
	s.reconcileSelectionLocked()
	s.saver.schedule(s.nextSaveLocked(false))
	evt := s.changeEventLocked(direction)
	s.mu.Unlock()

	s.metrics.RecordHistory(direction)
	s.emitter.Emit(s.ctx, EventDocumentChanged, evt)
	return true
}

// ── internals ──────────────────────────────────────────────

// mutate runs one tree operation. The prior tree is recorded in history only
// when fn succeeds, so a failed operation leaves tree, history and selection
// untouched.
func (s *DocumentService) mutate(op string, fn func(domain.ContentTree) (domain.ContentTree, error), follow func(*domain.EditorState)) error {
	start := time.Now()

	s.mu.Lock()
	prev := *s.current.Load()
	next, err := fn(prev)
	if err != nil {
		s.mu.Unlock()
		s.observe(op, start, err)
		return err
	}
	s.history.Record(prev, op)
	s.publishLocked(next)
	if follow != nil {
		follow(&s.editor)
	}
	s.reconcileSelectionLocked()
	s.saver.schedule(s.nextSaveLocked(false))
	evt := s.changeEventLocked(op)
	s.mu.Unlock()

	s.emitter.Emit(s.ctx, EventDocumentChanged, evt)
	s.observe(op, start, nil)
	return nil
}

func (s *DocumentService) observe(op string, start time.Time, err error) {
	d := time.Since(start)
	s.metrics.RecordOperation(op, d, err)
	if errors.Is(err, domain.ErrSectionLocked) {
		// expected user-level rejection
		s.log.Debug().Str("op", op).Err(err).Msg("operation rejected")
		return
	}
	s.log.LogOperation(op, d, err)
}

func (s *DocumentService) publishLocked(t domain.ContentTree) {
	s.current.Store(&t)
	s.doc.Tree = t
	s.metrics.SetTreeSize(t.Counts())
}

// reconcileSelectionLocked clears selections of entities that no longer
// exist and points the section selection at the selected block's owner.
func (s *DocumentService) reconcileSelectionLocked() {
	t := *s.current.Load()
	if id := s.editor.SelectedBlockID; id != "" {
		if _, owner, err := tree.FindBlock(t, id); err != nil {
			s.editor.SelectedBlockID = ""
		} else {
			s.editor.SelectedSectionID = owner.ID
		}
	}
	if id := s.editor.SelectedSectionID; id != "" {
		if _, err := tree.FindSection(t, id); err != nil {
			s.editor.SelectedSectionID = ""
		}
	}
}

// nextSaveLocked bumps the version and captures a write of the document.
func (s *DocumentService) nextSaveLocked(withHistory bool) saveJob {
	s.doc.Version++
	s.doc.UpdatedAt = time.Now().UTC()
	job := saveJob{doc: s.doc, withHistory: withHistory && s.hstore != nil}
	if job.withHistory {
		job.past, job.future = s.history.Entries()
	}
	return job
}

func (s *DocumentService) changeEventLocked(op string) ChangeEvent {
	return ChangeEvent{
		DocumentID: s.doc.ID,
		Operation:  op,
		Version:    s.doc.Version,
		CanUndo:    s.history.CanUndo(),
		CanRedo:    s.history.CanRedo(),
		Editor:     s.editor,
	}
}

func (s *DocumentService) infoLocked() domain.DocumentInfo {
	return domain.DocumentInfo{ID: s.doc.ID, Title: s.doc.Title, Version: s.doc.Version, UpdatedAt: s.doc.UpdatedAt}
}
