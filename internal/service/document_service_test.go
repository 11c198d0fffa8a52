package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportstudio/internal/domain"
	"reportstudio/internal/ids"
	"reportstudio/internal/service"
	"reportstudio/internal/storage"
)

// memStore is an in-memory DocumentStore and HistoryStore. Put blocks while
// hold is open and fails with failPut when set.
type memStore struct {
	mu      sync.Mutex
	docs    map[string]domain.Document
	past    map[string][]domain.HistoryEntry
	future  map[string][]domain.HistoryEntry
	puts    int
	failPut error
	hold    chan struct{}
}

func newMemStore() *memStore {
	return &memStore{
		docs:   map[string]domain.Document{},
		past:   map[string][]domain.HistoryEntry{},
		future: map[string][]domain.HistoryEntry{},
	}
}

func (m *memStore) Put(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	hold := m.hold
	m.mu.Unlock()
	if hold != nil {
		<-hold
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.failPut != nil {
		return m.failPut
	}
	cp := *doc
	cp.Tree = doc.Tree.Clone()
	m.docs[doc.ID] = cp
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	doc.Tree = doc.Tree.Clone()
	return &doc, nil
}

func (m *memStore) List(context.Context) ([]domain.DocumentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.DocumentInfo, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, domain.DocumentInfo{ID: d.ID, Title: d.Title, Version: d.Version, UpdatedAt: d.UpdatedAt})
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memStore) SaveHistory(_ context.Context, docID string, past, future []domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.past[docID] = past
	m.future[docID] = future
	return nil
}

func (m *memStore) LoadHistory(_ context.Context, docID string) ([]domain.HistoryEntry, []domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.past[docID], m.future[docID], nil
}

func (m *memStore) stored(id string) (domain.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	return d, ok
}

func (m *memStore) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

type harness struct {
	svc     *service.DocumentService
	store   *memStore
	emitter *service.MockEmitter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	emitter := &service.MockEmitter{}
	svc := service.NewDocumentService(service.Deps{
		Store:        store,
		History:      store,
		Emitter:      emitter,
		IDs:          ids.NewSequence(),
		HistoryDepth: 50,
	})
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return &harness{svc: svc, store: store, emitter: emitter}
}

func paragraph(text string) domain.Block {
	return domain.Block{Content: &domain.Paragraph{Content: text}}
}

func section(id, title string) *domain.Section {
	return &domain.Section{ID: id, Title: title, Level: 1, Blocks: []domain.Block{}, Children: []*domain.Section{}}
}

func sectionBlocks(t *testing.T, svc *service.DocumentService, id string) []domain.Block {
	t.Helper()
	for _, s := range svc.Tree().Sections {
		if s.ID == id {
			return s.Blocks
		}
	}
	t.Fatalf("section %s not found", id)
	return nil
}

func rootOrder(svc *service.DocumentService) []string {
	var out []string
	for _, s := range svc.Tree().Sections {
		out = append(out, s.ID)
	}
	return out
}

// ─────────────────────────────────────────────────────────────
// Scenarios
// ─────────────────────────────────────────────────────────────

func TestUndoRedoOfAddedParagraph(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.AddSection(&domain.Section{ID: "s1", Title: "Intro", Level: 1}, "")
	require.NoError(t, err)
	_, err = h.svc.AddBlock("s1", paragraph("hello"), "")
	require.NoError(t, err)

	require.True(t, h.svc.Undo())
	assert.Equal(t, []string{"s1"}, rootOrder(h.svc))
	assert.Empty(t, sectionBlocks(t, h.svc, "s1"))

	require.True(t, h.svc.Redo())
	blocks := sectionBlocks(t, h.svc, "s1")
	require.Len(t, blocks, 1)
	assert.Equal(t, domain.BlockTypeParagraph, blocks[0].Type())
	assert.Equal(t, "hello", blocks[0].Text())
}

func TestReorderTwoSections(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err)
	_, err = h.svc.AddSection(section("s2", "Two"), "")
	require.NoError(t, err)

	require.NoError(t, h.svc.ReorderSections(0, 1))
	assert.Equal(t, []string{"s2", "s1"}, rootOrder(h.svc))
}

func TestDuplicatePlacesCloneAfterOriginal(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err)
	a, err := h.svc.AddBlock("s1", paragraph("original"), "")
	require.NoError(t, err)

	clone, err := h.svc.DuplicateBlock("s1", a)
	require.NoError(t, err)

	blocks := sectionBlocks(t, h.svc, "s1")
	require.Len(t, blocks, 2)
	assert.Equal(t, a, blocks[0].ID)
	assert.Equal(t, clone, blocks[1].ID)
	assert.NotEqual(t, blocks[0].ID, blocks[1].ID)
	assert.Equal(t, blocks[0].Type(), blocks[1].Type())
	assert.Equal(t, blocks[0].Content, blocks[1].Content)

	ed := h.svc.Editor()
	assert.Equal(t, clone, ed.SelectedBlockID, "selection follows the clone")
	assert.Equal(t, "s1", ed.SelectedSectionID)

	// Non-aliasing through the facade.
	require.NoError(t, h.svc.UpdateBlock("s1", clone, domain.BlockPatch{"content": "changed"}))
	blocks = sectionBlocks(t, h.svc, "s1")
	assert.Equal(t, "original", blocks[0].Text())
	assert.Equal(t, "changed", blocks[1].Text())
}

// ─────────────────────────────────────────────────────────────
// Properties
// ─────────────────────────────────────────────────────────────

func TestGeneratedIDsAreUnique(t *testing.T) {
	store := newMemStore()
	svc := service.NewDocumentService(service.Deps{Store: store}) // uuid generator
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		sid, err := svc.AddSection(&domain.Section{Title: "s"}, "")
		require.NoError(t, err)
		require.False(t, seen[sid], "duplicate id %s", sid)
		seen[sid] = true

		b, err := svc.CreateBlock(domain.BlockTypeKPICard)
		require.NoError(t, err)
		require.False(t, seen[b.ID], "duplicate id %s", b.ID)
		seen[b.ID] = true

		bid, err := svc.AddBlock(sid, b, "")
		require.NoError(t, err)
		assert.Equal(t, b.ID, bid, "a provided id is kept")
	}
}

func TestUndoRedoInverseForEveryOperation(t *testing.T) {
	ops := map[string]func(svc *service.DocumentService) error{
		"add_section": func(svc *service.DocumentService) error {
			_, err := svc.AddSection(section("s3", "Three"), "s1")
			return err
		},
		"update_section": func(svc *service.DocumentService) error {
			title := "Renamed"
			return svc.UpdateSection("s1", domain.SectionPatch{Title: &title})
		},
		"delete_section": func(svc *service.DocumentService) error { return svc.DeleteSection("s2") },
		"reorder":        func(svc *service.DocumentService) error { return svc.ReorderSections(1, 0) },
		"add_block": func(svc *service.DocumentService) error {
			_, err := svc.AddBlock("s2", paragraph("new"), "")
			return err
		},
		"update_block": func(svc *service.DocumentService) error {
			return svc.UpdateBlock("", "b1", domain.BlockPatch{"content": "edited"})
		},
		"delete_block": func(svc *service.DocumentService) error { return svc.DeleteBlock("s1", "b1") },
		"move_block":   func(svc *service.DocumentService) error { return svc.MoveBlock("s1", "b1", "s2", 0) },
		"duplicate_block": func(svc *service.DocumentService) error {
			_, err := svc.DuplicateBlock("s1", "b2")
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.AddSection(section("s1", "One"), "")
			require.NoError(t, err)
			_, err = h.svc.AddSection(section("s2", "Two"), "")
			require.NoError(t, err)
			b1 := paragraph("first")
			b1.ID = "b1"
			b2 := paragraph("second")
			b2.ID = "b2"
			_, err = h.svc.AddBlock("s1", b1, "")
			require.NoError(t, err)
			_, err = h.svc.AddBlock("s1", b2, "")
			require.NoError(t, err)

			before := h.svc.Tree()
			require.NoError(t, op(h.svc))
			after := h.svc.Tree()

			require.True(t, h.svc.Undo())
			assert.Equal(t, before, h.svc.Tree())
			require.True(t, h.svc.Redo())
			assert.Equal(t, after, h.svc.Tree())
		})
	}
}

func TestLockedSectionLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	locked := section("s1", "Locked")
	locked.IsLocked = true
	locked.Blocks = []domain.Block{{ID: "b1", Content: &domain.Paragraph{Content: "fixed"}}}
	_, err := h.svc.AddSection(locked, "")
	require.NoError(t, err)
	_, err = h.svc.AddSection(section("s2", "Open"), "")
	require.NoError(t, err)
	require.NoError(t, h.svc.SelectBlock("b1"))

	before := h.svc.Tree()
	editor := h.svc.Editor()
	changes := len(h.emitter.Named(service.EventDocumentChanged))

	attempts := []error{
		func() error { _, err := h.svc.AddBlock("s1", paragraph("x"), ""); return err }(),
		h.svc.UpdateBlock("s1", "b1", domain.BlockPatch{"content": "y"}),
		h.svc.DeleteBlock("s1", "b1"),
		h.svc.MoveBlock("s1", "b1", "s2", 0),
		func() error { _, err := h.svc.DuplicateBlock("s1", "b1"); return err }(),
	}
	for i, err := range attempts {
		assert.ErrorIs(t, err, domain.ErrSectionLocked, "attempt %d", i)
	}

	assert.Equal(t, before, h.svc.Tree())
	assert.Equal(t, editor, h.svc.Editor())
	assert.Len(t, h.emitter.Named(service.EventDocumentChanged), changes, "failed operations notify nobody")

	// Undo only reverts the two successful section additions.
	require.True(t, h.svc.Undo())
	require.True(t, h.svc.Undo())
	assert.False(t, h.svc.CanUndo())
}

func TestFailedOperationDoesNotRecordHistory(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.svc.CanUndo())

	assert.ErrorIs(t, h.svc.DeleteSection("missing"), domain.ErrSectionNotFound)
	assert.ErrorIs(t, h.svc.UpdateBlock("", "missing", domain.BlockPatch{"content": "x"}), domain.ErrBlockNotFound)
	_, err := h.svc.CreateBlock("video")
	assert.ErrorIs(t, err, domain.ErrUnsupportedBlockType)

	assert.False(t, h.svc.CanUndo())
	assert.False(t, h.svc.Undo(), "undo on empty history is a no-op")
	assert.False(t, h.svc.Redo())
}

func TestMoveBlockOrderPreservation(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSection(section("src", "Source"), "")
	require.NoError(t, err)
	_, err = h.svc.AddSection(section("dst", "Destination"), "")
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		b := paragraph(id)
		b.ID = id
		_, err := h.svc.AddBlock("src", b, "")
		require.NoError(t, err)
	}
	for _, id := range []string{"x", "y"} {
		b := paragraph(id)
		b.ID = id
		_, err := h.svc.AddBlock("dst", b, "")
		require.NoError(t, err)
	}

	require.NoError(t, h.svc.MoveBlock("src", "b", "dst", 99))

	ids := func(blocks []domain.Block) []string {
		out := make([]string, 0, len(blocks))
		for _, b := range blocks {
			out = append(out, b.ID)
		}
		return out
	}
	assert.Equal(t, []string{"a", "c"}, ids(sectionBlocks(t, h.svc, "src")))
	assert.Equal(t, []string{"x", "y", "b"}, ids(sectionBlocks(t, h.svc, "dst")), "index is clamped to the length")
}

func TestSelectionFollowsMutations(t *testing.T) {
	h := newHarness(t)
	sid, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err)
	assert.Equal(t, sid, h.svc.Editor().SelectedSectionID, "new section is selected")

	bid, err := h.svc.AddBlock("s1", paragraph("p"), "")
	require.NoError(t, err)
	assert.Equal(t, bid, h.svc.Editor().SelectedBlockID, "new block is selected")

	require.NoError(t, h.svc.DeleteBlock("s1", bid))
	assert.Empty(t, h.svc.Editor().SelectedBlockID, "deleted block is deselected")
	assert.Equal(t, "s1", h.svc.Editor().SelectedSectionID)

	require.True(t, h.svc.Undo())
	assert.Empty(t, h.svc.Editor().SelectedBlockID, "undo does not restore selection")

	require.NoError(t, h.svc.SelectBlock(bid))
	require.NoError(t, h.svc.DeleteSection("s1"))
	ed := h.svc.Editor()
	assert.Empty(t, ed.SelectedSectionID)
	assert.Empty(t, ed.SelectedBlockID, "blocks inside a deleted section are deselected")
}

func TestEditorStateOperations(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err)
	bid, err := h.svc.AddBlock("s1", paragraph("p"), "")
	require.NoError(t, err)

	require.NoError(t, h.svc.SelectSection(""))
	assert.Equal(t, domain.EditorState{ZoomLevel: domain.DefaultZoom}, h.svc.Editor())

	require.NoError(t, h.svc.SelectBlock(bid))
	assert.Equal(t, "s1", h.svc.Editor().SelectedSectionID, "selecting a block selects its section")
	require.NoError(t, h.svc.SelectSection("s1"))
	assert.Empty(t, h.svc.Editor().SelectedBlockID, "selecting a section clears the block")

	assert.ErrorIs(t, h.svc.SelectSection("nope"), domain.ErrSectionNotFound)
	assert.ErrorIs(t, h.svc.SelectBlock("nope"), domain.ErrBlockNotFound)

	h.svc.SetEditing(true)
	assert.True(t, h.svc.Editor().IsEditing)

	assert.Equal(t, domain.MaxZoom, h.svc.SetZoomLevel(500))
	assert.Equal(t, domain.MinZoom, h.svc.SetZoomLevel(10))
	assert.Equal(t, 125, h.svc.SetZoomLevel(125))

	assert.NotEmpty(t, h.emitter.Named(service.EventEditorChanged))
	assert.False(t, h.svc.CanRedo())
}

func TestTreeReturnsIsolatedCopy(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err)

	got := h.svc.Tree()
	got.Sections[0].Title = "mutated"
	assert.Equal(t, "One", h.svc.Tree().Sections[0].Title)
}

func TestFind(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSection(section("s1", "Occupancy"), "")
	require.NoError(t, err)
	_, err = h.svc.AddBlock("s1", paragraph("Vacancy fell in the second quarter"), "")
	require.NoError(t, err)

	matches := h.svc.Find("vacancy", 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "s1", matches[0].SectionID)
}

// ─────────────────────────────────────────────────────────────
// Persistence
// ─────────────────────────────────────────────────────────────

func TestMutationsArePersisted(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err)
	require.NoError(t, h.svc.Flush(context.Background()))

	doc := h.svc.Document()
	stored, ok := h.store.stored(doc.ID)
	require.True(t, ok)
	assert.Equal(t, doc.Version, stored.Version)
	assert.Equal(t, doc.Tree, stored.Tree)
	assert.NotEmpty(t, h.emitter.Named(service.EventDocumentSaved))

	changed := h.emitter.Named(service.EventDocumentChanged)
	require.NotEmpty(t, changed)
	evt := changed[len(changed)-1].Data.(service.ChangeEvent)
	assert.Equal(t, "add_section", evt.Operation)
	assert.True(t, evt.CanUndo)
}

func TestSaverCoalescesToLatest(t *testing.T) {
	h := newHarness(t)
	hold := make(chan struct{})
	h.store.mu.Lock()
	h.store.hold = hold
	h.store.mu.Unlock()

	for i := 0; i < 5; i++ {
		_, err := h.svc.AddSection(&domain.Section{Title: "s"}, "")
		require.NoError(t, err)
	}
	close(hold)
	require.NoError(t, h.svc.Flush(context.Background()))

	doc := h.svc.Document()
	stored, ok := h.store.stored(doc.ID)
	require.True(t, ok)
	assert.Equal(t, doc.Version, stored.Version, "the newest version wins")
	assert.LessOrEqual(t, h.store.putCount(), 2, "queued writes collapse into one")
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	h := newHarness(t)
	h.store.mu.Lock()
	h.store.failPut = errors.New("disk full")
	h.store.mu.Unlock()

	_, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err, "persistence is not awaited")
	require.NoError(t, h.svc.Flush(context.Background()))

	failed := h.emitter.Named(service.EventSaveFailed)
	require.NotEmpty(t, failed)
	assert.Equal(t, "disk full", failed[0].Data.(service.SaveFailedEvent).Error)
	assert.Equal(t, []string{"s1"}, rootOrder(h.svc))
	assert.True(t, h.svc.CanUndo())
}

func TestCheckpointPersistsHistory(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err)

	assert.True(t, h.svc.Checkpoint())
	assert.False(t, h.svc.Checkpoint(), "nothing changed since the last checkpoint")
	require.NoError(t, h.svc.Flush(context.Background()))

	past, future, err := h.store.LoadHistory(context.Background(), h.svc.DocumentID())
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.Equal(t, "add_section", past[0].Label)
	assert.Empty(t, future)
}

func TestOpenRestoresDocumentAndHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err)
	_, err = h.svc.AddSection(section("s2", "Two"), "")
	require.NoError(t, err)
	id := h.svc.DocumentID()
	require.NoError(t, h.svc.Close(ctx))

	other := service.NewDocumentService(service.Deps{Store: h.store, History: h.store, IDs: ids.NewSequence()})
	t.Cleanup(func() { _ = other.Close(ctx) })

	info, err := other.Open(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, info.ID)
	assert.Equal(t, []string{"s1", "s2"}, rootOrder(other))
	require.True(t, other.CanUndo())
	require.True(t, other.Undo())
	assert.Equal(t, []string{"s1"}, rootOrder(other))

	_, err = other.Open(ctx, "report_missing")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestNewStartsFreshDocument(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err)
	first := h.svc.DocumentID()

	info, err := h.svc.New(context.Background(), "Q3 report")
	require.NoError(t, err)
	assert.NotEqual(t, first, info.ID)
	assert.Equal(t, "Q3 report", info.Title)
	assert.Empty(t, h.svc.Tree().Sections)
	assert.False(t, h.svc.CanUndo())

	require.NoError(t, h.svc.Flush(context.Background()))
	list, err := h.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReloadAppliesNewerStoredVersions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err)
	require.NoError(t, h.svc.Flush(ctx))

	reloaded, err := h.svc.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded, "own writes are not reloaded")

	doc := h.svc.Document()
	doc.Version += 10
	doc.Tree = domain.ContentTree{Sections: []*domain.Section{section("ext", "External")}}
	require.NoError(t, h.store.Put(ctx, &doc))

	reloaded, err = h.svc.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Equal(t, []string{"ext"}, rootOrder(h.svc))
	assert.False(t, h.svc.CanUndo(), "history is dropped on reload")
	assert.Empty(t, h.svc.Editor().SelectedSectionID, "stale selection is cleared")
	assert.NotEmpty(t, h.emitter.Named(service.EventDocumentReloaded))
}

func TestReloadPicksUpHandEditsWithoutVersionBump(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewFileStore(t.TempDir(), 10)
	require.NoError(t, err)
	svc := service.NewDocumentService(service.Deps{Store: store, History: store, IDs: ids.NewSequence()})
	t.Cleanup(func() { _ = svc.Close(ctx) })

	_, err = svc.New(ctx, "Quarterly")
	require.NoError(t, err)
	_, err = svc.AddSection(section("s1", "Intro"), "")
	require.NoError(t, err)
	require.NoError(t, svc.Flush(ctx))

	reloaded, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded, "own writes are not reloaded")

	id := svc.DocumentID()
	before := svc.Document().Version
	path := store.Path(id)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	edited := strings.Replace(string(raw), `"Intro"`, `"Edited outside"`, 1)
	require.NotEqual(t, string(raw), edited)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	reloaded, err = svc.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Equal(t, "Edited outside", svc.Tree().Sections[0].Title)
	assert.GreaterOrEqual(t, svc.Document().Version, before, "versions never go back")

	reloaded, err = svc.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded)

	// The next save builds on the edit instead of overwriting it.
	_, err = svc.AddSection(section("s2", "Next"), "")
	require.NoError(t, err)
	require.NoError(t, svc.Flush(ctx))
	stored, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, stored.Tree.Sections, 2)
	assert.Equal(t, "Edited outside", stored.Tree.Sections[0].Title)
	assert.Greater(t, stored.Version, before)
}

// ─────────────────────────────────────────────────────────────
// Autosaver and watcher
// ─────────────────────────────────────────────────────────────

func TestAutosaver(t *testing.T) {
	h := newHarness(t)
	a := service.NewAutosaver(h.svc, nil)

	assert.Error(t, a.Start("not a schedule"))
	require.NoError(t, a.Start(""))

	_, err := h.svc.AddSection(section("s1", "One"), "")
	require.NoError(t, err)

	require.NoError(t, a.Start("@every 1s"))
	defer a.Stop()
	require.Eventually(t, func() bool { return a.Runs() > 0 }, 5*time.Second, 50*time.Millisecond)
	require.NoError(t, h.svc.Flush(context.Background()))

	past, _, err := h.store.LoadHistory(context.Background(), h.svc.DocumentID())
	require.NoError(t, err)
	assert.Len(t, past, 1)
}

func TestWatcherReloadsExternalChanges(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "reports")
	store, err := storage.NewFileStore(dir, 10)
	require.NoError(t, err)

	svc := service.NewDocumentService(service.Deps{Store: store, History: store, IDs: ids.NewSequence()})
	t.Cleanup(func() { _ = svc.Close(ctx) })
	_, err = svc.New(ctx, "Watched")
	require.NoError(t, err)
	require.NoError(t, svc.Flush(ctx))

	w := service.NewWatcher(svc, store, nil, 20*time.Millisecond)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// Another process writes a newer version.
	external, err := storage.NewFileStore(dir, 10)
	require.NoError(t, err)
	doc := svc.Document()
	doc.Version += 5
	doc.Tree = domain.ContentTree{Sections: []*domain.Section{section("ext", "From elsewhere")}}
	require.NoError(t, external.Put(ctx, &doc))

	require.Eventually(t, func() bool {
		return svc.Document().Version == doc.Version
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"ext"}, rootOrder(svc))
	assert.Equal(t, 1, w.Reloads())

	w.Stop()
	w.Stop()
}
