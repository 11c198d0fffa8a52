package tree_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportstudio/internal/domain"
	"reportstudio/internal/tree"
)

func para(id, text string) domain.Block {
	return domain.Block{ID: id, Content: &domain.Paragraph{Content: text}}
}

// fixture:
//
//	s1 [a b c]
//	s2 [d]
//	  s2a (locked) [e]
func fixture() domain.ContentTree {
	return domain.ContentTree{Sections: []*domain.Section{
		{
			ID: "s1", Title: "Overview", Level: 1, Status: domain.StatusManual,
			Blocks:   []domain.Block{para("a", "alpha"), para("b", "bravo"), para("c", "charlie")},
			Children: []*domain.Section{},
		},
		{
			ID: "s2", Title: "Tenants", Level: 1, Status: domain.StatusGenerated,
			Blocks: []domain.Block{para("d", "delta")},
			Children: []*domain.Section{{
				ID: "s2a", Title: "Anchors", Level: 2, Status: domain.StatusManual, IsLocked: true,
				Blocks:   []domain.Block{para("e", "echo")},
				Children: []*domain.Section{},
			}},
		},
	}}
}

func snapshot(t *testing.T, tr domain.ContentTree) string {
	t.Helper()
	raw, err := json.Marshal(tr)
	require.NoError(t, err)
	return string(raw)
}

func blockIDs(t *testing.T, tr domain.ContentTree, sectionID string) []string {
	t.Helper()
	s, err := tree.FindSection(tr, sectionID)
	require.NoError(t, err)
	ids := make([]string, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		ids = append(ids, b.ID)
	}
	return ids
}

func rootIDs(tr domain.ContentTree) []string {
	ids := make([]string, 0, len(tr.Sections))
	for _, s := range tr.Sections {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestFindAndWalk(t *testing.T) {
	tr := fixture()

	s, err := tree.FindSection(tr, "s2a")
	require.NoError(t, err)
	assert.Equal(t, "Anchors", s.Title)

	b, owner, err := tree.FindBlock(tr, "e")
	require.NoError(t, err)
	assert.Equal(t, "echo", b.Text())
	assert.Equal(t, "s2a", owner.ID)

	_, err = tree.FindSection(tr, "nope")
	assert.ErrorIs(t, err, domain.ErrSectionNotFound)
	_, _, err = tree.FindBlock(tr, "nope")
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)

	var order []string
	var depths []int
	tree.Walk(tr, func(s *domain.Section, depth int) bool {
		order = append(order, s.ID)
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []string{"s1", "s2", "s2a"}, order)
	assert.Equal(t, []int{0, 0, 1}, depths)

	assert.True(t, tree.Contains(tr, "d"))
	assert.True(t, tree.Contains(tr, "s2a"))
	assert.False(t, tree.Contains(tr, "zz"))
}

func TestInsertBlock(t *testing.T) {
	tr := fixture()
	before := snapshot(t, tr)

	next, err := tree.InsertBlock(tr, "s1", para("x", "x-ray"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "x"}, blockIDs(t, next, "s1"))

	next, err = tree.InsertBlock(tr, "s1", para("x", "x-ray"), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "x", "b", "c"}, blockIDs(t, next, "s1"))

	assert.Equal(t, before, snapshot(t, tr), "input tree must not change")
	assert.Same(t, tr.Sections[1], next.Sections[1], "untouched sections are shared")
	assert.NotSame(t, tr.Sections[0], next.Sections[0])
}

func TestInsertBlock_Errors(t *testing.T) {
	tr := fixture()

	_, err := tree.InsertBlock(tr, "missing", para("x", ""), "")
	assert.ErrorIs(t, err, domain.ErrSectionNotFound)

	_, err = tree.InsertBlock(tr, "s1", para("x", ""), "zz")
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)

	_, err = tree.InsertBlock(tr, "s1", para("d", ""), "")
	assert.ErrorIs(t, err, domain.ErrDuplicateID)

	_, err = tree.InsertBlock(tr, "s1", para("", ""), "")
	assert.ErrorIs(t, err, domain.ErrMissingID)

	_, err = tree.InsertBlock(tr, "s2a", para("x", ""), "")
	assert.ErrorIs(t, err, domain.ErrSectionLocked)
}

func TestUpdateBlock(t *testing.T) {
	tr := fixture()
	before := snapshot(t, tr)

	next, err := tree.UpdateBlock(tr, "", "d", domain.BlockPatch{"content": "DELTA"})
	require.NoError(t, err)

	b, owner, err := tree.FindBlock(next, "d")
	require.NoError(t, err)
	assert.Equal(t, "DELTA", b.Text())
	assert.Equal(t, domain.StatusEdited, owner.Status, "editing a generated section marks it edited")
	assert.Equal(t, before, snapshot(t, tr))

	_, err = tree.UpdateBlock(tr, "s1", "d", domain.BlockPatch{"content": "x"})
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)

	_, err = tree.UpdateBlock(tr, "", "zz", domain.BlockPatch{"content": "x"})
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)

	_, err = tree.UpdateBlock(tr, "s1", "a", domain.BlockPatch{"type": "quote"})
	assert.ErrorIs(t, err, domain.ErrImmutableField)

	_, err = tree.UpdateBlock(tr, "s1", "a", domain.BlockPatch{"bogus": 1})
	assert.ErrorIs(t, err, domain.ErrInvalidPatch)

	_, err = tree.UpdateBlock(tr, "", "e", domain.BlockPatch{"content": "x"})
	assert.ErrorIs(t, err, domain.ErrSectionLocked)
}

func TestDeleteBlock(t *testing.T) {
	tr := fixture()

	next, err := tree.DeleteBlock(tr, "s1", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, blockIDs(t, next, "s1"))
	assert.Equal(t, []string{"a", "b", "c"}, blockIDs(t, tr, "s1"))

	_, err = tree.DeleteBlock(tr, "s1", "d")
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)
}

func TestDuplicateBlock_PlacementAndNonAliasing(t *testing.T) {
	chart := domain.Block{ID: "k", Content: &domain.Chart{
		ChartType: domain.ChartLine,
		Data: domain.ChartData{
			Labels:   []string{"Q1", "Q2"},
			Datasets: []domain.ChartDataset{{Label: "Footfall", Data: []float64{10, 20}}},
		},
	}}
	tr, err := tree.InsertBlock(fixture(), "s1", chart, "a")
	require.NoError(t, err)

	next, err := tree.DuplicateBlock(tr, "s1", "k", "k2")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "k", "k2", "b", "c"}, blockIDs(t, next, "s1"))

	orig, _, _ := tree.FindBlock(next, "k")
	clone, _, _ := tree.FindBlock(next, "k2")
	assert.Equal(t, orig.Type(), clone.Type())

	clone.Content.(*domain.Chart).Data.Datasets[0].Data[0] = 999
	clone.Content.(*domain.Chart).Data.Labels[0] = "changed"
	assert.Equal(t, 10.0, orig.Content.(*domain.Chart).Data.Datasets[0].Data[0])
	assert.Equal(t, "Q1", orig.Content.(*domain.Chart).Data.Labels[0])

	_, err = tree.DuplicateBlock(tr, "s1", "k", "a")
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
	_, err = tree.DuplicateBlock(tr, "s2a", "e", "e2")
	assert.ErrorIs(t, err, domain.ErrSectionLocked)
}

func TestMoveBlock_SameSection(t *testing.T) {
	tr := fixture()

	cases := []struct {
		name    string
		toIndex int
		want    []string
	}{
		{"to front", 0, []string{"c", "a", "b"}},
		{"to middle", 1, []string{"a", "c", "b"}},
		{"past end clamps", 99, []string{"a", "b", "c"}},
		{"negative clamps", -5, []string{"c", "a", "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := tree.MoveBlock(tr, "s1", "c", "s1", tc.toIndex)
			require.NoError(t, err)
			assert.Equal(t, tc.want, blockIDs(t, next, "s1"))
		})
	}
}

func TestMoveBlock_AcrossSections(t *testing.T) {
	tr := fixture()
	before := snapshot(t, tr)

	next, err := tree.MoveBlock(tr, "s1", "b", "s2", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, blockIDs(t, next, "s1"))
	assert.Equal(t, []string{"b", "d"}, blockIDs(t, next, "s2"))

	next, err = tree.MoveBlock(tr, "s1", "b", "s2", 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b"}, blockIDs(t, next, "s2"))

	assert.Equal(t, before, snapshot(t, tr))
}

func TestMoveBlock_Errors(t *testing.T) {
	tr := fixture()
	before := snapshot(t, tr)

	_, err := tree.MoveBlock(tr, "s1", "a", "s2a", 0)
	assert.ErrorIs(t, err, domain.ErrSectionLocked)
	_, err = tree.MoveBlock(tr, "s2a", "e", "s1", 0)
	assert.ErrorIs(t, err, domain.ErrSectionLocked)
	_, err = tree.MoveBlock(tr, "s1", "d", "s2", 0)
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)
	_, err = tree.MoveBlock(tr, "s1", "a", "zz", 0)
	assert.ErrorIs(t, err, domain.ErrSectionNotFound)

	assert.Equal(t, before, snapshot(t, tr))
}

func TestLockedSectionRejectsEveryBlockMutation(t *testing.T) {
	tr := fixture()
	before := snapshot(t, tr)

	ops := map[string]func() (domain.ContentTree, error){
		"insert":    func() (domain.ContentTree, error) { return tree.InsertBlock(tr, "s2a", para("n", ""), "") },
		"update":    func() (domain.ContentTree, error) { return tree.UpdateBlock(tr, "s2a", "e", domain.BlockPatch{"content": "x"}) },
		"delete":    func() (domain.ContentTree, error) { return tree.DeleteBlock(tr, "s2a", "e") },
		"duplicate": func() (domain.ContentTree, error) { return tree.DuplicateBlock(tr, "s2a", "e", "n") },
		"move out":  func() (domain.ContentTree, error) { return tree.MoveBlock(tr, "s2a", "e", "s1", 0) },
		"move in":   func() (domain.ContentTree, error) { return tree.MoveBlock(tr, "s1", "a", "s2a", 0) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			_, err := op()
			assert.ErrorIs(t, err, domain.ErrSectionLocked)
			assert.Equal(t, before, snapshot(t, tr))
		})
	}
}

func TestAddSection(t *testing.T) {
	var tr domain.ContentTree

	tr, err := tree.AddSection(tr, &domain.Section{ID: "s1", Title: "Intro"}, "")
	require.NoError(t, err)
	tr, err = tree.AddSection(tr, &domain.Section{ID: "s1a", Title: "Detail"}, "s1")
	require.NoError(t, err)
	tr, err = tree.AddSection(tr, &domain.Section{ID: "deep", Level: 9}, "s1a")
	require.NoError(t, err)

	s1, _ := tree.FindSection(tr, "s1")
	assert.Equal(t, 1, s1.Level)
	assert.Equal(t, domain.StatusManual, s1.Status)
	assert.NotNil(t, s1.Blocks)

	s1a, _ := tree.FindSection(tr, "s1a")
	assert.Equal(t, 2, s1a.Level)

	deep, _ := tree.FindSection(tr, "deep")
	assert.Equal(t, domain.MaxSectionLevel, deep.Level)

	_, err = tree.AddSection(tr, &domain.Section{ID: "s1"}, "")
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
	_, err = tree.AddSection(tr, &domain.Section{ID: "x"}, "zz")
	assert.ErrorIs(t, err, domain.ErrSectionNotFound)
	_, err = tree.AddSection(tr, &domain.Section{}, "")
	assert.ErrorIs(t, err, domain.ErrMissingID)
}

func TestAddSection_CopiesInput(t *testing.T) {
	in := &domain.Section{ID: "s1", Title: "Intro", Blocks: []domain.Block{para("p", "hi")}}
	tr, err := tree.AddSection(domain.ContentTree{}, in, "")
	require.NoError(t, err)

	in.Title = "changed"
	in.Blocks[0].Content.(*domain.Paragraph).Content = "changed"

	s, _ := tree.FindSection(tr, "s1")
	assert.Equal(t, "Intro", s.Title)
	assert.Equal(t, "hi", s.Blocks[0].Text())
}

func TestUpdateSection(t *testing.T) {
	tr := fixture()
	title := "Tenant mix"
	unlock := false

	next, err := tree.UpdateSection(tr, "s2", domain.SectionPatch{Title: &title})
	require.NoError(t, err)
	s2, _ := tree.FindSection(next, "s2")
	assert.Equal(t, "Tenant mix", s2.Title)
	assert.Equal(t, domain.StatusEdited, s2.Status)
	assert.Len(t, s2.Children, 1)

	next, err = tree.UpdateSection(tr, "s2a", domain.SectionPatch{IsLocked: &unlock})
	require.NoError(t, err, "locked sections can be unlocked")
	s2a, _ := tree.FindSection(next, "s2a")
	assert.False(t, s2a.IsLocked)

	_, err = tree.UpdateSection(tr, "zz", domain.SectionPatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrSectionNotFound)
}

func TestDeleteSection(t *testing.T) {
	tr := fixture()

	next, err := tree.DeleteSection(tr, "s2")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, rootIDs(next))
	assert.False(t, tree.Contains(next, "s2a"), "subtree is removed")
	assert.False(t, tree.Contains(next, "e"))

	next, err = tree.DeleteSection(tr, "s2a")
	require.NoError(t, err)
	s2, _ := tree.FindSection(next, "s2")
	assert.Empty(t, s2.Children)
	assert.Len(t, tr.Sections[1].Children, 1)

	_, err = tree.DeleteSection(tr, "zz")
	assert.ErrorIs(t, err, domain.ErrSectionNotFound)
}

func TestReorderSections(t *testing.T) {
	tr, _ := tree.AddSection(domain.ContentTree{}, &domain.Section{ID: "s1"}, "")
	tr, _ = tree.AddSection(tr, &domain.Section{ID: "s2"}, "")
	tr, _ = tree.AddSection(tr, &domain.Section{ID: "s3"}, "")

	next, err := tree.ReorderSections(tr, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1", "s3"}, rootIDs(next))

	next, err = tree.ReorderSections(tr, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "s1", "s2"}, rootIDs(next))

	next, err = tree.ReorderSections(tr, -3, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s3", "s1"}, rootIDs(next))

	assert.Equal(t, []string{"s1", "s2", "s3"}, rootIDs(tr))

	_, err = tree.ReorderSections(domain.ContentTree{}, 0, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)
}

func TestValidate(t *testing.T) {
	require.NoError(t, tree.Validate(fixture()))

	dup := fixture()
	dup.Sections[1].Blocks[0].ID = "a"
	assert.ErrorIs(t, tree.Validate(dup), domain.ErrDuplicateID)
	assert.ErrorIs(t, tree.Validate(dup), domain.ErrInvalidTree)

	level := fixture()
	level.Sections[0].Level = 7
	assert.ErrorIs(t, tree.Validate(level), domain.ErrInvalidTree)

	heading := fixture()
	heading.Sections[0].Blocks[0] = domain.Block{ID: "h", Content: &domain.Heading{Content: "x", Level: 9}}
	assert.ErrorIs(t, tree.Validate(heading), domain.ErrInvalidTree)
}

func TestSearch(t *testing.T) {
	tr := fixture()

	hits := tree.Search(tr, "tenants", 0)
	require.NotEmpty(t, hits)
	assert.Equal(t, "s2", hits[0].SectionID)
	assert.Empty(t, hits[0].BlockID)

	hits = tree.Search(tr, "ECHO", 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "e", hits[0].BlockID)
	assert.Equal(t, "s2a", hits[0].SectionID)

	hits = tree.Search(tr, "a", 2)
	assert.Len(t, hits, 2)

	assert.Empty(t, tree.Search(tr, "  ", 0))
	assert.Empty(t, tree.Search(tr, "qqqq", 0))
}

func TestOutline(t *testing.T) {
	out := tree.Outline(fixture())
	assert.Equal(t, ""+
		"- Overview (s1, manual)\n"+
		"    * paragraph a: alpha\n"+
		"    * paragraph b: bravo\n"+
		"    * paragraph c: charlie\n"+
		"- Tenants (s2, generated)\n"+
		"    * paragraph d: delta\n"+
		"  - Anchors (s2a, manual, locked)\n"+
		"      * paragraph e: echo\n",
		out)
	assert.Empty(t, tree.Outline(domain.ContentTree{}))
}
