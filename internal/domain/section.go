package domain

type SectionStatus string

const (
	StatusManual    SectionStatus = "manual"
	StatusGenerated SectionStatus = "generated"
	StatusEdited    SectionStatus = "edited"
)

func (s SectionStatus) Valid() bool {
	switch s {
	case StatusManual, StatusGenerated, StatusEdited:
		return true
	}
	return false
}

const (
	MinSectionLevel = 1
	MaxSectionLevel = 4
)

// ClampLevel forces a nesting level into the supported range.
func ClampLevel(level int) int {
	if level < MinSectionLevel {
		return MinSectionLevel
	}
	if level > MaxSectionLevel {
		return MaxSectionLevel
	}
	return level
}

// Section is a titled container of blocks and nested sections. Each child
// belongs to exactly one parent.
type Section struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Level       int           `json:"level"`
	Status      SectionStatus `json:"status"`
	IsLocked    bool          `json:"isLocked"`
	IsCollapsed bool          `json:"isCollapsed"`
	Blocks      []Block       `json:"blocks"`
	Children    []*Section    `json:"children"`
}

// Clone returns a deep copy of the section and its whole subtree.
func (s *Section) Clone() *Section {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Blocks != nil {
		cp.Blocks = make([]Block, len(s.Blocks))
		for i, b := range s.Blocks {
			cp.Blocks[i] = b.Clone()
		}
	}
	cp.Children = cloneSections(s.Children)
	return &cp
}

// ContentTree is the document root. Section order is render and export order.
// A published tree is never modified in place; mutations build a new tree.
type ContentTree struct {
	Sections []*Section `json:"sections"`
}

// Clone returns a structurally independent copy of the tree.
func (t ContentTree) Clone() ContentTree {
	return ContentTree{Sections: cloneSections(t.Sections)}
}

// Counts returns the number of sections and blocks in the tree.
func (t ContentTree) Counts() (sections, blocks int) {
	var walk func([]*Section)
	walk = func(list []*Section) {
		for _, s := range list {
			sections++
			blocks += len(s.Blocks)
			walk(s.Children)
		}
	}
	walk(t.Sections)
	return sections, blocks
}

func cloneSections(list []*Section) []*Section {
	if list == nil {
		return nil
	}
	out := make([]*Section, len(list))
	for i, s := range list {
		out[i] = s.Clone()
	}
	return out
}
