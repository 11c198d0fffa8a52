package tree

import (
	"fmt"

	"reportstudio/internal/domain"
)

// InsertBlock inserts b into a section, right after afterBlockID or at the
// end when afterBlockID is empty.
func InsertBlock(t domain.ContentTree, sectionID string, b domain.Block, afterBlockID string) (domain.ContentTree, error) {
	if b.ID == "" {
		return t, fmt.Errorf("insert block: %w", domain.ErrMissingID)
	}
	if err := b.Validate(); err != nil {
		return t, fmt.Errorf("insert block %s: %w", b.ID, err)
	}
	if Contains(t, b.ID) {
		return t, fmt.Errorf("insert block: %w: %s", domain.ErrDuplicateID, b.ID)
	}
	return editSection(t, sectionID, func(s *domain.Section) (*domain.Section, error) {
		if s.IsLocked {
			return nil, fmt.Errorf("insert block: %w: %s", domain.ErrSectionLocked, s.ID)
		}
		at := len(s.Blocks)
		if afterBlockID != "" {
			i := blockIndex(s.Blocks, afterBlockID)
			if i < 0 {
				return nil, fmt.Errorf("insert block after %s: %w", afterBlockID, domain.ErrBlockNotFound)
			}
			at = i + 1
		}
		return withBlocks(s, insertAt(s.Blocks, at, b)), nil
	})
}

// UpdateBlock merges patch into a block. With an empty sectionID the block is
// looked up anywhere in the tree. Editing a block of a generated section marks
// the section as edited.
func UpdateBlock(t domain.ContentTree, sectionID, blockID string, patch domain.BlockPatch) (domain.ContentTree, error) {
	if sectionID == "" {
		_, owner, err := FindBlock(t, blockID)
		if err != nil {
			return t, err
		}
		sectionID = owner.ID
	}
	return editSection(t, sectionID, func(s *domain.Section) (*domain.Section, error) {
		if s.IsLocked {
			return nil, fmt.Errorf("update block %s: %w: %s", blockID, domain.ErrSectionLocked, s.ID)
		}
		i := blockIndex(s.Blocks, blockID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s in section %s", domain.ErrBlockNotFound, blockID, s.ID)
		}
		updated, err := s.Blocks[i].Apply(patch)
		if err != nil {
			return nil, fmt.Errorf("update block %s: %w", blockID, err)
		}
		blocks := make([]domain.Block, len(s.Blocks))
		copy(blocks, s.Blocks)
		blocks[i] = updated
		ns := withBlocks(s, blocks)
		if ns.Status == domain.StatusGenerated {
			ns.Status = domain.StatusEdited
		}
		return ns, nil
	})
}

// DeleteBlock removes a block from its section.
func DeleteBlock(t domain.ContentTree, sectionID, blockID string) (domain.ContentTree, error) {
	return editSection(t, sectionID, func(s *domain.Section) (*domain.Section, error) {
		if s.IsLocked {
			return nil, fmt.Errorf("delete block %s: %w: %s", blockID, domain.ErrSectionLocked, s.ID)
		}
		i := blockIndex(s.Blocks, blockID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s in section %s", domain.ErrBlockNotFound, blockID, s.ID)
		}
		return withBlocks(s, removeAt(s.Blocks, i)), nil
	})
}

// DuplicateBlock inserts a deep copy of a block, carrying newID, right after
// the original.
func DuplicateBlock(t domain.ContentTree, sectionID, blockID, newID string) (domain.ContentTree, error) {
	if newID == "" {
		return t, fmt.Errorf("duplicate block: %w", domain.ErrMissingID)
	}
	if Contains(t, newID) {
		return t, fmt.Errorf("duplicate block: %w: %s", domain.ErrDuplicateID, newID)
	}
	return editSection(t, sectionID, func(s *domain.Section) (*domain.Section, error) {
		if s.IsLocked {
			return nil, fmt.Errorf("duplicate block %s: %w: %s", blockID, domain.ErrSectionLocked, s.ID)
		}
		i := blockIndex(s.Blocks, blockID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s in section %s", domain.ErrBlockNotFound, blockID, s.ID)
		}
		clone := s.Blocks[i].Clone()
		clone.ID = newID
		return withBlocks(s, insertAt(s.Blocks, i+1, clone)), nil
	})
}

// MoveBlock moves a block to position toIndex of the destination section.
// toIndex is clamped to the destination list. The source and destination may
// be the same section.
func MoveBlock(t domain.ContentTree, fromSectionID, blockID, toSectionID string, toIndex int) (domain.ContentTree, error) {
	from, err := FindSection(t, fromSectionID)
	if err != nil {
		return t, err
	}
	to, err := FindSection(t, toSectionID)
	if err != nil {
		return t, err
	}
	for _, s := range []*domain.Section{from, to} {
		if s.IsLocked {
			return t, fmt.Errorf("move block %s: %w: %s", blockID, domain.ErrSectionLocked, s.ID)
		}
	}
	i := blockIndex(from.Blocks, blockID)
	if i < 0 {
		return t, fmt.Errorf("%w: %s in section %s", domain.ErrBlockNotFound, blockID, from.ID)
	}
	moved := from.Blocks[i]

	if from.ID == to.ID {
		return editSection(t, from.ID, func(s *domain.Section) (*domain.Section, error) {
			rest := removeAt(s.Blocks, i)
			return withBlocks(s, insertAt(rest, clamp(toIndex, 0, len(rest)), moved)), nil
		})
	}

	next, err := editSection(t, from.ID, func(s *domain.Section) (*domain.Section, error) {
		return withBlocks(s, removeAt(s.Blocks, i)), nil
	})
	if err != nil {
		return t, err
	}
	next, err = editSection(next, to.ID, func(s *domain.Section) (*domain.Section, error) {
		return withBlocks(s, insertAt(s.Blocks, clamp(toIndex, 0, len(s.Blocks)), moved)), nil
	})
	if err != nil {
		return t, err
	}
	return next, nil
}

func insertAt(blocks []domain.Block, i int, b domain.Block) []domain.Block {
	out := make([]domain.Block, 0, len(blocks)+1)
	out = append(out, blocks[:i]...)
	out = append(out, b)
	return append(out, blocks[i:]...)
}

func removeAt(blocks []domain.Block, i int) []domain.Block {
	out := make([]domain.Block, 0, len(blocks)-1)
	out = append(out, blocks[:i]...)
	return append(out, blocks[i+1:]...)
}
