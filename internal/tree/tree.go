// Package tree implements the structural operations on a content tree.
//
// Every mutator takes a tree read-only and returns a new one. Sections on the
// path from the root to the changed node are copied; everything else is shared
// with the input. Callers must treat published trees as immutable.
package tree

import (
	"fmt"

	"reportstudio/internal/domain"
)

// editFunc returns the sections that replace s in its parent's list: none to
// delete it, one to replace it.
type editFunc func(s *domain.Section) ([]*domain.Section, error)

// rewrite finds the section with the given id anywhere under list and splices
// in the result of fn. Ancestors of the section are shallow-copied with a new
// Children slice. The input list is never modified.
func rewrite(list []*domain.Section, id string, fn editFunc) ([]*domain.Section, bool, error) {
	for i, s := range list {
		if s.ID == id {
			repl, err := fn(s)
			if err != nil {
				return nil, true, err
			}
			return splice(list, i, repl), true, nil
		}
		children, found, err := rewrite(s.Children, id, fn)
		if err != nil {
			return nil, true, err
		}
		if found {
			cp := *s
			cp.Children = children
			return splice(list, i, []*domain.Section{&cp}), true, nil
		}
	}
	return list, false, nil
}

func splice(list []*domain.Section, i int, repl []*domain.Section) []*domain.Section {
	out := make([]*domain.Section, 0, len(list)-1+len(repl))
	out = append(out, list[:i]...)
	out = append(out, repl...)
	return append(out, list[i+1:]...)
}

// editSection applies fn to one section and returns the new tree.
func editSection(t domain.ContentTree, id string, fn func(s *domain.Section) (*domain.Section, error)) (domain.ContentTree, error) {
	sections, found, err := rewrite(t.Sections, id, func(s *domain.Section) ([]*domain.Section, error) {
		ns, err := fn(s)
		if err != nil {
			return nil, err
		}
		return []*domain.Section{ns}, nil
	})
	if err != nil {
		return t, err
	}
	if !found {
		return t, fmt.Errorf("%w: %s", domain.ErrSectionNotFound, id)
	}
	return domain.ContentTree{Sections: sections}, nil
}

// withBlocks returns a shallow copy of s owning the given block list.
func withBlocks(s *domain.Section, blocks []domain.Block) *domain.Section {
	cp := *s
	cp.Blocks = blocks
	return &cp
}

// ── Lookup ─────────────────────────────────────────────────

// FindSection returns the section with the given id.
func FindSection(t domain.ContentTree, id string) (*domain.Section, error) {
	var found *domain.Section
	Walk(t, func(s *domain.Section, _ int) bool {
		if s.ID == id {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSectionNotFound, id)
	}
	return found, nil
}

// FindBlock returns the block with the given id and the section owning it.
func FindBlock(t domain.ContentTree, blockID string) (domain.Block, *domain.Section, error) {
	var (
		block domain.Block
		owner *domain.Section
	)
	Walk(t, func(s *domain.Section, _ int) bool {
		if i := blockIndex(s.Blocks, blockID); i >= 0 {
			block, owner = s.Blocks[i], s
			return false
		}
		return true
	})
	if owner == nil {
		return domain.Block{}, nil, fmt.Errorf("%w: %s", domain.ErrBlockNotFound, blockID)
	}
	return block, owner, nil
}

// Walk visits every section in document order, parents before children.
// depth is 0 for top-level sections. Returning false stops the walk.
func Walk(t domain.ContentTree, fn func(s *domain.Section, depth int) bool) {
	walk(t.Sections, 0, fn)
}

func walk(list []*domain.Section, depth int, fn func(*domain.Section, int) bool) bool {
	for _, s := range list {
		if !fn(s, depth) {
			return false
		}
		if !walk(s.Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// Contains reports whether any section or block in t has the given id.
func Contains(t domain.ContentTree, id string) bool {
	hit := false
	Walk(t, func(s *domain.Section, _ int) bool {
		hit = s.ID == id || blockIndex(s.Blocks, id) >= 0
		return !hit
	})
	return hit
}

func blockIndex(blocks []domain.Block, id string) int {
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
