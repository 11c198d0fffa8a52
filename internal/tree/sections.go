package tree

import (
	"fmt"

	"reportstudio/internal/domain"
)

// AddSection appends a copy of s to the root, or to the children of parentID
// when it is set. A zero level becomes one deeper than the parent; levels are
// clamped to the supported range and an empty status becomes manual.
func AddSection(t domain.ContentTree, s *domain.Section, parentID string) (domain.ContentTree, error) {
	if s == nil {
		return t, fmt.Errorf("add section: %w", domain.ErrMissingID)
	}
	ns := s.Clone()
	if err := checkNewSubtree(t, ns); err != nil {
		return t, fmt.Errorf("add section: %w", err)
	}

	if parentID == "" {
		normalize(ns, 0)
		sections := make([]*domain.Section, 0, len(t.Sections)+1)
		sections = append(sections, t.Sections...)
		return domain.ContentTree{Sections: append(sections, ns)}, nil
	}
	return editSection(t, parentID, func(p *domain.Section) (*domain.Section, error) {
		normalize(ns, p.Level)
		cp := *p
		cp.Children = make([]*domain.Section, 0, len(p.Children)+1)
		cp.Children = append(cp.Children, p.Children...)
		cp.Children = append(cp.Children, ns)
		return &cp, nil
	})
}

// UpdateSection applies patch to a section. Locked sections accept section
// patches so they can be unlocked.
func UpdateSection(t domain.ContentTree, sectionID string, patch domain.SectionPatch) (domain.ContentTree, error) {
	return editSection(t, sectionID, func(s *domain.Section) (*domain.Section, error) {
		ns, err := patch.Apply(s)
		if err != nil {
			return nil, fmt.Errorf("update section %s: %w", s.ID, err)
		}
		return ns, nil
	})
}

// DeleteSection removes a section with its blocks and descendants.
func DeleteSection(t domain.ContentTree, sectionID string) (domain.ContentTree, error) {
	sections, found, err := rewrite(t.Sections, sectionID, func(*domain.Section) ([]*domain.Section, error) {
		return nil, nil
	})
	if err != nil {
		return t, err
	}
	if !found {
		return t, fmt.Errorf("%w: %s", domain.ErrSectionNotFound, sectionID)
	}
	return domain.ContentTree{Sections: sections}, nil
}

// ReorderSections moves the top-level section at from to position to. Both
// indices are clamped to the root list.
func ReorderSections(t domain.ContentTree, from, to int) (domain.ContentTree, error) {
	n := len(t.Sections)
	if n == 0 {
		return t, fmt.Errorf("reorder sections: %w: no sections", domain.ErrInvalidIndex)
	}
	from = clamp(from, 0, n-1)
	to = clamp(to, 0, n-1)

	moved := t.Sections[from]
	rest := make([]*domain.Section, 0, n)
	rest = append(rest, t.Sections[:from]...)
	rest = append(rest, t.Sections[from+1:]...)

	out := make([]*domain.Section, 0, n)
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	return domain.ContentTree{Sections: out}, nil
}

// checkNewSubtree rejects missing ids, ids already present in t and ids
// repeated inside the new subtree.
func checkNewSubtree(t domain.ContentTree, s *domain.Section) error {
	seen := make(map[string]struct{})
	var check func(*domain.Section) error
	claim := func(id string) error {
		if id == "" {
			return domain.ErrMissingID
		}
		if _, dup := seen[id]; dup || Contains(t, id) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
		return nil
	}
	check = func(s *domain.Section) error {
		if err := claim(s.ID); err != nil {
			return err
		}
		for _, b := range s.Blocks {
			if err := claim(b.ID); err != nil {
				return err
			}
			if err := b.Validate(); err != nil {
				return err
			}
		}
		for _, c := range s.Children {
			if err := check(c); err != nil {
				return err
			}
		}
		return nil
	}
	return check(s)
}

// normalize fixes levels, status and nil lists of a freshly cloned subtree.
func normalize(s *domain.Section, parentLevel int) {
	if s.Level == 0 {
		s.Level = parentLevel + 1
	}
	s.Level = domain.ClampLevel(s.Level)
	if !s.Status.Valid() {
		s.Status = domain.StatusManual
	}
	if s.Blocks == nil {
		s.Blocks = []domain.Block{}
	}
	if s.Children == nil {
		s.Children = []*domain.Section{}
	}
	for _, c := range s.Children {
		normalize(c, s.Level)
	}
}
