package tree

import (
	"fmt"

	"reportstudio/internal/domain"
)

// Validate checks a tree loaded from storage: ids present and unique across
// sections and blocks, section levels and statuses in range, block payloads
// well formed.
func Validate(t domain.ContentTree) error {
	seen := make(map[string]struct{})
	claim := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%w: %s without id", domain.ErrInvalidTree, kind)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %w: %s", domain.ErrInvalidTree, domain.ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
		return nil
	}

	var err error
	Walk(t, func(s *domain.Section, _ int) bool {
		if err = claim("section", s.ID); err != nil {
			return false
		}
		if s.Level < domain.MinSectionLevel || s.Level > domain.MaxSectionLevel {
			err = fmt.Errorf("%w: section %s level %d", domain.ErrInvalidTree, s.ID, s.Level)
			return false
		}
		if !s.Status.Valid() {
			err = fmt.Errorf("%w: section %s status %q", domain.ErrInvalidTree, s.ID, s.Status)
			return false
		}
		for _, b := range s.Blocks {
			if err = claim("block", b.ID); err != nil {
				return false
			}
			if verr := b.Validate(); verr != nil {
				err = fmt.Errorf("%w: block %s: %w", domain.ErrInvalidTree, b.ID, verr)
				return false
			}
		}
		return true
	})
	return err
}
