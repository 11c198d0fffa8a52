package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// BlockPatch is a partial block update keyed by top-level JSON field name
// ("content", "level", "config", "metadata", ...). Values replace the whole
// top-level field; nested objects are not merged.
type BlockPatch map[string]any

// Apply returns a new block with patch merged over b. The id and type may be
// repeated in the patch but never changed. Unknown fields are rejected. Only
// the patched fields are decoded; the rest keep their values from b.
func (b Block) Apply(patch BlockPatch) (Block, error) {
	fields, err := b.fields()
	if err != nil {
		return Block{}, err
	}
	changed := map[string]json.RawMessage{}
	for key, value := range patch {
		switch key {
		case "id":
			if fmt.Sprint(value) != b.ID {
				return Block{}, fmt.Errorf("%w: id of block %s", ErrImmutableField, b.ID)
			}
			continue
		case "type":
			if fmt.Sprint(value) != string(b.Type()) {
				return Block{}, fmt.Errorf("%w: type of block %s", ErrImmutableField, b.ID)
			}
			continue
		}
		if _, ok := fields[key]; !ok {
			return Block{}, fmt.Errorf("%w: unknown field %q for %s block", ErrInvalidPatch, key, b.Type())
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return Block{}, fmt.Errorf("%w: field %q: %v", ErrInvalidPatch, key, err)
		}
		changed[key] = raw
	}

	out := b.Clone()
	if raw, ok := changed["metadata"]; ok {
		delete(changed, "metadata")
		var meta *BlockMetadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return Block{}, fmt.Errorf("%w: metadata: %v", ErrInvalidPatch, err)
		}
		out.Metadata = meta
	}
	if len(changed) > 0 {
		// Zero patched fields first so maps and slices are replaced, not merged.
		for key := range changed {
			resetField(out.Content, key)
		}
		merged, err := json.Marshal(changed)
		if err != nil {
			return Block{}, err
		}
		if err := json.Unmarshal(merged, out.Content); err != nil {
			return Block{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
	}
	if err := out.Validate(); err != nil {
		return Block{}, err
	}
	return out, nil
}

// resetField zeroes the struct field of c whose JSON name is key.
func resetField(c Content, key string) {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == key {
			v.Field(i).SetZero()
			return
		}
	}
}

// SectionPatch is a partial section update; nil fields are left unchanged.
type SectionPatch struct {
	Title       *string        `json:"title,omitempty"`
	Level       *int           `json:"level,omitempty"`
	Status      *SectionStatus `json:"status,omitempty"`
	IsLocked    *bool          `json:"isLocked,omitempty"`
	IsCollapsed *bool          `json:"isCollapsed,omitempty"`
}

// Apply returns a shallow copy of s with the patch applied. Blocks and
// children are shared with s.
func (p SectionPatch) Apply(s *Section) (*Section, error) {
	cp := *s
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, fmt.Errorf("%w: section status %q", ErrInvalidPatch, *p.Status)
		}
		cp.Status = *p.Status
	}
	if p.Title != nil {
		cp.Title = *p.Title
		if p.Status == nil && cp.Status == StatusGenerated {
			cp.Status = StatusEdited
		}
	}
	if p.Level != nil {
		cp.Level = ClampLevel(*p.Level)
	}
	if p.IsLocked != nil {
		cp.IsLocked = *p.IsLocked
	}
	if p.IsCollapsed != nil {
		cp.IsCollapsed = *p.IsCollapsed
	}
	return &cp, nil
}

// Empty reports whether the patch changes nothing.
func (p SectionPatch) Empty() bool {
	return p.Title == nil && p.Level == nil && p.Status == nil && p.IsLocked == nil && p.IsCollapsed == nil
}
