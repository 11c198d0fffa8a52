// Package blocks builds default-initialized blocks for every supported kind.
package blocks

import (
	"reportstudio/internal/domain"
	"reportstudio/internal/ids"
)

// Factory creates blocks with fresh ids.
type Factory struct {
	ids      ids.Generator
	registry *Registry
}

// NewFactory creates a Factory. Nil arguments fall back to UUID ids and the
// default registry.
func NewFactory(gen ids.Generator, registry *Registry) *Factory {
	if gen == nil {
		gen = ids.UUIDGenerator{}
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Factory{ids: gen, registry: registry}
}

// Create returns a default block of the given kind. Unknown kinds fail with
// domain.ErrUnsupportedBlockType.
func (f *Factory) Create(kind domain.BlockType) (domain.Block, error) {
	content, err := f.registry.New(kind)
	if err != nil {
		return domain.Block{}, err
	}
	return domain.Block{ID: f.ids.NextID(ids.PrefixBlock), Content: content}, nil
}

// Kinds returns the kinds this factory can build.
func (f *Factory) Kinds() []domain.BlockType {
	return f.registry.Kinds()
}
