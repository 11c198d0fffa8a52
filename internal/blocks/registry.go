package blocks

import (
	"fmt"
	"sort"
	"sync"

	"reportstudio/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Block registry: default payloads per block kind
// ─────────────────────────────────────────────────────────────

// Constructor returns a fresh default payload. Every call must return a new
// value; the factory hands it straight to a new block.
type Constructor func() domain.Content

// Registry maps block kinds to their default constructors.
type Registry struct {
	mu    sync.RWMutex
	kinds map[domain.BlockType]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[domain.BlockType]Constructor)}
}

// Register adds a constructor. Panics on duplicate registration or when the
// constructor produces a payload of another kind.
func (r *Registry) Register(kind domain.BlockType, ctor Constructor) {
	if got := ctor().Kind(); got != kind {
		panic(fmt.Sprintf("block registry: constructor for %q returns %q", kind, got))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[kind]; exists {
		panic(fmt.Sprintf("block registry: duplicate registration for block type %q", kind))
	}
	r.kinds[kind] = ctor
}

// New returns the default payload for kind.
func (r *Registry) New(kind domain.BlockType) (domain.Content, error) {
	r.mu.RLock()
	ctor, ok := r.kinds[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedBlockType, kind)
	}
	return ctor(), nil
}

// Kinds returns the registered kinds sorted by name.
func (r *Registry) Kinds() []domain.BlockType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.BlockType, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultRegistry returns a registry holding every built-in block kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.BlockTypeParagraph, func() domain.Content {
		return &domain.Paragraph{}
	})
	r.Register(domain.BlockTypeHeading, func() domain.Content {
		return &domain.Heading{Level: 2}
	})
	r.Register(domain.BlockTypeChart, func() domain.Content {
		return &domain.Chart{
			ChartType: domain.ChartBar,
			Data: domain.ChartData{
				Labels:   []string{},
				Datasets: []domain.ChartDataset{},
			},
			Config: domain.ChartConfig{
				ShowLegend: true,
				ShowGrid:   true,
				Height:     300,
				Colors:     []string{"#2563eb", "#16a34a", "#f59e0b", "#dc2626"},
			},
		}
	})
	r.Register(domain.BlockTypeTable, func() domain.Content {
		return &domain.Table{
			Columns: []domain.TableColumn{
				{Key: "col1", Label: "Column 1"},
				{Key: "col2", Label: "Column 2"},
			},
			Rows:   []map[string]any{},
			Config: domain.TableConfig{Striped: true, ShowHeader: true},
		}
	})
	r.Register(domain.BlockTypeImage, func() domain.Content {
		return &domain.Image{Width: 100}
	})
	r.Register(domain.BlockTypeCallout, func() domain.Content {
		return &domain.Callout{Variant: domain.CalloutInfo}
	})
	r.Register(domain.BlockTypeDivider, func() domain.Content {
		return &domain.Divider{Style: "solid"}
	})
	r.Register(domain.BlockTypePageBreak, func() domain.Content {
		return &domain.PageBreak{}
	})
	r.Register(domain.BlockTypeList, func() domain.Content {
		return &domain.List{Items: []string{}}
	})
	r.Register(domain.BlockTypeKPICard, func() domain.Content {
		return &domain.KPICard{Trend: domain.TrendFlat}
	})
	r.Register(domain.BlockTypeQuote, func() domain.Content {
		return &domain.Quote{}
	})
	return r
}
