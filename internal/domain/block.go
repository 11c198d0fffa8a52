package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type BlockType string

const (
	BlockTypeParagraph BlockType = "paragraph"
	BlockTypeHeading   BlockType = "heading"
	BlockTypeChart     BlockType = "chart"
	BlockTypeTable     BlockType = "table"
	BlockTypeImage     BlockType = "image"
	BlockTypeCallout   BlockType = "callout"
	BlockTypeDivider   BlockType = "divider"
	BlockTypePageBreak BlockType = "pagebreak"
	BlockTypeList      BlockType = "list"
	BlockTypeKPICard   BlockType = "kpi_card"
	BlockTypeQuote     BlockType = "quote"
)

// BlockTypes lists every supported kind in palette order.
var BlockTypes = []BlockType{
	BlockTypeParagraph,
	BlockTypeHeading,
	BlockTypeChart,
	BlockTypeTable,
	BlockTypeImage,
	BlockTypeCallout,
	BlockTypeDivider,
	BlockTypePageBreak,
	BlockTypeList,
	BlockTypeKPICard,
	BlockTypeQuote,
}

// Valid reports whether t is one of the known block kinds.
func (t BlockType) Valid() bool {
	for _, k := range BlockTypes {
		if k == t {
			return true
		}
	}
	return false
}

// BlockMetadata carries optional provenance information.
type BlockMetadata struct {
	AIGenerated bool       `json:"aiGenerated"`
	Source      string     `json:"source,omitempty"`
	GeneratedAt *time.Time `json:"generatedAt,omitempty"`
}

// Block is a leaf content unit. Its kind is fixed by Content and cannot change
// after creation.
type Block struct {
	ID       string
	Metadata *BlockMetadata
	Content  Content
}

// Content is the kind-specific payload of a block. The set of implementations
// is closed to this package.
type Content interface {
	Kind() BlockType
	clone() Content
}

// Type returns the block's kind tag.
func (b Block) Type() BlockType {
	if b.Content == nil {
		return ""
	}
	return b.Content.Kind()
}

// Clone returns a deep copy of b sharing no mutable state with it.
func (b Block) Clone() Block {
	out := Block{ID: b.ID}
	if b.Metadata != nil {
		m := *b.Metadata
		if b.Metadata.GeneratedAt != nil {
			at := *b.Metadata.GeneratedAt
			m.GeneratedAt = &at
		}
		out.Metadata = &m
	}
	if b.Content != nil {
		out.Content = b.Content.clone()
	}
	return out
}

// ── Variants ───────────────────────────────────────────────

type Paragraph struct {
	Content string `json:"content"`
}

type Heading struct {
	Content string `json:"content"`
	Level   int    `json:"level"`
}

type ChartKind string

const (
	ChartBar   ChartKind = "bar"
	ChartLine  ChartKind = "line"
	ChartPie   ChartKind = "pie"
	ChartArea  ChartKind = "area"
	ChartDonut ChartKind = "donut"
)

type ChartDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
	Color string    `json:"color,omitempty"`
}

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartConfig struct {
	Title      string   `json:"title"`
	ShowLegend bool     `json:"showLegend"`
	ShowGrid   bool     `json:"showGrid"`
	Height     int      `json:"height"`
	Colors     []string `json:"colors"`
}

type Chart struct {
	ChartType ChartKind   `json:"chartType"`
	Data      ChartData   `json:"data"`
	Config    ChartConfig `json:"config"`
}

type TableColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Align string `json:"align,omitempty"`
}

type TableConfig struct {
	Striped    bool `json:"striped"`
	Bordered   bool `json:"bordered"`
	Compact    bool `json:"compact"`
	ShowHeader bool `json:"showHeader"`
}

// Table rows are free-form records keyed by column key.
type Table struct {
	Columns []TableColumn    `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Config  TableConfig      `json:"config"`
}

type Image struct {
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
	Width   int    `json:"width"`
}

type CalloutVariant string

const (
	CalloutInfo    CalloutVariant = "info"
	CalloutWarning CalloutVariant = "warning"
	CalloutSuccess CalloutVariant = "success"
	CalloutError   CalloutVariant = "error"
)

type Callout struct {
	Variant CalloutVariant `json:"variant"`
	Title   string         `json:"title"`
	Content string         `json:"content"`
}

type Divider struct {
	Style string `json:"style"`
}

type PageBreak struct{}

type List struct {
	Ordered bool     `json:"ordered"`
	Items   []string `json:"items"`
}

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

type KPICard struct {
	Label  string  `json:"label"`
	Value  string  `json:"value"`
	Unit   string  `json:"unit"`
	Change float64 `json:"change"`
	Trend  Trend   `json:"trend"`
}

type Quote struct {
	Content string `json:"content"`
	Author  string `json:"author"`
	Source  string `json:"source"`
}

func (*Paragraph) Kind() BlockType { return BlockTypeParagraph }
func (*Heading) Kind() BlockType   { return BlockTypeHeading }
func (*Chart) Kind() BlockType     { return BlockTypeChart }
func (*Table) Kind() BlockType     { return BlockTypeTable }
func (*Image) Kind() BlockType     { return BlockTypeImage }
func (*Callout) Kind() BlockType   { return BlockTypeCallout }
func (*Divider) Kind() BlockType   { return BlockTypeDivider }
func (*PageBreak) Kind() BlockType { return BlockTypePageBreak }
func (*List) Kind() BlockType      { return BlockTypeList }
func (*KPICard) Kind() BlockType   { return BlockTypeKPICard }
func (*Quote) Kind() BlockType     { return BlockTypeQuote }

func (c *Paragraph) clone() Content { cp := *c; return &cp }
func (c *Heading) clone() Content   { cp := *c; return &cp }
func (c *Image) clone() Content     { cp := *c; return &cp }
func (c *Callout) clone() Content   { cp := *c; return &cp }
func (c *Divider) clone() Content   { cp := *c; return &cp }
func (c *PageBreak) clone() Content { return &PageBreak{} }
func (c *KPICard) clone() Content   { cp := *c; return &cp }
func (c *Quote) clone() Content     { cp := *c; return &cp }

func (c *List) clone() Content {
	return &List{Ordered: c.Ordered, Items: cloneSlice(c.Items)}
}

func (c *Chart) clone() Content {
	cp := Chart{ChartType: c.ChartType, Config: c.Config}
	cp.Config.Colors = cloneSlice(c.Config.Colors)
	cp.Data.Labels = cloneSlice(c.Data.Labels)
	if c.Data.Datasets != nil {
		cp.Data.Datasets = make([]ChartDataset, len(c.Data.Datasets))
		for i, ds := range c.Data.Datasets {
			ds.Data = cloneSlice(ds.Data)
			cp.Data.Datasets[i] = ds
		}
	}
	return &cp
}

func (c *Table) clone() Content {
	cp := Table{Columns: cloneSlice(c.Columns), Config: c.Config}
	if c.Rows != nil {
		cp.Rows = make([]map[string]any, len(c.Rows))
		for i, row := range c.Rows {
			cp.Rows[i] = cloneRecord(row)
		}
	}
	return &cp
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func cloneRecord(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneRecord(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// NewContent returns an empty payload for the given kind.
func NewContent(t BlockType) (Content, error) {
	switch t {
	case BlockTypeParagraph:
		return &Paragraph{}, nil
	case BlockTypeHeading:
		return &Heading{Level: 2}, nil
	case BlockTypeChart:
		return &Chart{}, nil
	case BlockTypeTable:
		return &Table{}, nil
	case BlockTypeImage:
		return &Image{}, nil
	case BlockTypeCallout:
		return &Callout{}, nil
	case BlockTypeDivider:
		return &Divider{}, nil
	case BlockTypePageBreak:
		return &PageBreak{}, nil
	case BlockTypeList:
		return &List{}, nil
	case BlockTypeKPICard:
		return &KPICard{}, nil
	case BlockTypeQuote:
		return &Quote{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBlockType, t)
	}
}

// Text returns the searchable plain text of a block.
func (b Block) Text() string {
	switch c := b.Content.(type) {
	case *Paragraph:
		return c.Content
	case *Heading:
		return c.Content
	case *Chart:
		return c.Config.Title
	case *Table:
		labels := make([]string, 0, len(c.Columns))
		for _, col := range c.Columns {
			labels = append(labels, col.Label)
		}
		return strings.Join(labels, " ")
	case *Image:
		return strings.TrimSpace(c.Alt + " " + c.Caption)
	case *Callout:
		return strings.TrimSpace(c.Title + " " + c.Content)
	case *List:
		return strings.Join(c.Items, " ")
	case *KPICard:
		return strings.TrimSpace(c.Label + " " + c.Value + " " + c.Unit)
	case *Quote:
		return strings.TrimSpace(c.Content + " " + c.Author)
	default:
		return ""
	}
}

// Validate checks the payload of b.
func (b Block) Validate() error {
	switch c := b.Content.(type) {
	case nil:
		return fmt.Errorf("%w: block %s has no content", ErrUnsupportedBlockType, b.ID)
	case *Heading:
		if c.Level < 1 || c.Level > 6 {
			return fmt.Errorf("%w: heading level %d out of range 1-6", ErrInvalidPatch, c.Level)
		}
	}
	return nil
}

// ── JSON ───────────────────────────────────────────────────

type blockEnvelope struct {
	ID       string         `json:"id"`
	Type     BlockType      `json:"type"`
	Metadata *BlockMetadata `json:"metadata"`
}

// MarshalJSON flattens the variant fields next to id, type and metadata.
func (b Block) MarshalJSON() ([]byte, error) {
	if b.Content == nil {
		return nil, fmt.Errorf("%w: block %s has no content", ErrUnsupportedBlockType, b.ID)
	}
	fields, err := b.fields()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes a flattened block, dispatching on its type tag.
func (b *Block) UnmarshalJSON(data []byte) error {
	var env blockEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	content, err := NewContent(env.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, content); err != nil {
		return fmt.Errorf("decode %s block %s: %w", env.Type, env.ID, err)
	}
	b.ID = env.ID
	b.Metadata = env.Metadata
	b.Content = content
	return nil
}

// fields returns the flattened JSON object of b keyed by field name.
func (b Block) fields() (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(b.Content)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	env, err := json.Marshal(blockEnvelope{ID: b.ID, Type: b.Type(), Metadata: b.Metadata})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
