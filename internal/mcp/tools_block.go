package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"reportstudio/internal/domain"
)

func (s *Server) registerBlockTools() {
	// ── list_block_types ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_block_types",
		mcp.WithDescription("List the block types add_block accepts, each with its default fields"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListBlockTypes)

	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Add a block to a section. The block starts from the type's defaults; fields override them."),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithString("type",
			mcp.Description("Block type: paragraph, heading, chart, table, image, callout, divider, pagebreak, list, kpi_card, quote"),
			mcp.Required(),
		),
		mcp.WithString("afterBlockId", mcp.Description("Insert after this block (optional, defaults to the end)")),
		mcp.WithObject("fields", mcp.Description(`Top-level block fields, e.g. {"content": "text"} or {"config": {...}, "data": {...}}`)),
	), s.handleAddBlock)

	// ── update_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Replace top-level fields of a block. Nested objects are replaced, not merged. id and type cannot change."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("sectionId", mcp.Description("Section ID (optional, looked up from the block)")),
		mcp.WithObject("fields", mcp.Description("Fields to replace"), mcp.Required()),
	), s.handleUpdateBlock)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("Delete a block. Can be undone."),
		mcp.WithString("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithString("sectionId", mcp.Description("Section ID (optional, looked up from the block)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block to a position in the same or another section. The index is clamped."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("toSectionId", mcp.Description("Destination section ID"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Destination index"), mcp.Required()),
		mcp.WithString("fromSectionId", mcp.Description("Source section ID (optional, looked up from the block)")),
	), s.handleMoveBlock)

	// ── duplicate_block ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_block",
		mcp.WithDescription("Insert a copy of a block right after it"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("sectionId", mcp.Description("Section ID (optional, looked up from the block)")),
	), s.handleDuplicateBlock)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListBlockTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defaults := make([]domain.Block, 0)
	for _, kind := range s.docs.BlockKinds() {
		b, err := s.docs.CreateBlock(kind)
		if err != nil {
			return nil, err
		}
		b.ID = ""
		defaults = append(defaults, b)
	}
	return jsonResult(defaults)
}

func (s *Server) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sectionID, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	kind, err := req.RequireString("type")
	if err != nil {
		return nil, err
	}
	fields, hasFields, err := objectArg(req, "fields")
	if err != nil {
		return nil, err
	}

	block, err := s.docs.CreateBlock(domain.BlockType(strings.ToLower(kind)))
	if err != nil {
		return opError("add block", err), nil
	}
	if hasFields {
		if block, err = block.Apply(domain.BlockPatch(fields)); err != nil {
			return opError("add block", err), nil
		}
	}

	id, err := s.docs.AddBlock(sectionID, block, req.GetString("afterBlockId", ""))
	if err != nil {
		return opError("add block", err), nil
	}
	return jsonResult(map[string]string{"blockId": id, "sectionId": sectionID})
}

func (s *Server) handleUpdateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("blockId")
	if err != nil {
		return nil, err
	}
	fields, ok, err := objectArg(req, "fields")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fields is required")
	}
	if err := s.docs.UpdateBlock(req.GetString("sectionId", ""), blockID, domain.BlockPatch(fields)); err != nil {
		return opError("update block", err), nil
	}
	return textResult(fmt.Sprintf("Block %s updated", blockID)), nil
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("blockId")
	if err != nil {
		return nil, err
	}
	sectionID, err := s.resolveSectionID(req, "sectionId", blockID)
	if err != nil {
		return opError("delete block", err), nil
	}
	if err := s.docs.DeleteBlock(sectionID, blockID); err != nil {
		return opError("delete block", err), nil
	}
	return textResult(fmt.Sprintf("Block %s deleted", blockID)), nil
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("blockId")
	if err != nil {
		return nil, err
	}
	to, err := req.RequireString("toSectionId")
	if err != nil {
		return nil, err
	}
	index, err := req.RequireInt("index")
	if err != nil {
		return nil, err
	}
	from, err := s.resolveSectionID(req, "fromSectionId", blockID)
	if err != nil {
		return opError("move block", err), nil
	}
	if err := s.docs.MoveBlock(from, blockID, to, index); err != nil {
		return opError("move block", err), nil
	}
	return textResult(fmt.Sprintf("Block %s moved to %s", blockID, to)), nil
}

func (s *Server) handleDuplicateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("blockId")
	if err != nil {
		return nil, err
	}
	sectionID, err := s.resolveSectionID(req, "sectionId", blockID)
	if err != nil {
		return opError("duplicate block", err), nil
	}
	id, err := s.docs.DuplicateBlock(sectionID, blockID)
	if err != nil {
		return opError("duplicate block", err), nil
	}
	return jsonResult(map[string]string{"blockId": id, "sectionId": sectionID})
}
