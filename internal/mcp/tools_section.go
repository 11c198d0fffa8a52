package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"reportstudio/internal/domain"
)

func (s *Server) registerSectionTools() {
	// ── add_section ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_section",
		mcp.WithDescription("Append a section to the report root or under a parent section"),
		mcp.WithString("title", mcp.Description("Section title"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("Parent section ID (optional, defaults to the root)")),
		mcp.WithNumber("level", mcp.Description("Heading level 1-4 (optional, defaults to parent level + 1)")),
		mcp.WithString("status",
			mcp.Description("Authoring status (default manual)"),
			mcp.Enum(string(domain.StatusManual), string(domain.StatusGenerated), string(domain.StatusEdited)),
		),
		mcp.WithBoolean("locked", mcp.Description("Lock the section against block edits")),
	), s.handleAddSection)

	// ── update_section ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_section",
		mcp.WithDescription("Change a section's title, level, status, lock or collapse flag. Omitted fields are kept."),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithNumber("level", mcp.Description("New level 1-4")),
		mcp.WithString("status",
			mcp.Description("New status"),
			mcp.Enum(string(domain.StatusManual), string(domain.StatusGenerated), string(domain.StatusEdited)),
		),
		mcp.WithBoolean("locked", mcp.Description("Lock or unlock")),
		mcp.WithBoolean("collapsed", mcp.Description("Collapse or expand")),
	), s.handleUpdateSection)

	// ── delete_section (destructive) ───────────────────
	s.mcp.AddTool(mcp.NewTool("delete_section",
		mcp.WithDescription("Delete a section with all of its blocks and subsections. Can be undone."),
		mcp.WithString("sectionId", mcp.Description("Section ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteSection)

	// ── reorder_sections ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reorder_sections",
		mcp.WithDescription("Move a top-level section from one index to another. Indices are clamped."),
		mcp.WithNumber("from", mcp.Description("Current index"), mcp.Required()),
		mcp.WithNumber("to", mcp.Description("Target index"), mcp.Required()),
	), s.handleReorderSections)
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleAddSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return nil, err
	}
	sec := &domain.Section{
		Title:    title,
		Level:    req.GetInt("level", 0),
		Status:   domain.SectionStatus(req.GetString("status", string(domain.StatusManual))),
		IsLocked: req.GetBool("locked", false),
	}
	id, err := s.docs.AddSection(sec, req.GetString("parentId", ""))
	if err != nil {
		return opError("add section", err), nil
	}
	return jsonResult(map[string]string{"sectionId": id})
}

func (s *Server) handleUpdateSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	patch := sectionPatchArgs(req)
	if patch.Empty() {
		return nil, fmt.Errorf("nothing to update: pass title, level, status, locked or collapsed")
	}
	if err := s.docs.UpdateSection(id, patch); err != nil {
		return opError("update section", err), nil
	}
	return textResult(fmt.Sprintf("Section %s updated", id)), nil
}

func (s *Server) handleDeleteSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("sectionId")
	if err != nil {
		return nil, err
	}
	if err := s.docs.DeleteSection(id); err != nil {
		return opError("delete section", err), nil
	}
	return textResult(fmt.Sprintf("Section %s deleted", id)), nil
}

func (s *Server) handleReorderSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireInt("from")
	if err != nil {
		return nil, err
	}
	to, err := req.RequireInt("to")
	if err != nil {
		return nil, err
	}
	if err := s.docs.ReorderSections(from, to); err != nil {
		return opError("reorder sections", err), nil
	}
	return textResult("Sections reordered"), nil
}
