package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerDocumentTools() {
	// ── get_document ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Return the open report: its content tree, editor selection and undo/redo availability"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetDocument)

	// ── find ───────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("find",
		mcp.WithDescription("Fuzzy-search section titles and block text. Returns section and block ids ordered by relevance."),
		mcp.WithString("query", mcp.Description("Text to look for"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum number of matches (default 10)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleFind)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last edit of the report"),
	), s.handleUndo)
	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone edit of the report"),
	), s.handleRedo)

	// ── select ─────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("select",
		mcp.WithDescription("Select a section or a block in the editor. Pass neither to clear the selection."),
		mcp.WithString("sectionId", mcp.Description("Section to select")),
		mcp.WithString("blockId", mcp.Description("Block to select; its section is selected too")),
	), s.handleSelect)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleGetDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(documentView{
		Document: s.docs.Document(),
		Editor:   s.docs.Editor(),
		CanUndo:  s.docs.CanUndo(),
		CanRedo:  s.docs.CanRedo(),
	})
}

func (s *Server) handleFind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return nil, err
	}
	return jsonResult(s.docs.Find(query, req.GetInt("limit", 10)))
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.docs.Undo() {
		return textResult("Nothing to undo"), nil
	}
	return textResult("Undone"), nil
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.docs.Redo() {
		return textResult("Nothing to redo"), nil
	}
	return textResult("Redone"), nil
}

func (s *Server) handleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sectionID := req.GetString("sectionId", "")
	blockID := req.GetString("blockId", "")

	var err error
	switch {
	case blockID != "":
		err = s.docs.SelectBlock(blockID)
	default:
		err = s.docs.SelectSection(sectionID)
	}
	if err != nil {
		return opError("select", err), nil
	}
	ed := s.docs.Editor()
	return textResult(fmt.Sprintf("Selected section %q, block %q", ed.SelectedSectionID, ed.SelectedBlockID)), nil
}
