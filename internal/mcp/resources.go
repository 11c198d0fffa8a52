package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"reportstudio/internal/tree"
)

const (
	documentURI = "report://document"
	outlineURI  = "report://outline"
)

func (s *Server) registerResources() {
	// ── report://document ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		documentURI,
		"Open Report",
		mcp.WithResourceDescription("The open report with its full content tree"),
		mcp.WithMIMEType("application/json"),
	), s.handleDocumentResource)

	// ── report://outline ───────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		outlineURI,
		"Report Outline",
		mcp.WithResourceDescription("Indented list of sections and blocks with their ids"),
		mcp.WithMIMEType("text/plain"),
	), s.handleOutlineResource)
}

func (s *Server) handleDocumentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.docs.Document(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      documentURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleOutlineResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      outlineURI,
			MIMEType: "text/plain",
			Text:     tree.Outline(s.docs.Tree()),
		},
	}, nil
}
