package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("draft_report",
		mcp.WithPromptDescription("Guide through drafting a structured report in the open document"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Subject of the report"),
			mcp.RequiredArgument(),
		),
	), s.handleDraftReportPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("review_section",
		mcp.WithPromptDescription("Review and tighten the text of one section"),
		mcp.WithArgument("sectionId",
			mcp.ArgumentDescription("Section to review"),
			mcp.RequiredArgument(),
		),
	), s.handleReviewSectionPrompt)
}

func (s *Server) handleDraftReportPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Draft a report about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Draft a report about "%s" in the open document. Follow these steps:

1. Read report://outline to see what already exists
2. Use add_section for "Summary", "Findings" and "Next steps" with status "generated"
3. Under Summary, add a kpi_card block per headline number with add_block
4. Under Findings, add paragraph blocks and at least one chart or table
5. Finish with a callout block listing open questions

Never edit locked sections. If a step goes wrong, use undo.`, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handleReviewSectionPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := req.Params.Arguments["sectionId"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review section %s", id),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Review section %s of the open report:

1. Call get_document and locate the section
2. For each paragraph, rewrite it for clarity with update_block, keeping facts unchanged
3. Merge duplicated points by deleting the redundant block
4. Report what you changed in one short list`, id),
				},
			},
		},
	}, nil
}
