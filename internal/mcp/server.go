package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"reportstudio/internal/domain"
	"reportstudio/internal/logger"
	"reportstudio/internal/service"
	"reportstudio/internal/tree"
)

// NotificationMethod carries document events to connected MCP clients.
const NotificationMethod = "notifications/report"

// Server is the MCP server for the report editor.
// It exposes tools, resources, and prompts so AI agents can edit the open report.
type Server struct {
	mcp  *server.MCPServer
	docs *service.DocumentService
	log  *logger.Logger
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Docs    *service.DocumentService
	Logger  *logger.Logger
	Version string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Version == "" {
		deps.Version = "1.0.0"
	}
	s := &Server{
		docs: deps.Docs,
		log:  deps.Logger.With("mcp"),
	}

	s.mcp = server.NewMCPServer(
		"reportstudio-mcp",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerDocumentTools()
	s.registerSectionTools()
	s.registerBlockTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info().Msg("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ToolNames lists the registered tools.
func (s *Server) ToolNames() []string {
	tools := s.mcp.ListTools()
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	return names
}

// Notify forwards a document event to every connected client. It has the
// signature of a Broadcaster subscriber.
func (s *Server) Notify(_ context.Context, event string, data any) {
	s.mcp.SendNotificationToAllClients(NotificationMethod, map[string]any{
		"event": event,
		"data":  data,
	})
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// opError reports a failed document operation to the agent as a tool error so
// it can correct itself, for example after hitting a locked section.
func opError(op string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultErrorFromErr(op, err)
}

// ownerOf returns the section holding blockID.
func (s *Server) ownerOf(blockID string) (string, error) {
	_, owner, err := tree.FindBlock(s.docs.Tree(), blockID)
	if err != nil {
		return "", err
	}
	return owner.ID, nil
}

// resolveSectionID returns the sectionId argument, or the owner of blockID
// when it is omitted.
func (s *Server) resolveSectionID(req mcp.CallToolRequest, key, blockID string) (string, error) {
	if id := req.GetString(key, ""); id != "" {
		return id, nil
	}
	return s.ownerOf(blockID)
}

// documentView is the get_document payload.
type documentView struct {
	Document domain.Document    `json:"document"`
	Editor   domain.EditorState `json:"editor"`
	CanUndo  bool               `json:"canUndo"`
	CanRedo  bool               `json:"canRedo"`
}
