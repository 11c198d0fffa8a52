package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"reportstudio/internal/domain"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

// objectArg reads an object argument. Clients that cannot send nested objects
// may pass it as a JSON string instead.
func objectArg(req mcp.CallToolRequest, key string) (map[string]any, bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, true, nil
	case string:
		if v == "" {
			return nil, false, nil
		}
		var out map[string]any
		if err := parseJSON(v, &out); err != nil {
			return nil, false, fmt.Errorf("%s: invalid JSON object: %w", key, err)
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("%s must be an object", key)
	}
}

// sectionPatchArgs builds a SectionPatch from the optional arguments present
// in the request.
func sectionPatchArgs(req mcp.CallToolRequest) domain.SectionPatch {
	args := req.GetArguments()
	var p domain.SectionPatch
	if _, ok := args["title"]; ok {
		v := req.GetString("title", "")
		p.Title = &v
	}
	if _, ok := args["level"]; ok {
		v := req.GetInt("level", domain.MinSectionLevel)
		p.Level = &v
	}
	if _, ok := args["status"]; ok {
		v := domain.SectionStatus(req.GetString("status", ""))
		p.Status = &v
	}
	if _, ok := args["locked"]; ok {
		v := req.GetBool("locked", false)
		p.IsLocked = &v
	}
	if _, ok := args["collapsed"]; ok {
		v := req.GetBool("collapsed", false)
		p.IsCollapsed = &v
	}
	return p
}
