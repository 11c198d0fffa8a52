package domain

const (
	MinZoom     = 50
	MaxZoom     = 200
	DefaultZoom = 100
)

// EditorState is the UI-facing selection state. Empty ids mean nothing is
// selected.
type EditorState struct {
	SelectedSectionID string `json:"selectedSectionId"`
	SelectedBlockID   string `json:"selectedBlockId"`
	IsEditing         bool   `json:"isEditing"`
	ZoomLevel         int    `json:"zoomLevel"`
}

// NewEditorState returns the initial editor state.
func NewEditorState() EditorState {
	return EditorState{ZoomLevel: DefaultZoom}
}

// ClampZoom forces a zoom percentage into [MinZoom, MaxZoom].
func ClampZoom(percent int) int {
	if percent < MinZoom {
		return MinZoom
	}
	if percent > MaxZoom {
		return MaxZoom
	}
	return percent
}
