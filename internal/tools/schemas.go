// Package tools defines the MCP tool names and the request and response
// schemas for the neurogalaxy service.
package tools

import "github.com/localrivet/neurogalaxy/internal/pipeline"

const (
	// ToolProcessNotes is the name of the process_notes MCP tool
	ToolProcessNotes = "process_notes"

	// ToolAddNotes is the name of the add_notes MCP tool
	ToolAddNotes = "add_notes"

	// ToolGetNodes is the name of the get_nodes MCP tool
	ToolGetNodes = "get_nodes"

	// ToolClearNotes is the name of the clear_notes MCP tool
	ToolClearNotes = "clear_notes"

	// ToolGalaxyHealth is the name of the galaxy_health MCP tool
	ToolGalaxyHealth = "galaxy_health"

	// ClearConfirmation must be sent in a clear_notes request
	ClearConfirmation = "confirm"
)

// Response status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ProcessNotesRequest defines the input schema for process_notes tool
type ProcessNotesRequest struct {
	// Notes are processed as given and are not stored
	Notes []string `json:"notes"`
}

// GalaxyResponse defines the output schema for process_notes and get_nodes
type GalaxyResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	Nodes        []pipeline.Node `json:"nodes"`
	ClusterNames map[int]string  `json:"cluster_names"`

	// Code is a stable error code if Status is "error"
	Code string `json:"code,omitempty"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// GetNodesRequest defines the input schema for get_nodes tool
type GetNodesRequest struct{}

// AddNotesRequest defines the input schema for add_notes tool
type AddNotesRequest struct {
	// Notes are appended after the stored collection
	Notes []string `json:"notes"`
}

// AddNotesResponse defines the output schema for add_notes tool
type AddNotesResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`

	// TotalCount is the size of the stored collection after the append
	TotalCount int `json:"total_count"`

	// Galaxy is recomputed over the whole stored collection
	Galaxy *pipeline.Galaxy `json:"galaxy,omitempty"`

	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// ClearNotesRequest defines the input schema for clear_notes tool
type ClearNotesRequest struct {
	// Confirmation must be set to "confirm" to prevent accidental clearing
	Confirmation string `json:"confirmation"`
}

// ClearNotesResponse defines the output schema for clear_notes tool
type ClearNotesResponse struct {
	Status       string `json:"status"`
	DeletedCount int    `json:"deleted_count"`
	Code         string `json:"code,omitempty"`
	Error        string `json:"error,omitempty"`
}

// GalaxyHealthRequest defines the input schema for galaxy_health tool
type GalaxyHealthRequest struct{}

// GalaxyHealthResponse defines the output schema for galaxy_health tool
type GalaxyHealthResponse struct {
	Status string `json:"status"`

	// Health is the serialized namer and pipeline health report
	Health string `json:"health,omitempty"`

	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewGalaxyResponse wraps a galaxy in a successful response.
func NewGalaxyResponse(galaxy *pipeline.Galaxy) GalaxyResponse {
	if galaxy == nil {
		galaxy = pipeline.EmptyGalaxy()
	}
	return GalaxyResponse{
		Status:       StatusSuccess,
		Nodes:        galaxy.Nodes,
		ClusterNames: galaxy.ClusterNames,
	}
}
