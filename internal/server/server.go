// Package server provides the MCP server implementation for the neurogalaxy service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/localrivet/gomcp/server"
	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/localrivet/neurogalaxy/internal/notestore"
	"github.com/localrivet/neurogalaxy/internal/pipeline"
	"github.com/localrivet/neurogalaxy/internal/tools"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("one or more required dependencies are nil")
)

// Processor builds a galaxy from a note collection.
type Processor interface {
	Process(ctx context.Context, notes []string) (*pipeline.Galaxy, error)
}

// HealthFunc returns the serialized health report.
type HealthFunc func() (string, error)

// MCPGalaxyToolServer implements the GalaxyToolServer interface
// for handling MCP tool calls that build and manage the note galaxy.
type MCPGalaxyToolServer struct {
	store     notestore.NoteStore
	processor Processor
	health    HealthFunc
	logger    *slog.Logger
	mcpServer server.Server
}

// NewGalaxyToolServer creates a new MCPGalaxyToolServer instance. health may be nil.
func NewGalaxyToolServer(store notestore.NoteStore, processor Processor, health HealthFunc, logger *slog.Logger) *MCPGalaxyToolServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPGalaxyToolServer{
		store:     store,
		processor: processor,
		health:    health,
		logger:    logger,
	}
}

// Initialize registers the tools with a new MCP server.
func (s *MCPGalaxyToolServer) Initialize() error {
	s.logger.Info("Initializing MCP Galaxy Tool Server")

	if s.store == nil || s.processor == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	srv := server.NewServer("neurogalaxy")

	srv = srv.Tool(tools.ToolProcessNotes, "Lay out a list of notes as a labelled 3D galaxy without storing them",
		s.handleProcessNotes)

	srv = srv.Tool(tools.ToolAddNotes, "Append notes to the stored collection and recompute the whole galaxy",
		s.handleAddNotes)

	srv = srv.Tool(tools.ToolGetNodes, "Lay out every stored note as a labelled 3D galaxy",
		s.handleGetNodes)

	srv = srv.Tool(tools.ToolClearNotes, "Remove every stored note",
		s.handleClearNotes)

	srv = srv.Tool(tools.ToolGalaxyHealth, "Report cluster naming and pipeline health",
		s.handleGalaxyHealth)

	s.mcpServer = srv
	s.logger.Info("MCP Galaxy Tool Server initialized successfully", "tool_count", 5)
	return nil
}

// Start serves the tools over the stdio transport until stdin closes.
func (s *MCPGalaxyToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	s.logger.Info("Starting MCP Galaxy Tool Server")
	return s.mcpServer.AsStdio().Run()
}

// Stop gracefully shuts down the MCP server.
func (s *MCPGalaxyToolServer) Stop() error {
	s.logger.Info("Stopping MCP Galaxy Tool Server")
	// The stdio transport exits when stdin is closed
	return nil
}

// handleProcessNotes handles the process_notes MCP tool call.
func (s *MCPGalaxyToolServer) handleProcessNotes(_ *server.Context, req tools.ProcessNotesRequest) (tools.GalaxyResponse, error) {
	s.logger.Info("Processing process_notes request", "notes", len(req.Notes))

	galaxy, err := s.processor.Process(context.Background(), req.Notes)
	if err != nil {
		response := tools.GalaxyResponse{}
		response.Status, response.Code, response.Error = errorFields(err)
		return response, nil
	}

	s.logger.Info("Successfully processed notes", "nodes", len(galaxy.Nodes), "clusters", len(galaxy.ClusterNames))
	return tools.NewGalaxyResponse(galaxy), nil
}

// handleAddNotes handles the add_notes MCP tool call.
func (s *MCPGalaxyToolServer) handleAddNotes(_ *server.Context, req tools.AddNotesRequest) (tools.AddNotesResponse, error) {
	s.logger.Info("Processing add_notes request", "notes", len(req.Notes))

	response := tools.AddNotesResponse{Status: tools.StatusSuccess}

	total, err := s.store.Append(req.Notes)
	if err != nil {
		errortypes.LogError(s.logger, err)
		response.Status, response.Code, response.Error = errorFields(err)
		return response, nil
	}
	response.TotalCount = total

	notes, err := s.store.List()
	if err != nil {
		errortypes.LogError(s.logger, err)
		response.Status, response.Code, response.Error = errorFields(err)
		return response, nil
	}

	// The notes stay stored even when the layout fails.
	galaxy, err := s.processor.Process(context.Background(), notes)
	if err != nil {
		response.Status, response.Code, response.Error = errorFields(err)
		return response, nil
	}

	response.Message = fmt.Sprintf("Added %d note(s)", len(req.Notes))
	response.Galaxy = galaxy
	s.logger.Info("Successfully added notes", "added", len(req.Notes), "total", total)
	return response, nil
}

// handleGetNodes handles the get_nodes MCP tool call.
func (s *MCPGalaxyToolServer) handleGetNodes(_ *server.Context, _ tools.GetNodesRequest) (tools.GalaxyResponse, error) {
	s.logger.Info("Processing get_nodes request")

	response := tools.GalaxyResponse{}

	notes, err := s.store.List()
	if err != nil {
		errortypes.LogError(s.logger, err)
		response.Status, response.Code, response.Error = errorFields(err)
		return response, nil
	}

	galaxy, err := s.processor.Process(context.Background(), notes)
	if err != nil {
		response.Status, response.Code, response.Error = errorFields(err)
		return response, nil
	}
	return tools.NewGalaxyResponse(galaxy), nil
}

// handleClearNotes handles the clear_notes MCP tool call.
func (s *MCPGalaxyToolServer) handleClearNotes(_ *server.Context, req tools.ClearNotesRequest) (tools.ClearNotesResponse, error) {
	s.logger.Info("Processing clear_notes request")

	response := tools.ClearNotesResponse{Status: tools.StatusSuccess}

	if req.Confirmation != tools.ClearConfirmation {
		err := errortypes.ValidationError(errors.New("missing confirmation"),
			"Confirmation required. Set confirmation to 'confirm' to proceed with clearing all notes")
		s.logger.Warn("Clear notes operation rejected: missing confirmation")
		response.Status, response.Code, response.Error = errorFields(err)
		return response, nil
	}

	count, err := s.store.Clear()
	if err != nil {
		errortypes.LogError(s.logger, err)
		response.Status, response.Code, response.Error = errorFields(err)
		return response, nil
	}

	s.logger.Info("Successfully cleared notes", "count", count)
	response.DeletedCount = count
	return response, nil
}

// handleGalaxyHealth handles the galaxy_health MCP tool call.
func (s *MCPGalaxyToolServer) handleGalaxyHealth(_ *server.Context, _ tools.GalaxyHealthRequest) (tools.GalaxyHealthResponse, error) {
	response := tools.GalaxyHealthResponse{Status: tools.StatusSuccess}

	if s.health == nil {
		err := errortypes.ConfigError(errors.New("no health source"), "health reporting is not configured")
		response.Status, response.Code, response.Error = errorFields(err)
		return response, nil
	}

	report, err := s.health()
	if err != nil {
		errortypes.LogError(s.logger, err)
		response.Status, response.Code, response.Error = errorFields(err)
		return response, nil
	}
	response.Health = report
	return response, nil
}

// errorFields returns the status, code and message a tool response carries for err.
func errorFields(err error) (status, code, message string) {
	resp := ToErrorResponse(err)
	return resp.Status, resp.Code, resp.Message
}
