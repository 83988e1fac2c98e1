package server

// GalaxyToolServer defines the interface for the MCP server that handles
// galaxy tool calls from MCP clients.
type GalaxyToolServer interface {
	// Initialize registers the tools.
	Initialize() error

	// Start serves the tools on the stdio transport.
	Start() error

	// Stop gracefully shuts down the MCP server.
	Stop() error
}

var _ GalaxyToolServer = (*MCPGalaxyToolServer)(nil)
