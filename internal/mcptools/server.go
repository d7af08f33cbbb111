package mcptools

import (
	"github.com/chrissnell/rhythmanchor/internal/engine"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

const instructions = `Rhythm Anchor scores daily behavior for signs of a disrupted routine.
Use anomaly_score for the raw model output, stability_index for the 0-100 index
with lifestyle and symptom penalties, and doomscroll_risk for scrolling sessions.
Nothing is stored between calls.`

// NewServer creates an MCP server with every scoring tool registered.
func NewServer(eng *engine.Engine) *server.MCPServer {
	s := server.NewMCPServer(
		"rhythmanchor",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	anomalyTool := NewAnomalyTool(eng)
	s.AddTool(anomalyTool.Definition(), anomalyTool.Handle)

	stabilityTool := NewStabilityTool(eng)
	s.AddTool(stabilityTool.Definition(), stabilityTool.Handle)

	doomscrollTool := NewDoomscrollTool(eng)
	s.AddTool(doomscrollTool.Definition(), doomscrollTool.Handle)

	return s
}
