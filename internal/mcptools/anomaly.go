package mcptools

import (
	"context"
	"fmt"

	"github.com/chrissnell/rhythmanchor/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
)

// AnomalyTool handles the anomaly_score MCP tool.
type AnomalyTool struct {
	engine *engine.Engine
}

// NewAnomalyTool creates an AnomalyTool.
func NewAnomalyTool(eng *engine.Engine) *AnomalyTool {
	return &AnomalyTool{engine: eng}
}

type anomalyResult struct {
	Score   float64 `json:"anomaly_score"`
	Anomaly bool    `json:"anomaly"`
}

// Definition returns the MCP tool definition for anomaly_score.
func (t *AnomalyTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(
			"Score one day of phone and activity behavior against the healthy baseline. " +
				"Positive scores are typical, negative scores are anomalous.",
		),
	}, sampleArgs()...)
	return mcp.NewTool("anomaly_score", opts...)
}

// Handle processes the anomaly_score tool call.
func (t *AnomalyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sample, err := sampleFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	score, err := t.engine.Score(sample)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("scoring failed", err), nil
	}

	res := anomalyResult{Score: score, Anomaly: score < 0}
	verdict := "typical"
	if res.Anomaly {
		verdict = "anomalous"
	}
	return mcp.NewToolResultStructured(res, fmt.Sprintf("Anomaly score %+.4f (%s)", score, verdict)), nil
}
