package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/chrissnell/rhythmanchor/internal/engine"
	"github.com/chrissnell/rhythmanchor/internal/stability"
	"github.com/mark3labs/mcp-go/mcp"
)

// StabilityTool handles the stability_index MCP tool.
type StabilityTool struct {
	engine *engine.Engine
}

// NewStabilityTool creates a StabilityTool.
func NewStabilityTool(eng *engine.Engine) *StabilityTool {
	return &StabilityTool{engine: eng}
}

type stabilityResult struct {
	AnomalyScore float64          `json:"anomaly_score"`
	BaseIndex    int              `json:"base_index"`
	FinalIndex   int              `json:"final_index"`
	Status       stability.Status `json:"status"`
	Reasons      []string         `json:"reasons"`
}

// Definition returns the MCP tool definition for stability_index.
func (t *StabilityTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Compute the 0-100 stability index for one day: the anomaly score of the " +
				"behavior, lowered by lifestyle factors, symptoms and age.",
		),
	}
	opts = append(opts, sampleArgs()...)
	opts = append(opts,
		mcp.WithArray("lifestyle",
			mcp.Description("Lifestyle factors: Smoking, High Stress Work, Regular Alcohol"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("symptoms",
			mcp.Description("Reported symptoms, e.g. Fatigue, Insomnia, Anxiety, Palpitations, Headache"),
			mcp.WithStringItems(),
		),
		mcp.WithNumber("age",
			mcp.Description("Age in years (default: 25)"),
			mcp.Min(0),
		),
	)
	return mcp.NewTool("stability_index", opts...)
}

// Handle processes the stability_index tool call.
func (t *StabilityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sample, err := sampleFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	age := req.GetInt("age", 0)
	if age < 0 {
		return mcp.NewToolResultError("'age' must not be negative"), nil
	}

	score, result, err := t.engine.Stability(sample,
		req.GetStringSlice("lifestyle", nil),
		req.GetStringSlice("symptoms", nil),
		age,
	)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("scoring failed", err), nil
	}

	res := stabilityResult{
		AnomalyScore: score,
		BaseIndex:    result.BaseIndex,
		FinalIndex:   result.FinalIndex,
		Status:       stability.Classify(result.FinalIndex),
		Reasons:      result.Reasons,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stability index %d (%s), base %d, anomaly score %.2f", res.FinalIndex, res.Status, res.BaseIndex, round2(score))
	if len(res.Reasons) > 0 {
		fmt.Fprintf(&b, "\nReasons: %s", strings.Join(res.Reasons, ", "))
	}
	return mcp.NewToolResultStructured(res, b.String()), nil
}
