package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chrissnell/rhythmanchor/internal/engine"
	"github.com/chrissnell/rhythmanchor/internal/scroll"
	"github.com/mark3labs/mcp-go/mcp"
)

// DoomscrollTool handles the doomscroll_risk MCP tool.
type DoomscrollTool struct {
	engine *engine.Engine
	now    func() time.Time
}

// NewDoomscrollTool creates a DoomscrollTool.
func NewDoomscrollTool(eng *engine.Engine) *DoomscrollTool {
	return &DoomscrollTool{engine: eng, now: time.Now}
}

type doomscrollResult struct {
	Risk     int      `json:"risk"`
	HighRisk bool     `json:"high_risk"`
	Reasons  []string `json:"reasons"`
}

// Definition returns the MCP tool definition for doomscroll_risk.
func (t *DoomscrollTool) Definition() mcp.Tool {
	return mcp.NewTool("doomscroll_risk",
		mcp.WithDescription(
			"Simulate a minute of scrolling and score it for compulsive doomscrolling. "+
				"Risk is 0-100; above 60 is high risk.",
		),
		mcp.WithNumber("intensity",
			mcp.Required(),
			mcp.Description("Mean scroll velocity in px/s. 300 and above means continuous scrolling."),
		),
		mcp.WithNumber("erraticness",
			mcp.Description("Velocity noise (default: 5)"),
			mcp.Min(0),
		),
		mcp.WithNumber("hour",
			mcp.Description("Hour of day 0-23 the session happens at (default: current hour)"),
			mcp.Min(0),
			mcp.Max(23),
		),
	)
}

// Handle processes the doomscroll_risk tool call.
func (t *DoomscrollTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, ok := req.GetArguments()["intensity"]; !ok {
		return mcp.NewToolResultError("'intensity' is required"), nil
	}

	now := t.now()
	hour := req.GetInt("hour", now.Hour())
	if hour < 0 || hour > 23 {
		return mcp.NewToolResultError(fmt.Sprintf("'hour' must be between 0 and 23, got %d", hour)), nil
	}
	clock := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())

	_, result, err := t.engine.Doomscroll(req.GetFloat("intensity", 0), req.GetFloat("erraticness", 5), clock)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := doomscrollResult{
		Risk:     result.Risk,
		HighRisk: scroll.IsHighRisk(result.Risk),
		Reasons:  result.Reasons,
	}

	text := fmt.Sprintf("Doomscroll risk %d%%", res.Risk)
	if res.HighRisk {
		text += " (high risk)"
	}
	if len(res.Reasons) > 0 {
		text += "\nReasons: " + strings.Join(res.Reasons, ", ")
	}
	return mcp.NewToolResultStructured(res, text), nil
}
