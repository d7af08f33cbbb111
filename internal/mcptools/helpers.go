// Package mcptools exposes the scoring engine as MCP tools.
//
// Each tool holds the engine it scores with and follows the same shape:
// Definition for registration and Handle for calls. Bad input is reported
// as a tool error result, never as a Go error.
package mcptools

import (
	"fmt"
	"math"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/mark3labs/mcp-go/mcp"
)

// sampleArgs adds the four behavioral feature arguments to a tool
func sampleArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("snooze_delta",
			mcp.Required(),
			mcp.Description("Hours between alarm and first unlock. Healthy baseline is about 0.5."),
		),
		mcp.WithNumber("daily_steps",
			mcp.Required(),
			mcp.Description("Step count for the day. Healthy baseline is about 7000."),
		),
		mcp.WithNumber("app_switch_rate",
			mcp.Description("App switches per unit time (default: 40)"),
		),
		mcp.WithNumber("pickup_count",
			mcp.Description("Phone pickups for the day (default: 80)"),
		),
	}
}

// sampleFromRequest reads the feature arguments. A missing required
// feature is an error; optional ones fall back to the baseline means.
func sampleFromRequest(req mcp.CallToolRequest) (types.BehavioralSample, error) {
	args := req.GetArguments()
	for _, key := range []string{"snooze_delta", "daily_steps"} {
		if _, ok := args[key]; !ok {
			return types.BehavioralSample{}, fmt.Errorf("'%s' is required", key)
		}
	}

	s := types.BehavioralSample{
		SnoozeDelta:   req.GetFloat("snooze_delta", 0),
		DailySteps:    req.GetFloat("daily_steps", 0),
		AppSwitchRate: req.GetFloat("app_switch_rate", 40),
		PickupCount:   req.GetFloat("pickup_count", 80),
	}
	if err := types.ValidateFeatures(s.Features()); err != nil {
		return types.BehavioralSample{}, err
	}
	return s, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
