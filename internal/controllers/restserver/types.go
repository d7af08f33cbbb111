package restserver

import (
	"time"

	"github.com/chrissnell/rhythmanchor/internal/stability"
	"github.com/chrissnell/rhythmanchor/internal/types"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signInResponse struct {
	SessionID string           `json:"session_id"`
	User      types.UserRecord `json:"user"`
}

type profileUpdateRequest struct {
	FullName string `json:"full_name"`
	Age      int    `json:"age"`
}

type stabilityRequest struct {
	AnomalyScore *float64 `json:"anomaly_score"`
	Lifestyle    []string `json:"lifestyle"`
	Symptoms     []string `json:"symptoms"`
	Age          int      `json:"age"`
}

type stabilityResponse struct {
	types.StabilityResult
	Status stability.Status `json:"status"`
}

type doomscrollRequest struct {
	Intensity   float64   `json:"scroll_intensity"`
	Erraticness float64   `json:"scroll_erraticness"`
	Clock       time.Time `json:"clock"`
}

type doomscrollResponse struct {
	types.DoomscrollResult
	HighRisk bool              `json:"high_risk"`
	Trace    types.ScrollTrace `json:"trace"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string           `json:"reply"`
	Chat  []types.ChatTurn `json:"chat"`
}

type statusResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions,omitempty"`
}
