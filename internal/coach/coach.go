// Package coach forwards wellness questions to a generative-text service.
//
// A Responder never fails: every problem on the way to the service is turned
// into a message the user can read.
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/chrissnell/rhythmanchor/pkg/config"
	"go.uber.org/zap"
)

// SystemPreamble is sent ahead of every conversation
const SystemPreamble = `You are Rhythm Anchor, a smart, encouraging, and action-oriented wellness coach.
Your goal is to help users improve sleep, reduce screen time, and lower stress with precise, science-backed advice.
- Be Precise & Actionable.
- Use Bold Text and Bullet Points.
- Keep it short.`

const preambleAck = "Understood. I am Rhythm Anchor."

// MissingKeyMessage is returned when no API key is configured
const MissingKeyMessage = "Gemini API Key is missing or invalid. Check setup."

// Responder answers a message given the prior conversation
type Responder interface {
	Respond(ctx context.Context, message string, history []types.ChatTurn) string
}

// GeminiClient talks to the Gemini generateContent endpoint
type GeminiClient struct {
	apiKey       string
	model        string
	endpoint     string
	historyTurns int
	maxTurnChars int
	client       *http.Client
	logger       *zap.SugaredLogger
}

// NewGeminiClient builds a client from the coach configuration. Defaults
// must already be applied.
func NewGeminiClient(cfg config.CoachData, logger *zap.SugaredLogger) *GeminiClient {
	return &GeminiClient{
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		endpoint:     strings.TrimRight(cfg.APIEndpoint, "/"),
		historyTurns: cfg.HistoryTurns,
		maxTurnChars: cfg.MaxTurnChars,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Respond sends the preamble, the most recent history turns and the new
// message. Older turns are dropped, not summarized.
func (g *GeminiClient) Respond(ctx context.Context, message string, history []types.ChatTurn) string {
	if g.apiKey == "" {
		return MissingKeyMessage
	}

	reply, err := g.generate(ctx, g.buildContents(message, history))
	if err != nil {
		g.logger.Warnf("coach request failed: %v", err)
		return fmt.Sprintf("AI Error: %v", err)
	}
	return reply
}

func (g *GeminiClient) buildContents(message string, history []types.ChatTurn) []content {
	recent := RecentTurns(history, g.historyTurns)

	contents := make([]content, 0, len(recent)+3)
	contents = append(contents,
		content{Role: "user", Parts: []part{{Text: SystemPreamble}}},
		content{Role: "model", Parts: []part{{Text: preambleAck}}},
	)
	for _, turn := range recent {
		role := "model"
		if turn.Role == types.RoleUser {
			role = "user"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: truncate(turn.Text, g.maxTurnChars)}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: truncate(message, g.maxTurnChars)}}})
	return contents
}

func (g *GeminiClient) generate(ctx context.Context, contents []content) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: contents})
	if err != nil {
		return "", fmt.Errorf("error encoding request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, url.PathEscape(g.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	g.logger.Debugf("sending %d turns to %s", len(contents), g.model)
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("unable to decode response (status %s): %w", resp.Status, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("service error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("response contained no candidates")
	}

	var b strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// RecentTurns returns at most n of the newest turns, oldest first
func RecentTurns(history []types.ChatTurn, n int) []types.ChatTurn {
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
