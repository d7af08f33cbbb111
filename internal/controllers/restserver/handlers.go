package restserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/chrissnell/rhythmanchor/internal/credentials"
	"github.com/chrissnell/rhythmanchor/internal/engine"
	"github.com/chrissnell/rhythmanchor/internal/log"
	"github.com/chrissnell/rhythmanchor/internal/scroll"
	"github.com/chrissnell/rhythmanchor/internal/stability"
	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/chrissnell/rhythmanchor/pkg/responseformat"
)

// maxBodyBytes caps every request body
const maxBodyBytes = 64 << 10

// requestLogUser is the only account allowed to read the request log
const requestLogUser = "admin"

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// decodeBody reads a JSON request body into v
func decodeBody(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeServiceError maps domain errors onto HTTP statuses
func (h *Handlers) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, credentials.ErrInvalidCredentials):
		h.formatter.WriteError(w, req, http.StatusUnauthorized, err.Error())
	case errors.Is(err, credentials.ErrNotFound):
		h.formatter.WriteError(w, req, http.StatusNotFound, err.Error())
	case errors.Is(err, credentials.ErrExists):
		h.formatter.WriteError(w, req, http.StatusConflict, err.Error())
	case errors.Is(err, credentials.ErrInvalidUser),
		errors.Is(err, types.ErrFeatureShape),
		errors.Is(err, scroll.ErrInvalidKnob):
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
	default:
		h.controller.logger.Errorf("error handling %s %s: %v", req.Method, req.URL.Path, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "internal server error")
	}
}

// Health reports liveness and the number of open sessions
func (h *Handlers) Health(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, http.StatusOK, statusResponse{
		Status:   "ok",
		Sessions: h.controller.services.Sessions.Count(),
	})
}

// SignIn checks the credentials and opens a session
func (h *Handlers) SignIn(w http.ResponseWriter, req *http.Request) {
	var body credentialsRequest
	if err := decodeBody(w, req, &body); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	user, err := credentials.Authenticate(req.Context(), h.controller.services.Users, body.Username, body.Password)
	if err != nil {
		h.writeServiceError(w, req, err)
		return
	}

	sess := h.controller.services.Sessions.Open(user.Username)
	h.controller.logger.Infof("user %s signed in", user.Username)

	h.formatter.WriteResponse(w, req, http.StatusOK, signInResponse{SessionID: sess.ID, User: user})
}

// SignUp creates an account. It does not sign the new user in.
func (h *Handlers) SignUp(w http.ResponseWriter, req *http.Request) {
	var body credentialsRequest
	if err := decodeBody(w, req, &body); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	user, err := credentials.SignUp(req.Context(), h.controller.services.Users, body.Username, body.Password)
	if err != nil {
		h.writeServiceError(w, req, err)
		return
	}

	h.controller.logger.Infof("account %s created", user.Username)
	h.formatter.WriteResponse(w, req, http.StatusCreated, user)
}

// SignOut closes the caller's session and drops its history and chat
func (h *Handlers) SignOut(w http.ResponseWriter, req *http.Request) {
	sess := sessionFromContext(req)
	if err := h.controller.services.Sessions.Close(sess.ID); err != nil {
		h.formatter.WriteError(w, req, http.StatusUnauthorized, err.Error())
		return
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, statusResponse{Status: "signed out"})
}

// GetProfile returns the caller's account
func (h *Handlers) GetProfile(w http.ResponseWriter, req *http.Request) {
	sess := sessionFromContext(req)
	user, err := h.controller.services.Users.Get(req.Context(), sess.Username)
	if err != nil {
		h.writeServiceError(w, req, err)
		return
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, user)
}

// UpdateProfile changes the caller's display name and age
func (h *Handlers) UpdateProfile(w http.ResponseWriter, req *http.Request) {
	var body profileUpdateRequest
	if err := decodeBody(w, req, &body); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.FullName) == "" {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "full_name is required")
		return
	}
	if body.Age <= 0 || body.Age > 130 {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "age must be between 1 and 130")
		return
	}

	sess := sessionFromContext(req)
	if err := h.controller.services.Users.UpdateProfile(req.Context(), sess.Username, body.FullName, body.Age); err != nil {
		h.writeServiceError(w, req, err)
		return
	}

	h.GetProfile(w, req)
}

// Evaluate scores a simulated day. The profile age is used when the request
// leaves it out, and the server clock when no clock is given.
func (h *Handlers) Evaluate(w http.ResponseWriter, req *http.Request) {
	report, ok := h.evaluateDay(w, req)
	if !ok {
		return
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, report)
}

// evaluateDay decodes a DayInput and runs it through the engine. On failure
// the error response has already been written.
func (h *Handlers) evaluateDay(w http.ResponseWriter, req *http.Request) (engine.DayReport, bool) {
	var in engine.DayInput
	if err := decodeBody(w, req, &in); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return engine.DayReport{}, false
	}
	if msg := validateDayInput(in); msg != "" {
		h.formatter.WriteError(w, req, http.StatusBadRequest, msg)
		return engine.DayReport{}, false
	}

	if in.Age == 0 {
		sess := sessionFromContext(req)
		if user, err := h.controller.services.Users.Get(req.Context(), sess.Username); err == nil {
			in.Age = user.Age
		}
	}
	if in.Clock.IsZero() {
		in.Clock = h.controller.now()
	}

	report, err := h.controller.services.Engine.Evaluate(req.Context(), in)
	if err != nil {
		h.writeServiceError(w, req, err)
		return engine.DayReport{}, false
	}
	return report, true
}

func validateDayInput(in engine.DayInput) string {
	switch {
	case in.AlarmHour < 0 || in.AlarmHour > 23:
		return "alarm_hour must be between 0 and 23"
	case in.WakeHour < 0 || in.WakeHour > 23:
		return "wake_hour must be between 0 and 23"
	case in.Steps < 0:
		return "steps must not be negative"
	case (in.AppSwitchRate != nil && *in.AppSwitchRate < 0) || (in.PickupCount != nil && *in.PickupCount < 0):
		return "app_switch_rate and pickup_count must not be negative"
	case in.Age < 0:
		return "age must not be negative"
	}
	return ""
}

// Stability is the raw calculator: it applies the penalties to a given
// anomaly score without touching the model.
func (h *Handlers) Stability(w http.ResponseWriter, req *http.Request) {
	var body stabilityRequest
	if err := decodeBody(w, req, &body); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	if body.AnomalyScore == nil || math.IsNaN(*body.AnomalyScore) || math.IsInf(*body.AnomalyScore, 0) {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "anomaly_score must be a finite number")
		return
	}

	result := stability.Calculate(*body.AnomalyScore, body.Lifestyle, body.Symptoms, body.Age)
	h.formatter.WriteResponse(w, req, http.StatusOK, stabilityResponse{
		StabilityResult: result,
		Status:          stability.Classify(result.FinalIndex),
	})
}

// Doomscroll generates a trace from the scroll knobs and scores it
func (h *Handlers) Doomscroll(w http.ResponseWriter, req *http.Request) {
	var body doomscrollRequest
	if err := decodeBody(w, req, &body); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	if body.Clock.IsZero() {
		body.Clock = h.controller.now()
	}

	trace, result, err := h.controller.services.Engine.Doomscroll(body.Intensity, body.Erraticness, body.Clock)
	if err != nil {
		h.writeServiceError(w, req, err)
		return
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, doomscrollResponse{
		DoomscrollResult: result,
		HighRisk:         scroll.IsHighRisk(result.Risk),
		Trace:            trace,
	})
}

// SaveHistory evaluates the day it is given and appends the resulting
// stability index to the session trend log. Downstream publishing is best
// effort.
func (h *Handlers) SaveHistory(w http.ResponseWriter, req *http.Request) {
	report, ok := h.evaluateDay(w, req)
	if !ok {
		return
	}

	sess := sessionFromContext(req)
	entry := sess.SaveDay(report.Stability.FinalIndex)

	if err := h.controller.services.Events.PublishDay(req.Context(), sess.Username, entry); err != nil {
		h.controller.logger.Warnf("could not publish %s for %s: %v", entry.Day, sess.Username, err)
	}

	h.formatter.WriteResponse(w, req, http.StatusCreated, entry)
}

// GetHistory returns the session trend log
func (h *Handlers) GetHistory(w http.ResponseWriter, req *http.Request) {
	history := sessionFromContext(req).History()
	if history == nil {
		history = []types.HistoryEntry{}
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, history)
}

// GetChat returns the session chat log
func (h *Handlers) GetChat(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, http.StatusOK, sessionFromContext(req).Chat())
}

// PostChat sends a message to the coach and records both turns
func (h *Handlers) PostChat(w http.ResponseWriter, req *http.Request) {
	var body chatRequest
	if err := decodeBody(w, req, &body); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "message is required")
		return
	}

	sess := sessionFromContext(req)
	reply := h.controller.services.Coach.Respond(req.Context(), body.Message, sess.Chat())
	sess.AppendChat(
		types.ChatTurn{Role: types.RoleUser, Text: body.Message},
		types.ChatTurn{Role: types.RoleAssistant, Text: reply},
	)

	h.formatter.WriteResponse(w, req, http.StatusOK, chatResponse{Reply: reply, Chat: sess.Chat()})
}

// GetRequestLog returns the buffered HTTP request log
func (h *Handlers) GetRequestLog(w http.ResponseWriter, req *http.Request) {
	if sessionFromContext(req).Username != requestLogUser {
		h.formatter.WriteError(w, req, http.StatusForbidden, "the request log is restricted to the administrator")
		return
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, log.GetHTTPLogBuffer().GetEntries())
}
