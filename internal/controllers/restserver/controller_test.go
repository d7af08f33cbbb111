package restserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/rhythmanchor/internal/credentials"
	"github.com/chrissnell/rhythmanchor/internal/engine"
	"github.com/chrissnell/rhythmanchor/internal/session"
	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/chrissnell/rhythmanchor/pkg/config"
	"go.uber.org/zap"
)

type echoCoach struct {
	mu      sync.Mutex
	history []types.ChatTurn
}

func (e *echoCoach) Respond(_ context.Context, message string, history []types.ChatTurn) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = history
	return "echo: " + message
}

type recordingPublisher struct {
	mu      sync.Mutex
	entries []types.HistoryEntry
	err     error
}

func (r *recordingPublisher) PublishDay(_ context.Context, _ string, entry types.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

type fixture struct {
	handler http.Handler
	coach   *echoCoach
	events  *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop().Sugar()

	eng, err := engine.New(engine.DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	users, err := credentials.New(context.Background(), config.CredentialsData{Backend: "memory"}, logger)
	if err != nil {
		t.Fatalf("credentials.New() error = %v", err)
	}

	f := &fixture{coach: &echoCoach{}, events: &recordingPublisher{}}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ctrl, err := NewController(ctx, &sync.WaitGroup{}, config.RESTServerData{EnableCORS: true}, Services{
		Engine:   eng,
		Users:    users,
		Sessions: session.NewManager(),
		Coach:    f.coach,
		Events:   f.events,
	}, logger)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	ctrl.now = func() time.Time { return time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC) }
	f.handler = ctrl.Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) signIn(t *testing.T, username, password string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/signin", "", credentialsRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d body = %s", rec.Code, rec.Body)
	}
	var resp signInResponse
	decode(t, rec, &resp)
	return resp.SessionID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestSignIn(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		username string
		password string
		want     int
	}{
		{"demo admin", "admin", "1234", http.StatusOK},
		{"wrong password", "admin", "12345", http.StatusUnauthorized},
		{"unknown user", "nobody", "1234", http.StatusUnauthorized},
		{"case sensitive", "Admin", "1234", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/signin", "", credentialsRequest{Username: tt.username, Password: tt.password})
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSignInNeverLeaksPassword(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/signin", "", credentialsRequest{Username: "admin", Password: "1234"})
	if strings.Contains(rec.Body.String(), "1234") {
		t.Errorf("response contains the password: %s", rec.Body)
	}
}

func TestSignUp(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/signup", "", credentialsRequest{Username: "maya", Password: "pw"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d", rec.Code)
	}
	var user types.UserRecord
	decode(t, rec, &user)
	if user.FullName != "maya" || user.Age != credentials.DefaultSignupAge {
		t.Errorf("user = %+v", user)
	}

	if rec := f.do(t, http.MethodPost, "/api/signup", "", credentialsRequest{Username: "maya", Password: "other"}); rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/signup", "", credentialsRequest{Username: " ", Password: "pw"}); rec.Code != http.StatusBadRequest {
		t.Errorf("blank username status = %d", rec.Code)
	}

	f.signIn(t, "maya", "pw")
}

func TestSessionRequired(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/history", "/api/chat", "/api/profile"} {
		if rec := f.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without session = %d", path, rec.Code)
		}
		if rec := f.do(t, http.MethodGet, path, "not-a-session", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s with bogus session = %d", path, rec.Code)
		}
	}
}

func TestSignOutDropsSession(t *testing.T) {
	f := newFixture(t)
	id := f.signIn(t, "admin", "1234")

	if rec := f.do(t, http.MethodPost, "/api/signout", id, nil); rec.Code != http.StatusOK {
		t.Fatalf("signout status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/history", id, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("history after signout = %d", rec.Code)
	}
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	id := f.signIn(t, "admin", "1234")

	rec := f.do(t, http.MethodPut, "/api/profile", id, profileUpdateRequest{FullName: "Ada Admin", Age: 64})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body = %s", rec.Code, rec.Body)
	}

	var user types.UserRecord
	decode(t, f.do(t, http.MethodGet, "/api/profile", id, nil), &user)
	if user.FullName != "Ada Admin" || user.Age != 64 || user.Email != "admin@rhythmanchor.com" {
		t.Errorf("profile = %+v", user)
	}

	if rec := f.do(t, http.MethodPut, "/api/profile", id, profileUpdateRequest{FullName: "x", Age: -3}); rec.Code != http.StatusBadRequest {
		t.Errorf("negative age status = %d", rec.Code)
	}
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t)
	id := f.signIn(t, "admin", "1234")

	typical := engine.DayInput{AlarmHour: 7, WakeHour: 7, Steps: 7000, Intensity: 100, Erraticness: 5}
	rec := f.do(t, http.MethodPost, "/api/evaluate", id, typical)
	if rec.Code != http.StatusOK {
		t.Fatalf("evaluate status = %d body = %s", rec.Code, rec.Body)
	}
	var calm engine.DayReport
	decode(t, rec, &calm)
	if calm.Stability.FinalIndex < 0 || calm.Stability.FinalIndex > 100 {
		t.Errorf("final index out of range: %d", calm.Stability.FinalIndex)
	}
	if calm.HighRisk || len(calm.Trace) != 60 {
		t.Errorf("calm day report = %+v", calm.Doomscroll)
	}

	rough := engine.DayInput{
		AlarmHour: 7, WakeHour: 11, Steps: 500,
		Symptoms:  []string{"Headache", "Fatigue"},
		Lifestyle: []string{"Smoking"},
		Intensity: 800, Erraticness: 20,
		Clock: time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC),
	}
	var bad engine.DayReport
	decode(t, f.do(t, http.MethodPost, "/api/evaluate", id, rough), &bad)
	if bad.Stability.FinalIndex >= calm.Stability.FinalIndex {
		t.Errorf("rough day %d not below calm day %d", bad.Stability.FinalIndex, calm.Stability.FinalIndex)
	}
	if !bad.HighRisk || bad.Doomscroll.Risk != 100 {
		t.Errorf("late night doomscroll = %+v", bad.Doomscroll)
	}
}

func TestEvaluateValidation(t *testing.T) {
	f := newFixture(t)
	id := f.signIn(t, "admin", "1234")

	tests := []struct {
		name string
		in   engine.DayInput
	}{
		{"alarm hour", engine.DayInput{AlarmHour: 24, WakeHour: 7}},
		{"negative steps", engine.DayInput{AlarmHour: 7, WakeHour: 7, Steps: -1}},
		{"negative erraticness", engine.DayInput{AlarmHour: 7, WakeHour: 7, Erraticness: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.do(t, http.MethodPost, "/api/evaluate", id, tt.in); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d body = %s", rec.Code, rec.Body)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(`{"alarm_hour": "seven"}`))
	req.Header.Set(SessionHeader, id)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rec.Code)
	}
}

func TestStabilityCalculator(t *testing.T) {
	f := newFixture(t)

	score := 0.1
	rec := f.do(t, http.MethodPost, "/api/stability", "", stabilityRequest{
		AnomalyScore: &score,
		Lifestyle:    []string{"Smoking"},
		Symptoms:     []string{"Fatigue"},
		Age:          30,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got stabilityResponse
	decode(t, rec, &got)
	if got.BaseIndex != 60 || got.FinalIndex != 45 || got.Status != "Risk Detected" {
		t.Errorf("result = %+v", got)
	}

	if rec := f.do(t, http.MethodPost, "/api/stability", "", stabilityRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing score status = %d", rec.Code)
	}
}

func TestDoomscrollUsesServerClock(t *testing.T) {
	f := newFixture(t)

	// The fixture clock is 14:00, so no late night escalation.
	var got doomscrollResponse
	decode(t, f.do(t, http.MethodPost, "/api/doomscroll", "", doomscrollRequest{Intensity: 800, Erraticness: 20}), &got)
	if got.Risk != 80 || !got.HighRisk {
		t.Errorf("result = %+v", got.DoomscrollResult)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	id := f.signIn(t, "admin", "1234")

	var empty []types.HistoryEntry
	decode(t, f.do(t, http.MethodGet, "/api/history", id, nil), &empty)
	if len(empty) != 0 {
		t.Fatalf("fresh history = %+v", empty)
	}

	days := []engine.DayInput{
		{AlarmHour: 7, WakeHour: 7, Steps: 7000, Intensity: 100, Erraticness: 5},
		{AlarmHour: 7, WakeHour: 11, Steps: 500, Symptoms: []string{"Fatigue"}, Intensity: 800, Erraticness: 20},
	}
	var want []int
	for _, day := range days {
		var report engine.DayReport
		decode(t, f.do(t, http.MethodPost, "/api/evaluate", id, day), &report)
		want = append(want, report.Stability.FinalIndex)

		rec := f.do(t, http.MethodPost, "/api/history", id, day)
		if rec.Code != http.StatusCreated {
			t.Fatalf("save status = %d body = %s", rec.Code, rec.Body)
		}
	}

	var history []types.HistoryEntry
	decode(t, f.do(t, http.MethodGet, "/api/history", id, nil), &history)
	if len(history) != 2 || history[0].Day != "Day 1" || history[1].Day != "Day 2" {
		t.Fatalf("history = %+v", history)
	}
	for i, e := range history {
		if e.StabilityIndex != want[i] {
			t.Errorf("%s saved %d, evaluate gave %d", e.Day, e.StabilityIndex, want[i])
		}
	}
	if len(f.events.entries) != 2 {
		t.Errorf("published %d events", len(f.events.entries))
	}

	// The index is computed on the server; a client-supplied one is refused.
	req := httptest.NewRequest(http.MethodPost, "/api/history", strings.NewReader(`{"stability_index": 100}`))
	req.Header.Set(SessionHeader, id)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("client index status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/history", id, engine.DayInput{AlarmHour: 7, WakeHour: 7, Steps: -5}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid day status = %d", rec.Code)
	}

	// A second session starts its own log.
	other := f.signIn(t, "admin", "1234")
	var fresh []types.HistoryEntry
	decode(t, f.do(t, http.MethodGet, "/api/history", other, nil), &fresh)
	if len(fresh) != 0 {
		t.Errorf("second session history = %+v", fresh)
	}
}

func TestHistorySurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	id := f.signIn(t, "admin", "1234")

	day := engine.DayInput{AlarmHour: 7, WakeHour: 8, Steps: 6000}
	if rec := f.do(t, http.MethodPost, "/api/history", id, day); rec.Code != http.StatusCreated {
		t.Errorf("save status = %d", rec.Code)
	}
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	id := f.signIn(t, "admin", "1234")

	var chat []types.ChatTurn
	decode(t, f.do(t, http.MethodGet, "/api/chat", id, nil), &chat)
	if len(chat) != 1 || chat[0].Text != session.Greeting {
		t.Fatalf("initial chat = %+v", chat)
	}

	rec := f.do(t, http.MethodPost, "/api/chat", id, chatRequest{Message: "I slept badly"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rec.Code)
	}
	var resp chatResponse
	decode(t, rec, &resp)
	if resp.Reply != "echo: I slept badly" || len(resp.Chat) != 3 {
		t.Errorf("chat response = %+v", resp)
	}

	// The coach sees prior turns only, not the new message.
	if len(f.coach.history) != 1 || f.coach.history[0].Text != session.Greeting {
		t.Errorf("coach history = %+v", f.coach.history)
	}

	if rec := f.do(t, http.MethodPost, "/api/chat", id, chatRequest{Message: "  "}); rec.Code != http.StatusBadRequest {
		t.Errorf("blank message status = %d", rec.Code)
	}
}

func TestRequestLogRestricted(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/signup", "", credentialsRequest{Username: "maya", Password: "pw"})

	if rec := f.do(t, http.MethodGet, "/api/requests", f.signIn(t, "maya", "pw"), nil); rec.Code != http.StatusForbidden {
		t.Errorf("non-admin status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/requests", f.signIn(t, "admin", "1234"), nil); rec.Code != http.StatusOK {
		t.Errorf("admin status = %d", rec.Code)
	}
}

func TestHealthAndMsgPack(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz?format=msgpack", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/x-msgpack" {
		t.Errorf("status %d content type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}
