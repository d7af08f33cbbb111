package responseformat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	DayLabel string `json:"day_label"`
	Index    int    `json:"stability_index"`
}

func TestWriteResponseFormats(t *testing.T) {
	f := NewFormatter()
	want := payload{DayLabel: "Day 2", Index: 64}

	t.Run("json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
		if err := f.WriteResponse(rec, req, http.StatusCreated, want); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusCreated || rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("status %d content type %q", rec.Code, rec.Header().Get("Content-Type"))
		}
		var got payload
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got != want {
			t.Errorf("decoded %+v, %v", got, err)
		}
	})

	t.Run("msgpack", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/history?format=msgpack", nil)
		if err := f.WriteResponse(rec, req, http.StatusOK, want); err != nil {
			t.Fatal(err)
		}
		if rec.Header().Get("Content-Type") != "application/x-msgpack" {
			t.Errorf("content type %q", rec.Header().Get("Content-Type"))
		}

		// Keys follow the json tags.
		var raw map[string]any
		if err := msgpack.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&raw); err != nil {
			t.Fatal(err)
		}
		if raw["day_label"] != "Day 2" {
			t.Errorf("decoded %v", raw)
		}
	})
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/signin", nil)
	NewFormatter().WriteError(rec, req, http.StatusUnauthorized, "invalid credentials")

	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized || body.Error != "invalid credentials" {
		t.Errorf("status %d body %+v", rec.Code, body)
	}
}
