package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hookbot/internal/engine/capture"
)

func TestCaptureHandler_Flow(t *testing.T) {
	h := NewCaptureHandler(capture.NewManager(time.Minute), "https://hooks.example.com/", 1<<16)

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/api/v1/capture-sessions", "", nil, "alice"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	created := decode(t, rec)
	id, _ := created["session_id"].(string)
	if id == "" {
		t.Fatalf("no session id in %v", created)
	}
	if created["capture_url"] != "https://hooks.example.com/capture/"+id {
		t.Errorf("capture_url = %v", created["capture_url"])
	}

	steps := []struct {
		name   string
		call   func(http.ResponseWriter, *http.Request)
		method string
		body   string
		user   string
		want   int
	}{
		{"Poll while waiting", h.Poll, http.MethodGet, "", "alice", http.StatusOK},
		{"Poll by another user", h.Poll, http.MethodGet, "", "bob", http.StatusNotFound},
		{"Complete with invalid JSON", h.Complete, http.MethodPost, "not json", "", http.StatusBadRequest},
		{"Complete", h.Complete, http.MethodPost, `{"order":{"id":17,"total":19.90}}`, "", http.StatusOK},
		{"Complete again", h.Complete, http.MethodPost, `{"x":1}`, "", http.StatusConflict},
		{"Poll completed", h.Poll, http.MethodGet, "", "alice", http.StatusOK},
		{"Poll after pickup", h.Poll, http.MethodGet, "", "alice", http.StatusNotFound},
	}

	var completed map[string]any
	for _, step := range steps {
		rec := httptest.NewRecorder()
		step.call(rec, newRequest(step.method, "/", step.body, param("session_id", id), step.user))
		if rec.Code != step.want {
			t.Fatalf("%s: status = %d, want %d (%s)", step.name, rec.Code, step.want, rec.Body.String())
		}
		if step.name == "Poll completed" {
			completed = decode(t, rec)
		}
	}

	if completed["status"] != string(capture.StatusCompleted) {
		t.Errorf("status = %v, want completed", completed["status"])
	}
	payload, _ := completed["payload"].(map[string]any)
	order, _ := payload["order"].(map[string]any)
	if order["total"] != 19.90 {
		t.Errorf("payload = %v", completed["payload"])
	}
}

func TestCaptureHandler_Cancel(t *testing.T) {
	manager := capture.NewManager(time.Minute)
	h := NewCaptureHandler(manager, "http://localhost", 1<<16)
	session := manager.Create("alice")

	tests := []struct {
		name string
		call func(http.ResponseWriter, *http.Request)
		want int
	}{
		{"Cancel", h.Cancel, http.StatusNoContent},
		{"Cancel twice", h.Cancel, http.StatusConflict},
		{"Complete after cancel", h.Complete, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.call(rec, newRequest(http.MethodPost, "/", `{"a":1}`, param("session_id", session.ID), "alice"))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCaptureHandler_UnknownSession(t *testing.T) {
	h := NewCaptureHandler(capture.NewManager(time.Minute), "http://localhost", 1<<16)

	rec := httptest.NewRecorder()
	h.Complete(rec, newRequest(http.MethodPost, "/", `{}`, param("session_id", "missing"), ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decode(t, rec)["error"]; got != "Capture session not found" {
		t.Errorf("error = %v", got)
	}
}

func TestCaptureHandler_QRCode(t *testing.T) {
	manager := capture.NewManager(time.Minute)
	h := NewCaptureHandler(manager, "http://localhost", 1<<16)
	session := manager.Create("alice")

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"Default size", "", http.StatusOK},
		{"Invalid size", "?size=10", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.QRCode(rec, newRequest(http.MethodGet, "/qr"+tt.query, "", param("session_id", session.ID), "alice"))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && rec.Header().Get("Content-Type") != "image/png" {
				t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}
