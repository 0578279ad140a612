package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	apiContext "hookbot/internal/api/context"
	"hookbot/internal/engine/capture"
	"hookbot/internal/engine/templates"
	"hookbot/internal/pkg/errors"
	"hookbot/internal/platform/auth"
)

type CaptureHandler struct {
	sessions     *capture.Manager
	publicURL    string
	maxBodyBytes int64
}

func NewCaptureHandler(sessions *capture.Manager, publicURL string, maxBodyBytes int64) *CaptureHandler {
	return &CaptureHandler{
		sessions:     sessions,
		publicURL:    strings.TrimRight(publicURL, "/"),
		maxBodyBytes: maxBodyBytes,
	}
}

type sessionResponse struct {
	capture.Session
	CaptureURL string           `json:"capture_url"`
	Payload    *templates.Value `json:"payload,omitempty"`
}

func (h *CaptureHandler) captureURL(id string) string {
	return h.publicURL + "/capture/" + id
}

func (h *CaptureHandler) view(s capture.Session) sessionResponse {
	resp := sessionResponse{Session: s, CaptureURL: h.captureURL(s.ID)}
	if len(s.Payload) > 0 {
		// payloads are validated on the way in
		if payload, err := templates.Parse(s.Payload); err == nil {
			resp.Payload = &payload
		}
	}
	return resp
}

// Complete is hit by the system being captured; the body becomes the sample payload.
func (h *CaptureHandler) Complete(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id := params.ByName("session_id")

	body, err := readBody(w, r, h.maxBodyBytes)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	if _, err := templates.Parse(body); err != nil {
		errors.WriteError(w, errors.BadRequest("Invalid capture payload", "Body must be a JSON document"))
		return
	}

	switch outcome := h.sessions.Complete(id, body); outcome {
	case capture.Success:
		errors.WriteJSON(w, http.StatusOK, map[string]string{"message": "Payload captured successfully"})
	default:
		errors.WriteError(w, outcomeError(id, outcome))
	}
}

func (h *CaptureHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	session := h.sessions.Create(claims.UserID)
	errors.WriteJSON(w, http.StatusCreated, h.view(session))
}

// Poll returns the session to its owner. A completed session is returned once.
func (h *CaptureHandler) Poll(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owned(w, r)
	if !ok {
		return
	}
	session, found := h.sessions.Poll(id)
	if !found {
		errors.WriteError(w, outcomeError(id, capture.SessionNotFound))
		return
	}
	errors.WriteJSON(w, http.StatusOK, h.view(session))
}

func (h *CaptureHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owned(w, r)
	if !ok {
		return
	}
	switch outcome := h.sessions.Cancel(id); outcome {
	case capture.SessionCancelled:
		w.WriteHeader(http.StatusNoContent)
	default:
		errors.WriteError(w, outcomeError(id, outcome))
	}
}

func (h *CaptureHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owned(w, r)
	if !ok {
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := capture.QRCode(h.captureURL(id), size)
	if err != nil {
		errors.WriteError(w, errors.BadRequest("Invalid QR code size", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// owned resolves the session id and checks it belongs to the caller.
func (h *CaptureHandler) owned(w http.ResponseWriter, r *http.Request) (string, bool) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	id := params.ByName("session_id")

	session, found := h.sessions.Get(id)
	if !found || session.UserID != claims.UserID {
		errors.WriteError(w, outcomeError(id, capture.SessionNotFound))
		return "", false
	}
	return id, true
}

func outcomeError(id string, outcome capture.Outcome) error {
	switch outcome {
	case capture.SessionExpired:
		return errors.NotFound("Capture session expired", fmt.Sprintf("Session '%s' has expired", id))
	case capture.SessionAlreadyCompleted:
		return errors.Conflict("Capture session already completed", fmt.Sprintf("Session '%s' is no longer waiting for a payload", id))
	default:
		return errors.NotFound("Capture session not found", fmt.Sprintf("Session '%s' was not found", id))
	}
}
