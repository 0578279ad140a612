package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "hookbot/internal/api/context"
	"hookbot/internal/engine/pipeline"
	"hookbot/internal/pkg/errors"
	"hookbot/internal/platform/models"
)

type Processor interface {
	Process(ctx context.Context, webhookUUID string, req models.InboundRequest) pipeline.Response
}

type WebhookHandler struct {
	processor    Processor
	maxBodyBytes int64
}

func NewWebhookHandler(processor Processor, maxBodyBytes int64) *WebhookHandler {
	return &WebhookHandler{processor: processor, maxBodyBytes: maxBodyBytes}
}

// Receive is the public inbound endpoint.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	body, err := readBody(w, r, h.maxBodyBytes)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	req := models.InboundRequest{
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      r.URL.Query(),
		Header:     r.Header.Clone(),
		Body:       body,
		RemoteAddr: r.RemoteAddr,
	}

	resp := h.processor.Process(r.Context(), params.ByName("uuid"), req)
	errors.WriteJSON(w, resp.StatusCode, resp.Body)
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	reader := io.Reader(r.Body)
	if limit > 0 {
		reader = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.BadRequest("Failed to read request body", fmt.Sprintf("Body must be at most %d bytes", limit))
	}
	return body, nil
}
