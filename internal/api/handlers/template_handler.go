package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	apiContext "hookbot/internal/api/context"
	"hookbot/internal/engine/templates"
	"hookbot/internal/pkg/errors"
	"hookbot/internal/platform/models"
)

type WebhookStore interface {
	GetByID(ctx context.Context, id int64) (*models.Webhook, error)
}

type TemplateRefresher interface {
	Refresh(ctx context.Context, webhookID int64) error
}

type Previewer interface {
	Preview(webhook *models.Webhook, payload []byte) (string, error)
}

type TemplateHandler struct {
	webhooks     WebhookStore
	cache        TemplateRefresher
	previewer    Previewer
	maxBodyBytes int64
}

func NewTemplateHandler(webhooks WebhookStore, cache TemplateRefresher, previewer Previewer, maxBodyBytes int64) *TemplateHandler {
	return &TemplateHandler{webhooks: webhooks, cache: cache, previewer: previewer, maxBodyBytes: maxBodyBytes}
}

// Refresh recompiles the webhook's template after its definition changed.
func (h *TemplateHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, err := webhookID(r)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	if err := h.cache.Refresh(r.Context(), id); err != nil {
		var syntaxErr *templates.SyntaxError
		if stderrors.As(err, &syntaxErr) {
			errors.WriteError(w, errors.BadRequest("Template syntax error", syntaxErr.Err.Error()))
			return
		}
		errors.WriteError(w, errors.Internal("", "Failed to refresh template"))
		return
	}

	errors.WriteJSON(w, http.StatusOK, map[string]string{"message": "Template refreshed"})
}

// Preview renders the stored template against the request body without sending anything.
func (h *TemplateHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := webhookID(r)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	webhook, err := h.webhooks.GetByID(r.Context(), id)
	if err != nil {
		errors.WriteError(w, errors.Internal("", "Failed to load webhook"))
		return
	}
	if webhook == nil {
		errors.WriteError(w, errors.NotFound("Webhook not found", fmt.Sprintf("Webhook %d was not found", id)))
		return
	}

	body, err := readBody(w, r, h.maxBodyBytes)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	text, err := h.previewer.Preview(webhook, body)
	if err != nil {
		errors.WriteError(w, errors.BadRequest("Failed to render template", err.Error()))
		return
	}

	errors.WriteJSON(w, http.StatusOK, map[string]string{
		"text":       text,
		"parse_mode": string(webhook.ParseMode),
	})
}

func webhookID(r *http.Request) (int64, error) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	raw := params.ByName("webhook_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest("Invalid webhook id", fmt.Sprintf("'%s' is not a valid webhook id", raw))
	}
	return id, nil
}
