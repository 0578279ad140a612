package pipeline

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hookbot/internal/engine/delivery"
	"hookbot/internal/engine/notify"
	"hookbot/internal/pkg/errors"
	"hookbot/internal/pkg/logger"
	"hookbot/internal/platform/metrics"
	"hookbot/internal/platform/models"
)

const SuccessMessage = "Webhook processed successfully"

type SuccessResponse struct {
	Message string `json:"message"`
}

// Response is what the transport writes back: a status and a JSON-encodable body.
type Response struct {
	StatusCode int
	Body       any
}

type WebhookLookup interface {
	GetByUUID(ctx context.Context, id string) (*models.Webhook, error)
}

type BotLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Bot, error)
}

type Formatter interface {
	Format(webhook *models.Webhook, payload []byte) (string, error)
}

type Sender interface {
	Send(ctx context.Context, bot *models.Bot, webhook *models.Webhook, text string) delivery.Result
}

type RequestLogger interface {
	Start(webhookID *int64, req models.InboundRequest) string
	Annotate(requestID string, fn func(*models.RequestLog)) bool
	Complete(ctx context.Context, requestID string, statusCode int, responseBody string, elapsedMs int64) error
}

type Notifier interface {
	Enqueue(a notify.Alert) bool
}

type Processor struct {
	webhooks  WebhookLookup
	bots      BotLookup
	formatter Formatter
	sender    Sender
	logs      RequestLogger
	notifier  Notifier
	log       zerolog.Logger
	now       func() time.Time
}

func NewProcessor(webhooks WebhookLookup, bots BotLookup, formatter Formatter, sender Sender, logs RequestLogger, notifier Notifier) *Processor {
	return &Processor{
		webhooks:  webhooks,
		bots:      bots,
		formatter: formatter,
		sender:    sender,
		logs:      logs,
		notifier:  notifier,
		log:       logger.Component("pipeline"),
		now:       time.Now,
	}
}

// run carries the per-request state through the stages.
type run struct {
	uuid      string
	req       models.InboundRequest
	webhook   *models.Webhook
	requestID string
	started   time.Time
}

// Process handles one inbound call. It never panics and always completes the
// request log, whatever stage the call stopped at.
func (p *Processor) Process(ctx context.Context, webhookUUID string, req models.InboundRequest) (resp Response) {
	// the client may hang up; processing still runs to the end
	ctx = context.WithoutCancel(ctx)
	r := &run{uuid: webhookUUID, req: req, started: p.now()}

	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Interface("panic", rec).Str("stack", string(debug.Stack())).
				Str("webhook_uuid", webhookUUID).Msg("recovered from panic while processing webhook")
			resp = p.finish(ctx, r, errors.Internal("", "An unexpected error occurred while processing the webhook"))
		}
	}()

	return p.finish(ctx, r, p.execute(ctx, r))
}

func (p *Processor) execute(ctx context.Context, r *run) error {
	parsed, err := uuid.Parse(r.uuid)
	if err != nil {
		p.begin(r, nil)
		return errors.BadRequest("Invalid UUID format", fmt.Sprintf("'%s' is not a valid webhook UUID", r.uuid))
	}

	webhook, err := p.webhooks.GetByUUID(ctx, parsed.String())
	if err != nil {
		p.begin(r, nil)
		p.log.Error().Err(err).Str("webhook_uuid", r.uuid).Msg("webhook lookup failed")
		return errors.Internal("", "Failed to look up webhook")
	}
	if webhook == nil {
		p.begin(r, nil)
		return errors.NotFound("Webhook not found", fmt.Sprintf("Webhook with UUID '%s' was not found", r.uuid))
	}
	r.webhook = webhook
	p.begin(r, &webhook.ID)

	if webhook.Protected && !keyMatches(webhook.SecretKey, callerKey(r.req)) {
		return errors.Unauthorized("Unauthorized", "Missing or invalid webhook secret key")
	}
	if webhook.Disabled {
		return errors.BadRequest("Webhook is disabled", fmt.Sprintf("Webhook '%s' is disabled", webhook.Name))
	}
	p.annotate(r, func(entry *models.RequestLog) { entry.Validated = true })

	text, err := p.formatter.Format(webhook, r.req.Body)
	if err != nil {
		return errors.Formatting(err.Error())
	}
	p.annotate(r, func(entry *models.RequestLog) { entry.RenderedText = text })

	bot, err := p.bots.GetByID(ctx, webhook.BotID)
	if err != nil {
		p.log.Error().Err(err).Int64("bot_id", webhook.BotID).Msg("bot lookup failed")
		return errors.Internal("", "Failed to load the webhook's bot")
	}
	if bot == nil {
		return errors.Internal("Bot not configured", fmt.Sprintf("Bot %d used by webhook '%s' does not exist", webhook.BotID, webhook.Name))
	}

	res := p.sender.Send(ctx, bot, webhook, text)
	if !res.Success {
		metrics.DeliveryFailures.WithLabelValues(res.Reason).Inc()
		return res.Err()
	}
	p.annotate(r, func(entry *models.RequestLog) { entry.Delivered = true })
	return nil
}

func (p *Processor) begin(r *run, webhookID *int64) {
	if r.requestID == "" {
		r.requestID = p.logs.Start(webhookID, r.req)
	}
}

func (p *Processor) annotate(r *run, fn func(*models.RequestLog)) {
	if r.requestID != "" {
		p.logs.Annotate(r.requestID, fn)
	}
}

func (p *Processor) finish(ctx context.Context, r *run, err error) Response {
	if r.requestID == "" {
		var webhookID *int64
		if r.webhook != nil {
			webhookID = &r.webhook.ID
		}
		p.begin(r, webhookID)
	}

	resp := Response{StatusCode: 200, Body: SuccessResponse{Message: SuccessMessage}}
	if err != nil {
		rich := errors.Envelope(err)
		resp = Response{StatusCode: rich.Code, Body: errors.Response(rich)}
		p.annotate(r, func(entry *models.RequestLog) {
			entry.ErrorMessage = rich.Message
			if details := errors.Details(rich); details != "" {
				entry.ErrorMessage += ": " + details
			}
		})
	}

	elapsed := p.now().Sub(r.started)
	body, _ := json.Marshal(resp.Body)
	if cerr := p.logs.Complete(ctx, r.requestID, resp.StatusCode, string(body), elapsed.Milliseconds()); cerr != nil {
		err = cerr
		rich := errors.Envelope(cerr)
		resp = Response{StatusCode: rich.Code, Body: errors.Response(rich)}
	}

	if rich := errors.Envelope(err); rich != nil && r.webhook != nil && notifiable(rich) {
		p.notifier.Enqueue(notify.Alert{
			WebhookID:   r.webhook.ID,
			WebhookName: r.webhook.Name,
			WebhookUUID: r.webhook.UUID,
			RequestID:   r.requestID,
			StatusCode:  resp.StatusCode,
			Title:       rich.Message,
			Details:     errors.Details(rich),
			At:          p.now(),
		})
	}

	metrics.WebhookRequests.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	metrics.ProcessingSeconds.Observe(elapsed.Seconds())

	event := p.log.Info()
	if resp.StatusCode >= 500 {
		event = p.log.Error()
	} else if resp.StatusCode >= 400 {
		event = p.log.Warn()
	}
	event.Str("webhook_uuid", r.uuid).Str("request_id", r.requestID).Int("status", resp.StatusCode).
		Int64("elapsed_ms", elapsed.Milliseconds()).Msg("webhook processed")

	return resp
}

// notifiable reports failures past validation: formatting, delivery and internal errors.
func notifiable(err error) bool {
	return errors.IsCategory(err, goerrors.CategoryOperation) ||
		errors.IsCategory(err, goerrors.CategoryExternal) ||
		errors.IsCategory(err, goerrors.CategoryInternal)
}

// callerKey takes ?key= first, then an Authorization: Bearer header.
func callerKey(req models.InboundRequest) string {
	if key := req.Query.Get("key"); key != "" {
		return key
	}
	auth := req.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// keyMatches compares digests so the comparison time depends on neither the
// matching prefix nor the key lengths.
func keyMatches(secret, provided string) bool {
	if secret == "" || provided == "" {
		return false
	}
	want := sha256.Sum256([]byte(secret))
	got := sha256.Sum256([]byte(provided))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}
