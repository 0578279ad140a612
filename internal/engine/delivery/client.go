package delivery

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"hookbot/internal/pkg/errors"
	"hookbot/internal/pkg/logger"
	"hookbot/internal/platform/config"
	"hookbot/internal/platform/models"
)

const (
	ReasonTransport       = "transport"
	ReasonTimeout         = "timeout"
	ReasonProvider        = "provider"
	ReasonInvalidResponse = "invalid_response"
	ReasonInvalidTopic    = "invalid_topic"
)

// Message is one sendMessage call.
type Message struct {
	Token                 string
	ChatID                string
	Text                  string
	ParseMode             models.ParseMode
	DisableWebPagePreview bool
	DisableNotification   bool
	TopicID               string
}

// Result is the classified outcome of a delivery attempt.
type Result struct {
	Success    bool
	MessageID  int64
	StatusCode int
	Title      string
	Details    string
	Reason     string
}

// Err converts a failed result into an upstream error envelope.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return errors.Upstream(r.Title, r.Details, r.StatusCode)
}

func failure(status int, reason, title, details string) Result {
	return Result{StatusCode: status, Reason: reason, Title: title, Details: details}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
	MessageThreadID       *int64 `json:"message_thread_id,omitempty"`
}

type apiResponse struct {
	OK     bool `json:"ok"`
	Result *struct {
		MessageID int64 `json:"message_id"`
	} `json:"result,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type Client struct {
	http   *resty.Client
	apiURL string
	log    zerolog.Logger
}

func NewClient(cfg config.TelegramConfig) *Client {
	log := logger.Component("delivery")

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(0)
	client.SetHeader("Content-Type", "application/json")
	client.SetLogger(restyLogger{log: log})

	return &Client{
		http:   client,
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		log:    log,
	}
}

func (c *Client) endpoint(token string) string {
	return fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, token)
}

// Send delivers text to the bot's chat using the webhook's delivery options.
func (c *Client) Send(ctx context.Context, bot *models.Bot, webhook *models.Webhook, text string) Result {
	return c.Deliver(ctx, Message{
		Token:                 bot.Token,
		ChatID:                bot.ChatID,
		Text:                  text,
		ParseMode:             webhook.ParseMode,
		DisableWebPagePreview: webhook.DisableWebPagePreview,
		DisableNotification:   webhook.DisableNotification,
		TopicID:               webhook.TopicID,
	})
}

// Deliver makes exactly one sendMessage call and classifies the outcome.
func (c *Client) Deliver(ctx context.Context, msg Message) Result {
	body := sendMessageRequest{
		ChatID:                msg.ChatID,
		Text:                  msg.Text,
		DisableWebPagePreview: msg.DisableWebPagePreview,
		DisableNotification:   msg.DisableNotification,
	}
	if msg.ParseMode != "" && msg.ParseMode != models.ParseModeNone {
		body.ParseMode = string(msg.ParseMode)
	}
	if topic := strings.TrimSpace(msg.TopicID); topic != "" {
		id, err := strconv.ParseInt(topic, 10, 64)
		if err != nil {
			return failure(http.StatusBadRequest, ReasonInvalidTopic, "Invalid topic id",
				fmt.Sprintf("Topic id %q is not a number", topic))
		}
		body.MessageThreadID = &id
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.endpoint(msg.Token))
	if err != nil {
		// url.Error carries the request URL, which contains the bot token.
		cause := err
		var urlErr *url.Error
		if stderrors.As(err, &urlErr) {
			cause = urlErr.Err
		}
		if isTimeout(err) {
			c.log.Warn().Str("chat_id", msg.ChatID).Msg("sendMessage timed out")
			return failure(http.StatusBadGateway, ReasonTimeout, "Messaging provider request timed out", cause.Error())
		}
		c.log.Warn().Str("chat_id", msg.ChatID).Str("error", cause.Error()).Msg("sendMessage transport failure")
		return failure(http.StatusBadGateway, ReasonTransport, "Failed to reach messaging provider", cause.Error())
	}

	var parsed apiResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		status := http.StatusBadGateway
		if resp.StatusCode() >= 400 {
			status = resp.StatusCode()
		}
		return failure(status, ReasonInvalidResponse, "Invalid response from messaging provider",
			fmt.Sprintf("HTTP %d with unparsable body", resp.StatusCode()))
	}

	if !parsed.OK {
		status := parsed.ErrorCode
		if status == 0 {
			status = http.StatusBadRequest
		}
		details := parsed.Description
		if details == "" {
			details = "Messaging provider rejected the message"
		}
		c.log.Warn().Str("chat_id", msg.ChatID).Int("error_code", parsed.ErrorCode).Str("description", parsed.Description).
			Msg("sendMessage rejected")
		return failure(status, ReasonProvider, "Failed to deliver message", details)
	}

	result := Result{Success: true, StatusCode: resp.StatusCode()}
	if parsed.Result != nil {
		result.MessageID = parsed.Result.MessageID
	}
	return result
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

var tokenInPath = regexp.MustCompile(`/bot[^/]+/`)

// restyLogger routes resty's internal messages into zerolog with bot tokens masked.
type restyLogger struct {
	log zerolog.Logger
}

func mask(format string, v []interface{}) string {
	return tokenInPath.ReplaceAllString(fmt.Sprintf(format, v...), "/bot[REDACTED]/")
}

func (l restyLogger) Errorf(format string, v ...interface{}) { l.log.Error().Msg(mask(format, v)) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.log.Warn().Msg(mask(format, v)) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.log.Debug().Msg(mask(format, v)) }
