package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hookbot/internal/engine/delivery"
	"hookbot/internal/pkg/logger"
	"hookbot/internal/platform/config"
	"hookbot/internal/platform/metrics"
	"hookbot/internal/platform/models"
)

const maxDetailsRunes = 1000

// Alert describes one pipeline failure worth telling an operator about.
type Alert struct {
	WebhookID   int64
	WebhookName string
	WebhookUUID string
	RequestID   string
	StatusCode  int
	Title       string
	Details     string
	At          time.Time
}

func (a Alert) text() string {
	details := a.Details
	if r := []rune(details); len(r) > maxDetailsRunes {
		details = string(r[:maxDetailsRunes]) + "…"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Webhook %q failed\n", a.WebhookName)
	fmt.Fprintf(&b, "UUID: %s\n", a.WebhookUUID)
	fmt.Fprintf(&b, "Status: %d\n", a.StatusCode)
	fmt.Fprintf(&b, "Error: %s\n", a.Title)
	if details != "" {
		fmt.Fprintf(&b, "Details: %s\n", details)
	}
	if a.RequestID != "" {
		fmt.Fprintf(&b, "Request: %s\n", a.RequestID)
	}
	fmt.Fprintf(&b, "Time: %s", a.At.UTC().Format(time.RFC3339))
	return b.String()
}

type Sender interface {
	Deliver(ctx context.Context, msg delivery.Message) delivery.Result
}

type BotLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Bot, error)
}

type SettingsSource interface {
	Current() config.Settings
}

// Notifier sends alerts from a bounded queue on a fixed set of workers.
// Enqueue never blocks; alerts are dropped when the queue is full.
type Notifier struct {
	queue    chan Alert
	sender   Sender
	bots     BotLookup
	settings SettingsSource
	workers  int
	timeout  time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	workerWG sync.WaitGroup

	log zerolog.Logger
}

func NewNotifier(cfg config.NotifierConfig, sender Sender, bots BotLookup, settings SettingsSource) *Notifier {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	return &Notifier{
		queue:    make(chan Alert, size),
		sender:   sender,
		bots:     bots,
		settings: settings,
		workers:  workers,
		timeout:  15 * time.Second,
		stopChan: make(chan struct{}),
		log:      logger.Component("notifier"),
	}
}

func (n *Notifier) Start() {
	for i := 0; i < n.workers; i++ {
		n.workerWG.Add(1)
		go n.worker(i)
	}
	n.log.Info().Int("workers", n.workers).Int("queue_size", cap(n.queue)).Msg("notifier workers started")
}

// Enqueue schedules a without waiting and reports whether it was accepted.
func (n *Notifier) Enqueue(a Alert) bool {
	if a.At.IsZero() {
		a.At = time.Now()
	}
	select {
	case n.queue <- a:
		return true
	default:
		metrics.NotificationsDropped.Inc()
		n.log.Warn().Int64("webhook_id", a.WebhookID).Str("request_id", a.RequestID).Msg("notification queue full, dropping alert")
		return false
	}
}

// Stop signals the workers, lets them drain what is already queued and waits.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		close(n.stopChan)
		n.workerWG.Wait()
		n.log.Info().Msg("notifier stopped")
	})
}

func (n *Notifier) worker(id int) {
	defer n.workerWG.Done()
	log := n.log.With().Int("worker", id).Logger()

	for {
		select {
		case a := <-n.queue:
			n.process(a, log)
		case <-n.stopChan:
			for {
				select {
				case a := <-n.queue:
					n.process(a, log)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) process(a Alert, log zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int64("webhook_id", a.WebhookID).Msg("recovered from panic while notifying")
		}
	}()

	settings := n.settings.Current()
	if settings.NotifyBotID == 0 {
		log.Debug().Int64("webhook_id", a.WebhookID).Msg("failure notifications not configured")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	bot, err := n.bots.GetByID(ctx, settings.NotifyBotID)
	if err != nil {
		log.Error().Err(err).Int64("bot_id", settings.NotifyBotID).Msg("failed to load notification bot")
		return
	}
	if bot == nil {
		log.Warn().Int64("bot_id", settings.NotifyBotID).Msg("notification bot not found")
		return
	}

	chatID := settings.NotifyChatID
	if chatID == "" {
		chatID = bot.ChatID
	}

	res := n.sender.Deliver(ctx, delivery.Message{
		Token:                 bot.Token,
		ChatID:                chatID,
		Text:                  a.text(),
		ParseMode:             models.ParseModeNone,
		DisableWebPagePreview: true,
	})
	if !res.Success {
		log.Warn().Int("status", res.StatusCode).Str("reason", res.Reason).Str("details", res.Details).
			Int64("webhook_id", a.WebhookID).Msg("failure notification not delivered")
		return
	}
	log.Debug().Int64("webhook_id", a.WebhookID).Msg("failure notification sent")
}
