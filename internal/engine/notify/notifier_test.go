package notify

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"hookbot/internal/engine/delivery"
	"hookbot/internal/platform/config"
	"hookbot/internal/platform/models"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []delivery.Message
	panicOn  string
}

func (s *recordingSender) Deliver(ctx context.Context, msg delivery.Message) delivery.Result {
	if s.panicOn != "" && strings.Contains(msg.Text, s.panicOn) {
		panic("sender exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return delivery.Result{Success: true}
}

func (s *recordingSender) sent() []delivery.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery.Message(nil), s.messages...)
}

type staticBots map[int64]*models.Bot

func (b staticBots) GetByID(ctx context.Context, id int64) (*models.Bot, error) {
	return b[id], nil
}

func TestNotifier_DropsWhenFull(t *testing.T) {
	settings := config.NewSettingsStore(config.Settings{NotifyBotID: 1})
	n := NewNotifier(config.NotifierConfig{Workers: 1, QueueSize: 2}, &recordingSender{}, staticBots{}, settings)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2; i++ {
			if !n.Enqueue(Alert{WebhookID: int64(i)}) {
				t.Errorf("Enqueue(%d) = false with free capacity", i)
			}
		}
		if n.Enqueue(Alert{WebhookID: 3}) {
			t.Error("Enqueue() = true on a full queue")
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestNotifier_Delivers(t *testing.T) {
	sender := &recordingSender{panicOn: "Boom"}
	bots := staticBots{1: {ID: 1, Token: "tok", ChatID: "-100"}}
	settings := config.NewSettingsStore(config.Settings{NotifyBotID: 1, NotifyChatID: "-200"})

	n := NewNotifier(config.NotifierConfig{Workers: 2, QueueSize: 8}, sender, bots, settings)
	n.Start()

	n.Enqueue(Alert{WebhookID: 9, WebhookName: "Boom", StatusCode: 500})
	n.Enqueue(Alert{WebhookID: 7, WebhookName: "Deploys", WebhookUUID: "u-7", StatusCode: 502,
		Title: "Failed to deliver message", Details: "chat not found", RequestID: "r-1"})
	n.Stop()

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	msg := sent[0]
	if msg.ChatID != "-200" || msg.Token != "tok" || msg.ParseMode != models.ParseModeNone {
		t.Errorf("unexpected message: %+v", msg)
	}
	for _, want := range []string{`Webhook "Deploys" failed`, "Status: 502", "Details: chat not found", "Request: r-1"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("text %q missing %q", msg.Text, want)
		}
	}
}

func TestNotifier_SkipsWithoutTarget(t *testing.T) {
	sender := &recordingSender{}
	settings := config.NewSettingsStore(config.Settings{})
	n := NewNotifier(config.NotifierConfig{Workers: 1, QueueSize: 4}, sender, staticBots{}, settings)
	n.Start()

	n.Enqueue(Alert{WebhookID: 1})
	settings.Publish(config.Settings{NotifyBotID: 42})
	n.Enqueue(Alert{WebhookID: 2})
	n.Stop()

	if len(sender.sent()) != 0 {
		t.Errorf("sent %d messages, want 0", len(sender.sent()))
	}
}
