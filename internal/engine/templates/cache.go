package templates

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/flosch/pongo2/v6"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"hookbot/internal/pkg/logger"
	"hookbot/internal/platform/models"
)

var ErrTemplateNotFound = errors.New("template not found")

// SyntaxError is returned when a webhook's template does not compile.
type SyntaxError struct {
	WebhookID int64
	Err       error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template for webhook %d: %v", e.WebhookID, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// WebhookSource is the read side of the webhook store.
type WebhookSource interface {
	GetByID(ctx context.Context, id int64) (*models.Webhook, error)
	List(ctx context.Context) ([]*models.Webhook, error)
}

// Cache holds one compiled template per webhook id. Entries never expire; they are
// replaced whole by Refresh, Put or a Lookup that finds them stale.
type Cache struct {
	source WebhookSource
	store  *gocache.Cache
	log    zerolog.Logger
}

func NewCache(source WebhookSource) *Cache {
	return &Cache{
		source: source,
		store:  gocache.New(gocache.NoExpiration, 0),
		log:    logger.Component("template_cache"),
	}
}

// entry remembers which definition a template was compiled from.
type entry struct {
	tpl       *pongo2.Template
	source    string
	updatedAt int64
}

func cacheKey(webhookID int64) string {
	return strconv.FormatInt(webhookID, 10)
}

// Compile parses src with auto-escaping off; escaping belongs to the parse mode.
func Compile(src string) (tpl *pongo2.Template, err error) {
	defer func() {
		if r := recover(); r != nil {
			tpl, err = nil, fmt.Errorf("template compiler panic: %v", r)
		}
	}()
	return pongo2.FromString("{% autoescape off %}" + src + "{% endautoescape %}")
}

func Validate(src string) error {
	_, err := Compile(src)
	return err
}

func (c *Cache) Get(webhookID int64) (*pongo2.Template, error) {
	v, ok := c.store.Get(cacheKey(webhookID))
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return v.(*entry).tpl, nil
}

// Lookup returns the template for the webhook definition in hand. A missing entry,
// or one compiled from an older or different definition, is recompiled first.
func (c *Cache) Lookup(webhook *models.Webhook) (*pongo2.Template, error) {
	if v, ok := c.store.Get(cacheKey(webhook.ID)); ok {
		e := v.(*entry)
		if e.updatedAt >= webhook.UpdatedAt && e.source == webhook.Template {
			return e.tpl, nil
		}
	}

	e, err := c.put(webhook)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Int64("webhook_id", webhook.ID).Int64("updated_at", webhook.UpdatedAt).Msg("template recompiled on lookup")
	return e.tpl, nil
}

// Put compiles webhook.Template and swaps it in. On error the previous entry stays.
func (c *Cache) Put(webhook *models.Webhook) error {
	_, err := c.put(webhook)
	return err
}

func (c *Cache) put(webhook *models.Webhook) (*entry, error) {
	tpl, err := Compile(webhook.Template)
	if err != nil {
		return nil, &SyntaxError{WebhookID: webhook.ID, Err: err}
	}
	e := &entry{tpl: tpl, source: webhook.Template, updatedAt: webhook.UpdatedAt}
	c.store.Set(cacheKey(webhook.ID), e, gocache.NoExpiration)
	return e, nil
}

func (c *Cache) Remove(webhookID int64) {
	c.store.Delete(cacheKey(webhookID))
}

// Refresh reloads the webhook from the source and recompiles it, dropping the
// entry if the webhook no longer exists.
func (c *Cache) Refresh(ctx context.Context, webhookID int64) error {
	webhook, err := c.source.GetByID(ctx, webhookID)
	if err != nil {
		return err
	}
	if webhook == nil {
		c.Remove(webhookID)
		c.log.Info().Int64("webhook_id", webhookID).Msg("webhook gone, template evicted")
		return nil
	}
	return c.Put(webhook)
}

// Initialize compiles every stored webhook. Broken templates are logged and skipped.
func (c *Cache) Initialize(ctx context.Context) (int, error) {
	webhooks, err := c.source.List(ctx)
	if err != nil {
		return 0, err
	}

	compiled := 0
	for _, webhook := range webhooks {
		if err := c.Put(webhook); err != nil {
			c.log.Error().Err(err).Int64("webhook_id", webhook.ID).Msg("skipping webhook with invalid template")
			continue
		}
		compiled++
	}
	c.log.Info().Int("compiled", compiled).Int("total", len(webhooks)).Msg("template cache initialized")
	return compiled, nil
}

func (c *Cache) Len() int {
	return c.store.ItemCount()
}
