package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hookbot/internal/platform/models"
)

type WebhookRepository struct {
	db DBTX
}

func NewWebhookRepository(db DBTX) *WebhookRepository {
	return &WebhookRepository{db: db}
}

const webhookColumns = `id, uuid, name, bot_id, topic_id, template, parse_mode, disable_web_page_preview,
	disable_notification, disabled, protected, secret_key, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanWebhook(s scanner) (*models.Webhook, error) {
	var w models.Webhook
	var parseMode string
	err := s.Scan(&w.ID, &w.UUID, &w.Name, &w.BotID, &w.TopicID, &w.Template, &parseMode, &w.DisableWebPagePreview,
		&w.DisableNotification, &w.Disabled, &w.Protected, &w.SecretKey, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.ParseMode, err = models.ParseParseMode(parseMode)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WebhookRepository) Create(ctx context.Context, webhook *models.Webhook) error {
	if webhook.UUID == "" {
		webhook.UUID = uuid.New().String()
	}
	if webhook.ParseMode == "" {
		webhook.ParseMode = models.ParseModeNone
	}
	now := time.Now().Unix()
	webhook.CreatedAt = now
	webhook.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO webhooks (uuid, name, bot_id, topic_id, template, parse_mode, disable_web_page_preview,
			disable_notification, disabled, protected, secret_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, webhook.UUID, webhook.Name, webhook.BotID, webhook.TopicID, webhook.Template, string(webhook.ParseMode),
		webhook.DisableWebPagePreview, webhook.DisableNotification, webhook.Disabled, webhook.Protected,
		webhook.SecretKey, webhook.CreatedAt, webhook.UpdatedAt)
	if err != nil {
		return err
	}
	webhook.ID, err = res.LastInsertId()
	return err
}

func (r *WebhookRepository) GetByID(ctx context.Context, id int64) (*models.Webhook, error) {
	w, err := scanWebhook(r.db.QueryRowContext(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (r *WebhookRepository) GetByUUID(ctx context.Context, id string) (*models.Webhook, error) {
	w, err := scanWebhook(r.db.QueryRowContext(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE uuid = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (r *WebhookRepository) List(ctx context.Context) ([]*models.Webhook, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+webhookColumns+` FROM webhooks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []*models.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func (r *WebhookRepository) Update(ctx context.Context, webhook *models.Webhook) error {
	webhook.UpdatedAt = time.Now().Unix()

	_, err := r.db.ExecContext(ctx, `
		UPDATE webhooks
		SET name = ?, bot_id = ?, topic_id = ?, template = ?, parse_mode = ?, disable_web_page_preview = ?,
			disable_notification = ?, disabled = ?, protected = ?, secret_key = ?, updated_at = ?
		WHERE id = ?
	`, webhook.Name, webhook.BotID, webhook.TopicID, webhook.Template, string(webhook.ParseMode),
		webhook.DisableWebPagePreview, webhook.DisableNotification, webhook.Disabled, webhook.Protected,
		webhook.SecretKey, webhook.UpdatedAt, webhook.ID)
	return err
}

func (r *WebhookRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
	return err
}
