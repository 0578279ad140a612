package repositories

import (
	"context"
	"database/sql"
	"time"

	"hookbot/internal/platform/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type BotRepository struct {
	db DBTX
}

func NewBotRepository(db DBTX) *BotRepository {
	return &BotRepository{db: db}
}

func (r *BotRepository) Create(ctx context.Context, bot *models.Bot) error {
	now := time.Now().Unix()
	bot.CreatedAt = now
	bot.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bots (name, token, chat_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, bot.Name, bot.Token, bot.ChatID, bot.CreatedAt, bot.UpdatedAt)
	if err != nil {
		return err
	}
	bot.ID, err = res.LastInsertId()
	return err
}

func (r *BotRepository) GetByID(ctx context.Context, id int64) (*models.Bot, error) {
	bot := &models.Bot{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, token, chat_id, created_at, updated_at
		FROM bots WHERE id = ?
	`, id).Scan(&bot.ID, &bot.Name, &bot.Token, &bot.ChatID, &bot.CreatedAt, &bot.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return bot, nil
}

func (r *BotRepository) List(ctx context.Context) ([]*models.Bot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, token, chat_id, created_at, updated_at FROM bots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []*models.Bot
	for rows.Next() {
		var b models.Bot
		if err := rows.Scan(&b.ID, &b.Name, &b.Token, &b.ChatID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bots = append(bots, &b)
	}
	return bots, rows.Err()
}
