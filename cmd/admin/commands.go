package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hookbot/internal/engine/templates"
	"hookbot/internal/platform/auth"
	"hookbot/internal/platform/models"
	"hookbot/internal/platform/repositories"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		db, cfg, err := openDB(c.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Printf("Database %s is up to date\n", cfg.Database.Path)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue an operator access token",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		role, _ := c.Flags().GetString("role")
		token, err := auth.NewTokenService(cfg.JWT).GenerateAccessToken(args[0], role)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Manage bots",
}

var botAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a bot",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		token, _ := c.Flags().GetString("token")
		chatID, _ := c.Flags().GetString("chat-id")
		if token == "" || chatID == "" {
			return fmt.Errorf("--token and --chat-id are required")
		}

		db, _, err := openDB(c.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		bot := &models.Bot{Name: args[0], Token: token, ChatID: chatID}
		if err := repositories.NewBotRepository(db).Create(c.Context(), bot); err != nil {
			return fmt.Errorf("create bot: %w", err)
		}
		fmt.Printf("Bot %q created with id %d\n", bot.Name, bot.ID)
		return nil
	},
}

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage webhooks",
}

var webhookAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a webhook bound to a bot",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		flags := c.Flags()
		botID, _ := flags.GetInt64("bot-id")
		templateFile, _ := flags.GetString("template-file")
		mode, _ := flags.GetString("parse-mode")
		secret, _ := flags.GetString("secret")
		topicID, _ := flags.GetString("topic-id")
		noPreview, _ := flags.GetBool("disable-preview")
		silent, _ := flags.GetBool("silent")

		src, err := os.ReadFile(templateFile)
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		if err := templates.Validate(string(src)); err != nil {
			return fmt.Errorf("template does not compile: %w", err)
		}
		parseMode, err := models.ParseParseMode(mode)
		if err != nil {
			return err
		}

		db, cfg, err := openDB(c.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		bot, err := repositories.NewBotRepository(db).GetByID(c.Context(), botID)
		if err != nil {
			return fmt.Errorf("load bot: %w", err)
		}
		if bot == nil {
			return fmt.Errorf("bot %d does not exist", botID)
		}

		webhook := &models.Webhook{
			Name:                  args[0],
			BotID:                 botID,
			Template:              string(src),
			ParseMode:             parseMode,
			DisableWebPagePreview: noPreview,
			DisableNotification:   silent,
			Protected:             secret != "",
			SecretKey:             secret,
			TopicID:               topicID,
		}
		if err := repositories.NewWebhookRepository(db).Create(c.Context(), webhook); err != nil {
			return fmt.Errorf("create webhook: %w", err)
		}
		fmt.Printf("Webhook %q created: %s/webhook/%s\n", webhook.Name, cfg.Server.PublicURL, webhook.UUID)
		return nil
	},
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List webhooks",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		db, _, err := openDB(c.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		webhooks, err := repositories.NewWebhookRepository(db).List(c.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(webhooks)
	},
}

func init() {
	tokenCmd.Flags().String("role", "operator", "role claim (operator or admin)")

	botAddCmd.Flags().String("token", "", "bot API token")
	botAddCmd.Flags().String("chat-id", "", "default chat id")
	botCmd.AddCommand(botAddCmd)

	webhookAddCmd.Flags().Int64("bot-id", 0, "bot that delivers the messages")
	webhookAddCmd.Flags().String("template-file", "", "path to the message template")
	webhookAddCmd.Flags().String("parse-mode", "", "None, Markdown, MarkdownV2 or HTML")
	webhookAddCmd.Flags().String("secret", "", "secret key; makes the webhook protected")
	webhookAddCmd.Flags().String("topic-id", "", "forum topic id")
	webhookAddCmd.Flags().Bool("disable-preview", false, "disable link previews")
	webhookAddCmd.Flags().Bool("silent", false, "send without notification")
	_ = webhookAddCmd.MarkFlagRequired("bot-id")
	_ = webhookAddCmd.MarkFlagRequired("template-file")
	webhookCmd.AddCommand(webhookAddCmd, webhookListCmd)

	rootCmd.AddCommand(migrateCmd, tokenCmd, botCmd, webhookCmd)
}
