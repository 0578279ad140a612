package models

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type ParseMode string

const (
	ParseModeNone       ParseMode = "None"
	ParseModeMarkdown   ParseMode = "Markdown"
	ParseModeMarkdownV2 ParseMode = "MarkdownV2"
	ParseModeHTML       ParseMode = "HTML"
)

// ParseParseMode accepts the stored names case-insensitively; empty means None.
func ParseParseMode(s string) (ParseMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ParseModeNone, nil
	case "markdown":
		return ParseModeMarkdown, nil
	case "markdownv2":
		return ParseModeMarkdownV2, nil
	case "html":
		return ParseModeHTML, nil
	}
	return "", fmt.Errorf("unknown parse mode %q", s)
}

type Webhook struct {
	ID                    int64     `json:"id"`
	UUID                  string    `json:"uuid"`
	Name                  string    `json:"name"`
	BotID                 int64     `json:"bot_id"`
	TopicID               string    `json:"topic_id,omitempty"`
	Template              string    `json:"template"`
	ParseMode             ParseMode `json:"parse_mode"`
	DisableWebPagePreview bool      `json:"disable_web_page_preview"`
	DisableNotification   bool      `json:"disable_notification"`
	Disabled              bool      `json:"disabled"`
	Protected             bool      `json:"protected"`
	SecretKey             string    `json:"-"`
	CreatedAt             int64     `json:"created_at"`
	UpdatedAt             int64     `json:"updated_at"`
}

type Bot struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Token     string `json:"-"`
	ChatID    string `json:"chat_id"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// InboundRequest is the transport-independent view of an incoming webhook call.
type InboundRequest struct {
	Method     string
	Path       string
	Query      url.Values
	Header     http.Header
	Body       []byte
	RemoteAddr string
}

// URL rebuilds path and query as received.
func (r InboundRequest) URL() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}
