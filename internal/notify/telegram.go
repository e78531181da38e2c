package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"spot-trading-bot/internal/api"
)

const (
	telegramAPI = "https://api.telegram.org"
	userAgent   = "spot-trading-bot"
)

type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
	BaseURL  string // defaults to the public Bot API
}

// TelegramConfigFromEnv reads TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID.
func TelegramConfigFromEnv(enabled bool) TelegramConfig {
	return TelegramConfig{
		BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		Enabled:  enabled,
	}
}

type Telegram struct {
	cfg    TelegramConfig
	client *api.Client
	retry  api.RetryConfig
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = telegramAPI
	}
	return &Telegram{
		cfg:    cfg,
		client: api.NewClient(
			api.WithBaseURL(cfg.BaseURL),
			api.WithTimeout(10*time.Second),
			api.WithHeader("User-Agent", userAgent),
			api.WithLogging(true),
		),
		retry:  api.DefaultRetryConfig(),
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Enabled() bool {
	return t.cfg.Enabled && t.cfg.BotToken != "" && t.cfg.ChatID != ""
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Send(ctx context.Context, msg Message) error {
	body := sendMessage{
		ChatID:    t.cfg.ChatID,
		Text:      fmt.Sprintf("%s *%s*\n\n%s", icon(msg.Level), msg.Title, msg.Text),
		ParseMode: "Markdown",
	}
	resp, err := t.client.DoWithRetry(ctx, api.Request{
		Method: "POST",
		URL:    "/bot" + t.cfg.BotToken + "/sendMessage",
		Body:   body,
	}, t.retry)
	if err != nil {
		return err
	}
	var out botResponse
	if err := resp.ParseJSON(&out); err != nil {
		return err
	}
	if !out.OK {
		return errors.New("telegram: " + out.Description)
	}
	return nil
}

func icon(l Level) string {
	switch l {
	case LevelError:
		return "⚠️"
	case LevelTrade:
		return "💱"
	case LevelPerformance:
		return "📊"
	}
	return "ℹ️"
}
