package notify

import (
	"context"

	"spot-trading-bot/internal/logger"
)

// LogChannel writes every message to the structured log. It is always on.
type LogChannel struct{}

func (LogChannel) Name() string  { return "log" }
func (LogChannel) Enabled() bool { return true }

func (LogChannel) Send(ctx context.Context, msg Message) error {
	if msg.Level == LevelError {
		logger.Warn(ctx, "Notification", "level", string(msg.Level), "title", msg.Title, "text", msg.Text)
		return nil
	}
	logger.Info(ctx, "Notification", "level", string(msg.Level), "title", msg.Title, "text", msg.Text)
	return nil
}
