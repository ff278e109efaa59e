package notify

import (
	"context"
	"log/slog"
)

// Log writes notifications to a slog.Logger. A nil logger uses slog.Default.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch n.Level {
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, n.Message,
		"notification_id", n.ID, "kind", n.Kind, "operation", n.Operation)
}
