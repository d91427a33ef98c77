package audit

import (
	"context"
	"log/slog"
)

// Notifier delivers a text to a single user. Implementations should honor ctx deadlines.
type Notifier interface {
	SendDirectMessage(ctx context.Context, userID, text string) error
}

// LogNotifier only logs. Used when AUDIT_DRY_RUN is enabled.
type LogNotifier struct{}

func NewLogNotifier() Notifier {
	return LogNotifier{}
}

func (LogNotifier) SendDirectMessage(_ context.Context, userID, text string) error {
	slog.Info("dry run: direct message not sent", "user_id", userID, "text_bytes", len(text))
	return nil
}
