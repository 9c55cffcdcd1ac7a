package notify

import (
	"context"
	"log/slog"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"
)

// LogSender writes notifications to the structured log. It stands in for a
// push/email delivery channel while that integration is wired up.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(
	_ context.Context,
	userID string,
	title string,
	body string,
	metadata map[string]string,
) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fields := []any{
		"event", "notification_sent",
		"module", "internal/platform/notify",
		"layer", "platform",
		"user_id", userID,
		"title", title,
		"body", body,
	}
	for key, value := range metadata {
		fields = append(fields, "meta_"+key, value)
	}
	logger.Info("notification delivered", fields...)
	return nil
}

var _ ports.NotificationSender = LogSender{}
