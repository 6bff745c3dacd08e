package notification

import (
	"context"
	"log/slog"
)

// LogSink records deliveries as structured log lines. Standalone workers use it since
// they cannot reach a server's in-memory inbox.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, job Job) error {
	s.logger.InfoContext(ctx, "notification",
		"kind", job.Notification.Kind,
		"recipient_id", job.Notification.RecipientID,
		"audience", job.Audience,
		"title", job.Notification.Title,
		"message", job.Notification.Message,
		"task_id", job.Notification.TaskID,
		"part_id", job.Notification.PartID)
	return nil
}
