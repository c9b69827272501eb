package notifications

import (
	"context"

	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

// LogSink writes notifications to the structured log.
type LogSink struct {
	logg *logger.Logger
}

func NewLogSink(logg *logger.Logger) *LogSink {
	return &LogSink{logg: logg}
}

func (s *LogSink) Notify(ctx context.Context, n Notification) {
	if s == nil || s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"notification_level": string(n.Level),
		"title":              n.Title,
		"run_id":             n.RunID,
		"status":             n.Status,
		"order_id":           n.OrderID,
		"invoice_id":         n.InvoiceID,
	})
	switch n.Level {
	case LevelError, LevelWarning:
		s.logg.Warn(ctx, n.Message)
	default:
		s.logg.Info(ctx, n.Message)
	}
}
