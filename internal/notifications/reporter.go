package notifications

import (
	"context"
	"log/slog"

	"tagprint/internal/config"
	"tagprint/internal/delivery"
	"tagprint/internal/logging"
)

// Reporter turns delivery outcomes into events according to the
// [notifications] toggles. Publish errors are logged and dropped.
func Reporter(svc Service, cfg *config.Config, logger *slog.Logger) delivery.Reporter {
	logger = logging.NewComponentLogger(logger, "notifications")
	toggles := cfg.Notifications
	return delivery.ReporterFunc(func(ctx context.Context, o delivery.Outcome) {
		event, enabled := eventFor(o.Kind, toggles)
		if !enabled {
			return
		}
		payload := Payload{
			"unit":      o.UnitID,
			"transport": o.Transport,
			"printer":   o.Printer,
			"path":      o.Path,
			"reason":    o.Reason,
		}
		if err := svc.Publish(ctx, event, payload); err != nil {
			logging.WarnWithContext(logger, "ntfy notification failed", "notification_failed",
				logging.String(logging.FieldJobID, o.JobID),
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "operator not notified"),
			)
		}
	})
}

func eventFor(kind delivery.Kind, toggles config.Notifications) (Event, bool) {
	switch kind {
	case delivery.KindDelivered:
		return EventDelivered, toggles.Delivered
	case delivery.KindFellBack:
		return EventFallback, toggles.Fallback
	default:
		return EventFailed, toggles.Failures
	}
}
