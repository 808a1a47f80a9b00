package notification

import (
	"context"

	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/rs/zerolog"
)

// Delivery is one notification addressed to one recipient, together with the
// effective channel preference. The Notification may be transient (empty ID)
// when the recipient has the in-app channel disabled but other channels on.
type Delivery struct {
	Notification models.Notification
	Recipient    models.User
	Preference   models.NotificationPreference
}

// Notifier delivers a notification over one side channel. Failures are
// best-effort: they are logged by the service and never propagated to the
// triggering operation.
type Notifier interface {
	Channel() string
	Notify(ctx context.Context, delivery Delivery) error
}

func logNotifyError(logger zerolog.Logger, err error, channel string, delivery Delivery) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("notification_id", delivery.Notification.ID).
		Str("recipient_id", delivery.Recipient.ID).
		Str("channel", channel).
		Msg("failed to deliver notification")
}
