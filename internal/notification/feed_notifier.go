package notification

import (
	"context"

	"github.com/fixpoint-io/fixpoint-api/internal/statusfeed"
	"github.com/rs/zerolog"
)

// FeedNotifier pushes notifications to the recipient's live dashboard
// connection when the push channel is enabled.
type FeedNotifier struct {
	hub    *statusfeed.Hub
	logger zerolog.Logger
}

func NewFeedNotifier(hub *statusfeed.Hub, logger zerolog.Logger) *FeedNotifier {
	return &FeedNotifier{
		hub:    hub,
		logger: logger.With().Str("notifier", "feed").Logger(),
	}
}

func (n *FeedNotifier) Channel() string {
	return "feed"
}

func (n *FeedNotifier) Notify(_ context.Context, delivery Delivery) error {
	if !delivery.Preference.Push {
		return nil
	}
	n.hub.SendTo(delivery.Recipient.ID, statusfeed.Frame{
		Type: statusfeed.FrameNotification,
		Data: delivery.Notification,
	})
	return nil
}
