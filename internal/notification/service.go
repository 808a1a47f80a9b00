package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/cache"
	"github.com/fixpoint-io/fixpoint-api/internal/metrics"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/repository"
	"github.com/rs/zerolog"
)

// Recipients selects who an event fans out to. Exactly one rule should be
// set; rules combine additively if several are.
type Recipients struct {
	UserIDs    []string
	Role       models.UserRole
	LocationID string
	AllActive  bool
}

func (r Recipients) empty() bool {
	return len(r.UserIDs) == 0 && r.Role == "" && r.LocationID == "" && !r.AllActive
}

// Event is a business occurrence to fan out into per-recipient notifications.
type Event struct {
	Type        string
	Recipients  Recipients
	Title       string
	Message     string
	Payload     map[string]interface{}
	RelatedKind string
	RelatedID   string
	Priority    models.NotificationPriority
	ExpiresAt   *time.Time
}

type Service interface {
	// Publish fans the event out: one persisted notification row per
	// eligible recipient, all-or-nothing, plus best-effort side channels.
	Publish(ctx context.Context, evt Event) ([]models.Notification, error)
	// PublishAsync is the post-commit hook used by business operations:
	// the fan-out runs detached from the caller and failures are only
	// logged, never returned.
	PublishAsync(evt Event)

	NotifyDeviceRegistered(device models.Device, customerName string)
	NotifyRepairCompleted(device models.Device)
	NotifyFeedbackSubmitted(feedback models.Feedback)
	NotifyLowStock(item models.InventoryItem)
	NotifyPurchaseOrderReceived(po models.PurchaseOrder)

	ListRecent(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)

	ListTypes(ctx context.Context) ([]models.NotificationType, error)
	EffectivePreference(ctx context.Context, userID, typeID string) (models.NotificationPreference, error)
	UpdatePreference(ctx context.Context, pref models.NotificationPreference) (models.NotificationPreference, error)
	ListPreferences(ctx context.Context, userID string) ([]models.NotificationPreference, error)
}

type service struct {
	repo      repository.NotificationRepository
	users     repository.UserRepository
	cache     *cache.Cache
	cacheTTL  time.Duration
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, users repository.UserRepository, c *cache.Cache, cacheTTL time.Duration, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	if c == nil {
		c = cache.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &service{
		repo:      repo,
		users:     users,
		cache:     c,
		cacheTTL:  cacheTTL,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

func (s *service) Publish(ctx context.Context, evt Event) ([]models.Notification, error) {
	if strings.TrimSpace(evt.Type) == "" {
		return nil, apperr.E(apperr.KindValidation, "event type is required")
	}
	if evt.Recipients.empty() {
		return nil, apperr.E(apperr.KindValidation, "event has no recipient rule")
	}
	if len(evt.Payload) > 0 {
		if _, err := json.Marshal(evt.Payload); err != nil {
			return nil, apperr.Wrap(err, apperr.KindValidation, "event payload is not serializable")
		}
	}

	typ, err := s.lookupType(ctx, evt.Type)
	if err != nil {
		metrics.NotificationFanoutFailures.WithLabelValues(evt.Type).Inc()
		return nil, err
	}

	title := strings.TrimSpace(evt.Title)
	if title == "" {
		title = typ.Name
	}
	message := strings.TrimSpace(evt.Message)

	recipients, err := s.resolveRecipients(ctx, evt.Recipients)
	if err != nil {
		metrics.NotificationFanoutFailures.WithLabelValues(evt.Type).Inc()
		return nil, err
	}

	var (
		batch      []repository.CreateNotificationParams
		deliveries []Delivery
		persisted  []int // index into deliveries for each batch entry
	)
	for _, recipient := range recipients {
		pref, err := s.effectivePreference(ctx, recipient.ID, typ.ID)
		if err != nil {
			metrics.NotificationFanoutFailures.WithLabelValues(evt.Type).Inc()
			return nil, apperr.Wrap(err, apperr.KindInternal, "load notification preference")
		}

		delivery := Delivery{
			Recipient:  recipient,
			Preference: pref,
			Notification: models.Notification{
				RecipientID: recipient.ID,
				TypeID:      typ.ID,
				TypeName:    typ.Name,
				Title:       title,
				Message:     message,
				Priority:    priorityOrDefault(evt.Priority),
				Status:      models.NotificationStatusUnread,
				ExpiresAt:   evt.ExpiresAt,
			},
		}
		deliveries = append(deliveries, delivery)

		// The in-app row is only created when that channel is enabled for
		// this recipient and type; other channels stay independent.
		if pref.InApp {
			params := repository.CreateNotificationParams{
				RecipientID: recipient.ID,
				TypeID:      typ.ID,
				Title:       title,
				Message:     message,
				Payload:     evt.Payload,
				Priority:    evt.Priority,
				ExpiresAt:   evt.ExpiresAt,
			}
			if evt.RelatedKind != "" {
				params.RelatedKind = &evt.RelatedKind
			}
			if evt.RelatedID != "" {
				params.RelatedID = &evt.RelatedID
			}
			batch = append(batch, params)
			persisted = append(persisted, len(deliveries)-1)
		}
	}

	created, err := s.repo.CreateBatch(ctx, batch)
	if err != nil {
		metrics.NotificationFanoutFailures.WithLabelValues(evt.Type).Inc()
		return nil, apperr.Wrap(err, apperr.KindInternal, "persist notifications")
	}
	for i, notif := range created {
		notif.TypeName = typ.Name
		created[i] = notif
		deliveries[persisted[i]].Notification = notif
	}
	metrics.NotificationsPublished.WithLabelValues(evt.Type).Add(float64(len(created)))

	for _, delivery := range deliveries {
		for _, notifier := range s.notifiers {
			if err := notifier.Notify(ctx, delivery); err != nil {
				logNotifyError(s.logger, err, notifier.Channel(), delivery)
			}
		}
	}
	return created, nil
}

func (s *service) PublishAsync(evt Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.Publish(ctx, evt); err != nil {
			s.logger.Error().Err(err).Str("event_type", evt.Type).Msg("async fan-out failed")
		}
	}()
}

func (s *service) NotifyDeviceRegistered(device models.Device, customerName string) {
	evt := Event{
		Type:       models.NotificationTypeDeviceRegistered,
		Recipients: Recipients{Role: models.RoleAdmin},
		Title:      "Device registered",
		Message:    fmt.Sprintf("Ticket %s: %s %s received from %s.", device.TicketNumber, device.Brand, device.Model, customerName),
		Payload: map[string]interface{}{
			"ticket_number": device.TicketNumber,
			"brand":         device.Brand,
			"model":         device.Model,
		},
		RelatedKind: "device",
		RelatedID:   device.ID,
	}
	if device.LocationID != nil {
		evt.Recipients.LocationID = *device.LocationID
	}
	s.PublishAsync(evt)
}

func (s *service) NotifyRepairCompleted(device models.Device) {
	evt := Event{
		Type:       models.NotificationTypeRepairCompleted,
		Recipients: Recipients{Role: models.RoleAdmin},
		Title:      "Repair completed",
		Message:    fmt.Sprintf("Ticket %s (%s %s) is ready for pickup.", device.TicketNumber, device.Brand, device.Model),
		Payload: map[string]interface{}{
			"ticket_number": device.TicketNumber,
		},
		RelatedKind: "device",
		RelatedID:   device.ID,
	}
	if device.AssignedTechID != nil {
		evt.Recipients.UserIDs = []string{*device.AssignedTechID}
	}
	s.PublishAsync(evt)
}

func (s *service) NotifyFeedbackSubmitted(feedback models.Feedback) {
	s.PublishAsync(Event{
		Type:        models.NotificationTypeFeedbackSubmitted,
		Recipients:  Recipients{Role: models.RoleAdmin},
		Title:       "New customer feedback",
		Message:     fmt.Sprintf("%s left feedback: %s", fallback(feedback.Name, "A visitor"), feedback.Message),
		RelatedKind: "feedback",
		RelatedID:   feedback.ID,
	})
}

func (s *service) NotifyLowStock(item models.InventoryItem) {
	evt := Event{
		Type:       models.NotificationTypeLowStock,
		Recipients: Recipients{Role: models.RoleAdmin},
		Title:      "Low stock",
		Message:    fmt.Sprintf("%s (%s) is down to %d units (reorder level %d).", item.Name, item.SKU, item.Quantity, item.ReorderLevel),
		Priority:   models.NotificationPriorityHigh,
		Payload: map[string]interface{}{
			"sku":      item.SKU,
			"quantity": item.Quantity,
		},
		RelatedKind: "inventory_item",
		RelatedID:   item.ID,
	}
	if item.LocationID != nil {
		evt.Recipients.LocationID = *item.LocationID
	}
	s.PublishAsync(evt)
}

func (s *service) NotifyPurchaseOrderReceived(po models.PurchaseOrder) {
	s.PublishAsync(Event{
		Type:        models.NotificationTypePOReceived,
		Recipients:  Recipients{Role: models.RoleAdmin},
		Title:       "Purchase order received",
		Message:     fmt.Sprintf("Order %s from %s is now %s.", po.PONumber, po.Supplier, po.Status),
		RelatedKind: "purchase_order",
		RelatedID:   po.ID,
	})
}

func (s *service) ListRecent(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	return s.repo.ListByRecipient(ctx, recipientID, unreadOnly, limit)
}

func (s *service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.repo.UnreadCount(ctx, recipientID)
}

func (s *service) MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, recipientID, notificationID)
}

func (s *service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, recipientID)
}

const typeCacheKey = "notification_types"

// ListTypes serves the type catalog through the TTL cache; the catalog is
// reference data that rarely changes.
func (s *service) ListTypes(ctx context.Context) ([]models.NotificationType, error) {
	if cached, ok := s.cache.Get(typeCacheKey); ok {
		if types, ok := cached.([]models.NotificationType); ok {
			return types, nil
		}
	}
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(typeCacheKey, types, s.cacheTTL)
	return types, nil
}

func (s *service) EffectivePreference(ctx context.Context, userID, typeID string) (models.NotificationPreference, error) {
	return s.effectivePreference(ctx, userID, typeID)
}

func (s *service) UpdatePreference(ctx context.Context, pref models.NotificationPreference) (models.NotificationPreference, error) {
	return s.repo.UpsertPreference(ctx, pref)
}

func (s *service) ListPreferences(ctx context.Context, userID string) ([]models.NotificationPreference, error) {
	return s.repo.ListPreferences(ctx, userID)
}

func (s *service) lookupType(ctx context.Context, name string) (models.NotificationType, error) {
	key := "notification_type:" + name
	if cached, ok := s.cache.Get(key); ok {
		if typ, ok := cached.(models.NotificationType); ok {
			return typ, nil
		}
	}

	typ, err := s.repo.GetTypeByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NotificationType{}, apperr.E(apperr.KindNotFound, "unknown notification type %q", name)
		}
		return models.NotificationType{}, err
	}
	if !typ.IsActive {
		return models.NotificationType{}, apperr.E(apperr.KindNotFound, "notification type %q is inactive", name)
	}
	s.cache.Set(key, typ, s.cacheTTL)
	return typ, nil
}

func (s *service) resolveRecipients(ctx context.Context, rule Recipients) ([]models.User, error) {
	seen := map[string]struct{}{}
	var recipients []models.User
	add := func(users []models.User) {
		for _, user := range users {
			if !user.IsActive {
				continue
			}
			if _, ok := seen[user.ID]; ok {
				continue
			}
			seen[user.ID] = struct{}{}
			recipients = append(recipients, user)
		}
	}

	for _, userID := range rule.UserIDs {
		user, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperr.E(apperr.KindNotFound, "recipient %s not found", userID)
			}
			return nil, err
		}
		add([]models.User{user})
	}
	if rule.Role != "" {
		users, err := s.users.ListRecipientsByRole(ctx, rule.Role)
		if err != nil {
			return nil, err
		}
		add(users)
	}
	if rule.LocationID != "" {
		users, err := s.users.ListRecipientsByLocation(ctx, rule.LocationID)
		if err != nil {
			return nil, err
		}
		add(users)
	}
	if rule.AllActive {
		users, err := s.users.ListActiveRecipients(ctx)
		if err != nil {
			return nil, err
		}
		add(users)
	}
	return recipients, nil
}

func (s *service) effectivePreference(ctx context.Context, userID, typeID string) (models.NotificationPreference, error) {
	pref, err := s.repo.GetPreference(ctx, userID, typeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultPreference(userID, typeID), nil
		}
		return models.NotificationPreference{}, err
	}
	return pref, nil
}

func priorityOrDefault(p models.NotificationPriority) models.NotificationPriority {
	if p == "" {
		return models.NotificationPriorityNormal
	}
	return p
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return def
}
