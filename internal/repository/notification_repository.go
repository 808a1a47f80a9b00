package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/pkg/errors"
)

type NotificationRepository interface {
	GetTypeByName(ctx context.Context, name string) (models.NotificationType, error)
	ListTypes(ctx context.Context) ([]models.NotificationType, error)

	// CreateBatch inserts one notification row per recipient inside a single
	// transaction; a failure on any row rolls back the whole batch.
	CreateBatch(ctx context.Context, batch []CreateNotificationParams) ([]models.Notification, error)

	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)

	GetPreference(ctx context.Context, userID, typeID string) (models.NotificationPreference, error)
	UpsertPreference(ctx context.Context, pref models.NotificationPreference) (models.NotificationPreference, error)
	ListPreferences(ctx context.Context, userID string) ([]models.NotificationPreference, error)
}

type CreateNotificationParams struct {
	RecipientID string
	TypeID      string
	Title       string
	Message     string
	Payload     map[string]interface{}
	RelatedKind *string
	RelatedID   *string
	Priority    models.NotificationPriority
	ExpiresAt   *time.Time
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, recipient_id, type_id, title, message, payload, related_kind, related_id, priority, status, expires_at, created_at, read_at`

func (r *notificationRepository) GetTypeByName(ctx context.Context, name string) (models.NotificationType, error) {
	const query = `
		SELECT id, name, category, is_active, created_at
		FROM notification_types
		WHERE name = $1`

	var t models.NotificationType
	err := r.db.QueryRowContext(ctx, query, name).Scan(&t.ID, &t.Name, &t.Category, &t.IsActive, &t.CreatedAt)
	return t, err
}

func (r *notificationRepository) ListTypes(ctx context.Context) ([]models.NotificationType, error) {
	const query = `
		SELECT id, name, category, is_active, created_at
		FROM notification_types
		ORDER BY category, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []models.NotificationType
	for rows.Next() {
		var t models.NotificationType
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return types, nil
}

func (r *notificationRepository) CreateBatch(ctx context.Context, batch []CreateNotificationParams) ([]models.Notification, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	created := make([]models.Notification, 0, len(batch))
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		const query = `
			INSERT INTO notifications (recipient_id, type_id, title, message, payload, related_kind, related_id, priority, status, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING ` + notificationColumns

		for _, params := range batch {
			priority := params.Priority
			if priority == "" {
				priority = models.NotificationPriorityNormal
			}

			var payload interface{}
			if len(params.Payload) > 0 {
				raw, err := json.Marshal(params.Payload)
				if err != nil {
					return errors.Wrap(err, "marshal notification payload")
				}
				payload = raw
			}

			row := tx.QueryRowContext(ctx, query,
				params.RecipientID, params.TypeID, params.Title, params.Message,
				payload, params.RelatedKind, params.RelatedID, priority,
				models.NotificationStatusUnread, params.ExpiresAt)
			notif, err := scanNotification(row)
			if err != nil {
				return err
			}
			created = append(created, notif)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	// Expired notifications are filtered at read time, not purged.
	query := `
		SELECT n.id, n.recipient_id, n.type_id, n.title, n.message, n.payload, n.related_kind, n.related_id, n.priority, n.status, n.expires_at, n.created_at, n.read_at, t.name
		FROM notifications n
		JOIN notification_types t ON t.id = n.type_id
		WHERE n.recipient_id = $1
		  AND (n.expires_at IS NULL OR n.expires_at > NOW())`
	if unreadOnly {
		query += `
		  AND n.status = 'unread'`
	}
	query += `
		ORDER BY n.created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		notif, err := scanNotificationWithType(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM notifications
		WHERE recipient_id = $1
		  AND status = 'unread'
		  AND (expires_at IS NULL OR expires_at > NOW())`

	var count int
	err := r.db.QueryRowContext(ctx, query, recipientID).Scan(&count)
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error) {
	const query = `
		UPDATE notifications
		SET status = 'read', read_at = NOW()
		WHERE id = $1 AND recipient_id = $2
		RETURNING ` + notificationColumns

	return scanNotification(r.db.QueryRowContext(ctx, query, notificationID, recipientID))
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	const query = `
		UPDATE notifications
		SET status = 'read', read_at = NOW()
		WHERE recipient_id = $1 AND status = 'unread'`

	result, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *notificationRepository) GetPreference(ctx context.Context, userID, typeID string) (models.NotificationPreference, error) {
	const query = `
		SELECT user_id, type_id, email, sms, push, in_app, updated_at
		FROM notification_preferences
		WHERE user_id = $1 AND type_id = $2`

	var pref models.NotificationPreference
	err := r.db.QueryRowContext(ctx, query, userID, typeID).Scan(
		&pref.UserID, &pref.TypeID, &pref.Email, &pref.SMS, &pref.Push, &pref.InApp, &pref.UpdatedAt)
	return pref, err
}

func (r *notificationRepository) UpsertPreference(ctx context.Context, pref models.NotificationPreference) (models.NotificationPreference, error) {
	const query = `
		INSERT INTO notification_preferences (user_id, type_id, email, sms, push, in_app)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, type_id)
		DO UPDATE SET email = $3, sms = $4, push = $5, in_app = $6, updated_at = NOW()
		RETURNING user_id, type_id, email, sms, push, in_app, updated_at`

	var updated models.NotificationPreference
	err := r.db.QueryRowContext(ctx, query,
		pref.UserID, pref.TypeID, pref.Email, pref.SMS, pref.Push, pref.InApp).Scan(
		&updated.UserID, &updated.TypeID, &updated.Email, &updated.SMS, &updated.Push, &updated.InApp, &updated.UpdatedAt)
	return updated, err
}

func (r *notificationRepository) ListPreferences(ctx context.Context, userID string) ([]models.NotificationPreference, error) {
	const query = `
		SELECT user_id, type_id, email, sms, push, in_app, updated_at
		FROM notification_preferences
		WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []models.NotificationPreference
	for rows.Next() {
		var pref models.NotificationPreference
		if err := rows.Scan(&pref.UserID, &pref.TypeID, &pref.Email, &pref.SMS, &pref.Push, &pref.InApp, &pref.UpdatedAt); err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prefs, nil
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Notification, error) {
	var (
		notif       models.Notification
		payloadRaw  []byte
		relatedKind sql.NullString
		relatedID   sql.NullString
		expiresAt   sql.NullTime
		readAt      sql.NullTime
	)
	if err := scanner.Scan(
		&notif.ID,
		&notif.RecipientID,
		&notif.TypeID,
		&notif.Title,
		&notif.Message,
		&payloadRaw,
		&relatedKind,
		&relatedID,
		&notif.Priority,
		&notif.Status,
		&expiresAt,
		&notif.CreatedAt,
		&readAt,
	); err != nil {
		return models.Notification{}, err
	}
	if len(payloadRaw) > 0 {
		notif.Payload = payloadRaw
	}
	if relatedKind.Valid {
		val := relatedKind.String
		notif.RelatedKind = &val
	}
	if relatedID.Valid {
		val := relatedID.String
		notif.RelatedID = &val
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		notif.ExpiresAt = &t
	}
	if readAt.Valid {
		t := readAt.Time
		notif.ReadAt = &t
	}
	return notif, nil
}

func scanNotificationWithType(rows *sql.Rows) (models.Notification, error) {
	var (
		notif       models.Notification
		payloadRaw  []byte
		relatedKind sql.NullString
		relatedID   sql.NullString
		expiresAt   sql.NullTime
		readAt      sql.NullTime
	)
	if err := rows.Scan(
		&notif.ID,
		&notif.RecipientID,
		&notif.TypeID,
		&notif.Title,
		&notif.Message,
		&payloadRaw,
		&relatedKind,
		&relatedID,
		&notif.Priority,
		&notif.Status,
		&expiresAt,
		&notif.CreatedAt,
		&readAt,
		&notif.TypeName,
	); err != nil {
		return models.Notification{}, err
	}
	if len(payloadRaw) > 0 {
		notif.Payload = payloadRaw
	}
	if relatedKind.Valid {
		val := relatedKind.String
		notif.RelatedKind = &val
	}
	if relatedID.Valid {
		val := relatedID.String
		notif.RelatedID = &val
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		notif.ExpiresAt = &t
	}
	if readAt.Valid {
		t := readAt.Time
		notif.ReadAt = &t
	}
	return notif, nil
}
