package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mbstudio/backstage/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func scanNotification(scanner interface{ Scan(...any) error }) (*model.UserNotification, error) {
	var n model.UserNotification
	var readAt sql.NullTime

	err := scanner.Scan(
		&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type,
		&n.EntityType, &n.EntityID, &readAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return &n, nil
}

const notificationCols = `id, user_id, title, message, type, entity_type, entity_id, read_at, created_at`

func (s *NotificationStore) Create(userID, title, message, notifType, entityType, entityID string) (*model.UserNotification, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO user_notifications (id, user_id, title, message, type, entity_type, entity_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, title, message, notifType, entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM user_notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if err != nil {
		return nil, fmt.Errorf("fetch created notification: %w", err)
	}
	return n, nil
}

func (s *NotificationStore) ListByUser(userID string, limit int) ([]model.UserNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+notificationCols+` FROM user_notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.UserNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

func (s *NotificationStore) UnreadCount(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM user_notifications WHERE user_id = ? AND read_at IS NULL`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(id, userID string) error {
	_, err := s.db.Exec(
		`UPDATE user_notifications SET read_at = datetime('now') WHERE id = ? AND user_id = ? AND read_at IS NULL`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(userID string) error {
	_, err := s.db.Exec(
		`UPDATE user_notifications SET read_at = datetime('now') WHERE user_id = ? AND read_at IS NULL`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Push subscription persistence.

func (s *NotificationStore) SaveSubscription(userID, endpoint, p256dh, authKey string) error {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh_key, auth_key)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET user_id = excluded.user_id,
		     p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key`,
		uuid.NewString(), userID, endpoint, p256dh, authKey,
	)
	if err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

func (s *NotificationStore) ListSubscriptions(userID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, endpoint, p256dh_key, auth_key, created_at
		 FROM push_subscriptions WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		var sub model.PushSubscription
		err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *NotificationStore) DeleteSubscription(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// WasSent reports whether a push for (user, type, reference) already went out.
// MarkSent records it; the unique index makes the pair idempotent.
func (s *NotificationStore) WasSent(userID, notifType, referenceID string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM push_notification_log WHERE user_id = ? AND notif_type = ? AND reference_id = ?`,
		userID, notifType, referenceID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check push log: %w", err)
	}
	return count > 0, nil
}

func (s *NotificationStore) MarkSent(userID, notifType, referenceID string) error {
	_, err := s.db.Exec(
		`INSERT INTO push_notification_log (user_id, notif_type, reference_id) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, notif_type, reference_id) DO NOTHING`,
		userID, notifType, referenceID,
	)
	if err != nil {
		return fmt.Errorf("record push log: %w", err)
	}
	return nil
}
