package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepoImpl)(nil)

type NotificationRepoImpl struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepoImpl { return &NotificationRepoImpl{db: db} }

const notifColumns = `id, recipient_id, sender_id, type, title, message, data, priority,
       related_note_id, related_user_id, is_read, read_at, created_at`

const (
	qNotifInsert = `
INSERT INTO notifications (id, recipient_id, sender_id, type, title, message, data, priority,
                           related_note_id, related_user_id, is_read, read_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, NULL, COALESCE($11, now()))
RETURNING created_at;
`
	qNotifByRecipient = `
SELECT ` + notifColumns + `
FROM notifications
WHERE recipient_id = $1
ORDER BY created_at DESC, id DESC
OFFSET $2
LIMIT $3;
`
	qNotifMarkRead = `
UPDATE notifications
SET is_read = TRUE, read_at = COALESCE(read_at, $3)
WHERE id = $1 AND recipient_id = $2;
`
	qNotifMarkAllRead = `
UPDATE notifications
SET is_read = TRUE, read_at = $2
WHERE recipient_id = $1 AND is_read = FALSE;
`
	qNotifDelete = `
DELETE FROM notifications
WHERE id = $1 AND recipient_id = $2;
`
	qNotifDeleteAll = `
DELETE FROM notifications
WHERE recipient_id = $1;
`
	qNotifCountUnread = `
SELECT count(*)
FROM notifications
WHERE recipient_id = $1 AND is_read = FALSE;
`
	qNotifExists = `
SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1);
`
)

func (r *NotificationRepoImpl) Insert(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	data, err := json.Marshal(dataOrEmpty(n.Data))
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}

	eq := r.db.execQueryer(ctx)
	if err := eq.QueryRow(ctx, qNotifInsert,
		n.ID,
		n.RecipientID,
		n.SenderID,
		string(n.Type),
		n.Title,
		n.Message,
		data,
		string(n.Priority),
		n.RelatedNoteID,
		n.RelatedUserID,
		nullTime(n.CreatedAt),
	).Scan(&n.CreatedAt); err != nil {
		if mapped := mapErr(err); errors.Is(mapped, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	n.IsRead, n.ReadAt = false, nil
	return nil
}

func (r *NotificationRepoImpl) ListByRecipient(ctx context.Context, recipientID string, offset, limit int) ([]notification.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qNotifByRecipient, recipientID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := make([]notification.Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *NotificationRepoImpl) MarkRead(ctx context.Context, recipientID, id string, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qNotifMarkRead, id, recipientID, at)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrForeign(ctx, id)
	}
	return nil
}

func (r *NotificationRepoImpl) MarkAllRead(ctx context.Context, recipientID string, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qNotifMarkAllRead, recipientID, at); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

func (r *NotificationRepoImpl) Delete(ctx context.Context, recipientID, id string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qNotifDelete, id, recipientID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrForeign(ctx, id)
	}
	return nil
}

func (r *NotificationRepoImpl) DeleteAll(ctx context.Context, recipientID string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qNotifDeleteAll, recipientID); err != nil {
		return fmt.Errorf("delete all notifications: %w", err)
	}
	return nil
}

func (r *NotificationRepoImpl) CountUnread(ctx context.Context, recipientID string) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qNotifCountUnread, recipientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// missingOrForeign tells a row that does not exist apart from one owned by
// somebody else after an owner-scoped statement touched nothing.
func (r *NotificationRepoImpl) missingOrForeign(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qNotifExists, id).Scan(&exists); err != nil {
		return fmt.Errorf("lookup notification: %w", err)
	}
	if exists {
		return ErrForbidden
	}
	return ErrNotFound
}

func scanNotification(row pgx.Row) (notification.Notification, error) {
	var (
		n        notification.Notification
		typ      string
		priority string
		data     []byte
	)
	if err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.SenderID,
		&typ,
		&n.Title,
		&n.Message,
		&data,
		&priority,
		&n.RelatedNoteID,
		&n.RelatedUserID,
		&n.IsRead,
		&n.ReadAt,
		&n.CreatedAt,
	); err != nil {
		return n, err
	}
	n.Type = notification.Type(typ)
	n.Priority = notification.Priority(priority)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return n, fmt.Errorf("decode data: %w", err)
		}
		if len(n.Data) == 0 {
			n.Data = nil
		}
	}
	return n, nil
}

func dataOrEmpty(d map[string]any) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return d
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
