package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepo)(nil)

// NotificationRepo is an in-process notification.Repo. It keeps the same
// ownership and uniqueness rules as the Postgres store.
type NotificationRepo struct {
	mu   sync.Mutex
	rows map[string]notification.Notification
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{rows: make(map[string]notification.Notification)}
}

func (r *NotificationRepo) Insert(ctx context.Context, n *notification.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[n.ID]; ok {
		return notification.ErrConflict
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.IsRead, n.ReadAt = false, nil
	r.rows[n.ID] = n.Clone()
	return nil
}

func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID string, offset, limit int) ([]notification.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []notification.Notification
	for _, n := range r.rows {
		if n.RecipientID == recipientID {
			all = append(all, n.Clone())
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []notification.Notification{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, recipientID, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.owned(recipientID, id)
	if err != nil {
		return err
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = &at
	}
	r.rows[id] = n
	return nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipientID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, n := range r.rows {
		if n.RecipientID == recipientID && !n.IsRead {
			readAt := at
			n.IsRead, n.ReadAt = true, &readAt
			r.rows[id] = n
		}
	}
	return nil
}

func (r *NotificationRepo) Delete(ctx context.Context, recipientID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.owned(recipientID, id); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

func (r *NotificationRepo) DeleteAll(ctx context.Context, recipientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, n := range r.rows {
		if n.RecipientID == recipientID {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := 0
	for _, n := range r.rows {
		if n.RecipientID == recipientID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

// Len reports how many rows are stored for any recipient.
func (r *NotificationRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *NotificationRepo) owned(recipientID, id string) (notification.Notification, error) {
	n, ok := r.rows[id]
	if !ok {
		return n, notification.ErrNotFound
	}
	if n.RecipientID != recipientID {
		return n, notification.ErrForbidden
	}
	return n, nil
}
