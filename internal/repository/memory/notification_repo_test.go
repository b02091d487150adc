package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

func seed(t *testing.T, r *NotificationRepo, owner string, count int) []notification.Notification {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]notification.Notification, 0, count)
	for i := 0; i < count; i++ {
		n := notification.Notification{
			ID:          fmt.Sprintf("n-%02d", i),
			RecipientID: owner,
			Type:        notification.TypeStar,
			Priority:    notification.PriorityNormal,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, r.Insert(context.Background(), &n))
		out = append(out, n)
	}
	return out
}

func TestNotificationRepo_InsertConflict(t *testing.T) {
	r := NewNotificationRepo()
	n := &notification.Notification{ID: "x", RecipientID: "a", Type: notification.TypeFollow}
	require.NoError(t, r.Insert(context.Background(), n))

	again := &notification.Notification{ID: "x", RecipientID: "a", Type: notification.TypeFollow}
	assert.ErrorIs(t, r.Insert(context.Background(), again), notification.ErrConflict)
	assert.Equal(t, 1, r.Len())
}

func TestNotificationRepo_ListNewestFirstWithPaging(t *testing.T) {
	r := NewNotificationRepo()
	seed(t, r, "a", 5)
	seed(t, r, "b", 1)

	page, err := r.ListByRecipient(context.Background(), "a", 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "n-04", page[0].ID)
	assert.Equal(t, "n-03", page[1].ID)

	page, err = r.ListByRecipient(context.Background(), "a", 4, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "n-00", page[0].ID)

	page, err = r.ListByRecipient(context.Background(), "a", 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestNotificationRepo_OwnershipAndReadState(t *testing.T) {
	r := NewNotificationRepo()
	seed(t, r, "a", 2)
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, r.MarkRead(ctx, "b", "n-00", at), notification.ErrForbidden)
	assert.ErrorIs(t, r.MarkRead(ctx, "a", "nope", at), notification.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, "b", "n-00"), notification.ErrForbidden)

	require.NoError(t, r.MarkRead(ctx, "a", "n-00", at))
	c, err := r.CountUnread(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	require.NoError(t, r.MarkAllRead(ctx, "a", at))
	c, err = r.CountUnread(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, c)

	list, err := r.ListByRecipient(ctx, "a", 0, 10)
	require.NoError(t, err)
	for _, n := range list {
		assert.True(t, n.IsRead)
		require.NotNil(t, n.ReadAt)
	}

	require.NoError(t, r.DeleteAll(ctx, "a"))
	assert.Zero(t, r.Len())
}
