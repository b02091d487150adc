package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

func TestNotificationCodec_WireRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := notification.Notification{
		ID:          "follow_b_a_none_1740830400000_abcdefghi",
		RecipientID: "a",
		SenderID:    "b",
		Type:        notification.TypeFollow,
		Title:       "New follower",
		Message:     "b started following you",
		Data:        map[string]any{"follower": "b", "count": float64(2)},
		Priority:    notification.PriorityHigh,
		CreatedAt:   created,
	}

	st, err := EncodeNotification(in)
	require.NoError(t, err)
	raw, err := proto.Marshal(st)
	require.NoError(t, err)

	out, err := UnmarshalNotification(raw)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.Priority, out.Priority)
	assert.Equal(t, in.Data, out.Data)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.False(t, out.IsRead)
	assert.Nil(t, out.ReadAt)
}

func TestUnmarshalNotification_RejectsGarbage(t *testing.T) {
	_, err := UnmarshalNotification([]byte{0xff, 0x01, 0x02})
	assert.Error(t, err)

	st, err := EncodeNotification(notification.Notification{Title: "no id"})
	require.NoError(t, err)
	_, err = DecodeNotification(st)
	assert.Error(t, err)
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, []byte("user-1"), KeyFor("user-1"))
}
