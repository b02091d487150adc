package dedup

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

func note(id string) notification.Notification {
	return notification.Notification{ID: id, RecipientID: "A", Type: notification.TypeStar}
}

func TestProcess_DropsRepeats(t *testing.T) {
	d := New(DefaultCapacity)
	var got []string
	d.Register("ui", func(_ context.Context, n notification.Notification) { got = append(got, n.ID) })

	assert.True(t, d.Process(context.Background(), "x", note("x")))
	assert.False(t, d.Process(context.Background(), "x", note("x")))
	assert.True(t, d.Process(context.Background(), "y", note("y")))

	assert.Equal(t, []string{"x", "y"}, got)
}

func TestProcess_EvictsOldestBeyondCapacity(t *testing.T) {
	d := New(DefaultCapacity)
	forwarded := 0
	d.Register("count", func(context.Context, notification.Notification) { forwarded++ })

	for i := 1; i <= 101; i++ {
		id := strconv.Itoa(i)
		require.True(t, d.Process(context.Background(), id, note(id)))
	}
	assert.Equal(t, DefaultCapacity, d.Len())
	assert.False(t, d.Seen("1"))
	assert.True(t, d.Seen("2"))
	assert.True(t, d.Seen("101"))

	// Evicted ids are forwarded again; ids inside the window are not.
	assert.True(t, d.Process(context.Background(), "1", note("1")))
	assert.False(t, d.Process(context.Background(), "101", note("101")))
	assert.Equal(t, 102, forwarded)
}

func TestRegister_ReplacesInPlace(t *testing.T) {
	d := New(4)
	var calls []string
	d.Register("a", func(context.Context, notification.Notification) { calls = append(calls, "a1") })
	d.Register("b", func(context.Context, notification.Notification) { calls = append(calls, "b") })
	d.Register("a", func(context.Context, notification.Notification) { calls = append(calls, "a2") })

	d.Process(context.Background(), "x", note("x"))
	assert.Equal(t, []string{"a2", "b"}, calls)

	calls = nil
	d.Unregister("a")
	d.Process(context.Background(), "y", note("y"))
	assert.Equal(t, []string{"b"}, calls)
}

func TestReset_ForgetsIDs(t *testing.T) {
	d := New(4)
	d.Process(context.Background(), "x", note("x"))
	d.Reset()
	assert.Zero(t, d.Len())
	assert.True(t, d.Process(context.Background(), "x", note("x")))
}
