package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	domainoutbox "github.com/NordCoder/Notewire/internal/domain/outbox"
	"github.com/NordCoder/Notewire/internal/obs/retry"
	"github.com/NordCoder/Notewire/internal/repository/memory"
)

type recordingPublisher struct {
	mu    sync.Mutex
	fails int
	got   []notification.Notification
}

func (p *recordingPublisher) PublishNotification(_ context.Context, n notification.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails > 0 {
		p.fails--
		return errors.New("broker unavailable")
	}
	p.got = append(p.got, n)
	return nil
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{Name: "test_publish", Attempts: attempts, Backoff: retry.Linear{Base: time.Millisecond}}
}

func enqueue(t *testing.T, repo *memory.OutboxRepo, n notification.Notification) {
	t.Helper()
	raw, err := json.Marshal(n)
	require.NoError(t, err)
	require.NoError(t, repo.Enqueue(context.Background(), n.ID, domainoutbox.KindNotificationCreated, raw))
}

func TestRunner_TickPublishesAndMarksSuccess(t *testing.T) {
	repo := memory.NewOutboxRepo()
	pub := &recordingPublisher{fails: 1}
	n := notification.Notification{ID: "n1", RecipientID: "a", Type: notification.TypeFollow}
	enqueue(t, repo, n)

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, fastPolicy(3)), Config{BatchSize: 10})
	done, err := r.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	require.Len(t, pub.got, 1)
	assert.Equal(t, "n1", pub.got[0].ID)
	st, ok := repo.Status("n1")
	require.True(t, ok)
	assert.Equal(t, domainoutbox.StatusSuccess, st)

	done, err = r.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, done)
}

func TestRunner_FailedPublishStaysInProgress(t *testing.T) {
	repo := memory.NewOutboxRepo()
	pub := &recordingPublisher{fails: 10}
	enqueue(t, repo, notification.Notification{ID: "n1", RecipientID: "a", Type: notification.TypeStar})

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, fastPolicy(2)), Config{BatchSize: 10})
	done, err := r.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, done)

	st, _ := repo.Status("n1")
	assert.Equal(t, domainoutbox.StatusInProgress, st)
	assert.Empty(t, pub.got)
}

func TestGlobalHandler_UnknownKind(t *testing.T) {
	h := MakeGlobalOutboxHandler(&recordingPublisher{}, fastPolicy(1))
	_, err := h(domainoutbox.Kind(99))
	assert.Error(t, err)
}
