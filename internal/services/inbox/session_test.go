package inbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/channel"
	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/obs/retry"
	"github.com/NordCoder/Notewire/internal/outbox"
	"github.com/NordCoder/Notewire/internal/repository/memory"
	"github.com/NordCoder/Notewire/internal/services/inbox/realtime"
	"github.com/NordCoder/Notewire/internal/services/producer"
)

// manualScheduler holds timers until fireAll runs them.
type manualScheduler struct {
	mu  sync.Mutex
	fns []func()
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) realtime.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, f)
	return noopTimer{}
}

func (s *manualScheduler) fireAll() {
	s.mu.Lock()
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

type world struct {
	repo    *memory.NotificationRepo
	hub     *memory.Hub
	box     *memory.OutboxRepo
	uc      *producer.Usecase
	relay   *outbox.Runner
	sched   *manualScheduler
	session *Session
}

func newWorld(t *testing.T, poll time.Duration) *world {
	t.Helper()
	w := &world{
		repo:  memory.NewNotificationRepo(),
		hub:   memory.NewHub(),
		box:   memory.NewOutboxRepo(),
		sched: &manualScheduler{},
	}
	w.uc = producer.New(w.repo, memory.NewSettingsRepo(), w.box, memory.Transactor{}, nil, zap.NewNop())
	w.relay = outbox.NewOutboxRunner(zap.NewNop(), w.box,
		outbox.MakeGlobalOutboxHandler(w.hub, retry.Policy{Attempts: 1, Backoff: retry.Linear{Base: time.Millisecond}}),
		outbox.Config{BatchSize: 10})
	w.session = NewSession(Deps{
		Repo:      w.repo,
		Channel:   w.hub,
		Scheduler: w.sched,
		Logger:    zap.NewNop(),
	}, Config{PollInterval: poll})
	t.Cleanup(w.session.Close)
	return w
}

func TestSession_FollowDeliveredOnceDespiteRedelivery(t *testing.T) {
	w := newWorld(t, 0)
	ctx := context.Background()
	require.NoError(t, w.session.Initialize(ctx, "A"))
	assert.Equal(t, realtime.StateSubscribed, w.session.ChannelState())

	var delivered []string
	w.session.OnNewNotification(func(n notification.Notification) { delivered = append(delivered, n.ID) })

	res, err := w.uc.Create(ctx, producer.Spec{
		RecipientID: "A",
		SenderID:    "B",
		Type:        notification.TypeFollow,
		Title:       "New follower",
		Message:     "B started following you",
	})
	require.NoError(t, err)
	require.True(t, res.Created)

	relayed, err := w.relay.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, relayed)

	// The transport delivers the same event a second time.
	require.NoError(t, w.hub.PublishNotification(ctx, *res.Notification))

	assert.Equal(t, 1, w.session.UnreadCount())
	list := w.session.Notifications()
	require.Len(t, list, 1)
	assert.Equal(t, notification.TypeFollow, list[0].Type)
	assert.Equal(t, []string{res.Notification.ID}, delivered)

	require.NoError(t, w.session.Refresh(ctx))
	assert.Len(t, w.session.Notifications(), 1)
	assert.Equal(t, 1, w.session.UnreadCount())
}

func TestSession_SelfFollowNeverReachesInbox(t *testing.T) {
	w := newWorld(t, 0)
	ctx := context.Background()
	require.NoError(t, w.session.Initialize(ctx, "A"))

	res, err := w.uc.Create(ctx, producer.Spec{RecipientID: "A", SenderID: "A", Type: notification.TypeFollow})
	require.NoError(t, err)
	assert.True(t, res.Suppressed)

	relayed, err := w.relay.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, relayed)
	assert.Zero(t, w.session.UnreadCount())
	assert.Empty(t, w.session.Notifications())
}

func TestSession_DegradedFallsBackToPolling(t *testing.T) {
	w := newWorld(t, 10*time.Millisecond)
	ctx := context.Background()
	w.hub.SetAutoConfirm(false)
	require.NoError(t, w.session.Initialize(ctx, "A"))

	for i := 0; i < 3; i++ {
		w.hub.Emit("A", channel.StatusChannelError, errors.New("broker down"))
		w.sched.fireAll()
	}
	require.True(t, w.session.IsDegraded())
	assert.Zero(t, w.hub.Active())

	_, err := w.uc.Create(ctx, producer.Spec{RecipientID: "A", SenderID: "C", Type: notification.TypeStar})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return w.session.UnreadCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, w.session.poller.Running())

	w.hub.SetAutoConfirm(true)
	require.NoError(t, w.session.Reconnect(ctx))
	assert.False(t, w.session.IsDegraded())
	assert.False(t, w.session.poller.Running())
}

func TestSession_InitializeSwitchesUsers(t *testing.T) {
	w := newWorld(t, 0)
	ctx := context.Background()

	_, err := w.uc.Create(ctx, producer.Spec{RecipientID: "A", SenderID: "B", Type: notification.TypeStar})
	require.NoError(t, err)

	require.NoError(t, w.session.Initialize(ctx, "A"))
	assert.Equal(t, 1, w.session.UnreadCount())

	require.NoError(t, w.session.Initialize(ctx, "C"))
	assert.Zero(t, w.session.UnreadCount())
	assert.Empty(t, w.session.Notifications())
	assert.Equal(t, 1, w.hub.Active())

	w.session.Reset()
	assert.Zero(t, w.hub.Active())
	assert.Equal(t, realtime.StateDisconnected, w.session.ChannelState())
}

func seedInbox(t *testing.T, repo *memory.NotificationRepo, owner string, count int, from time.Time) {
	t.Helper()
	for i := 0; i < count; i++ {
		require.NoError(t, repo.Insert(context.Background(), &notification.Notification{
			ID:          fmt.Sprintf("%s-%02d", owner, i),
			RecipientID: owner,
			SenderID:    "B",
			Type:        notification.TypeStar,
			Priority:    notification.PriorityNormal,
			CreatedAt:   from.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func (w *world) degrade(t *testing.T, user string) {
	t.Helper()
	for i := 0; i < 3; i++ {
		w.hub.Emit(user, channel.StatusChannelError, errors.New("broker down"))
		w.sched.fireAll()
	}
	require.True(t, w.session.IsDegraded())
}

type idRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *idRecorder) record(n notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, n.ID)
}

func (r *idRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestSession_PollingKeepsLoadedPages(t *testing.T) {
	w := newWorld(t, 10*time.Millisecond)
	ctx := context.Background()
	start := time.Now().Add(-2 * time.Hour)
	seedInbox(t, w.repo, "A", 45, start)

	w.hub.SetAutoConfirm(false)
	require.NoError(t, w.session.Initialize(ctx, "A"))
	require.NoError(t, w.session.LoadMore(ctx))
	require.NoError(t, w.session.LoadMore(ctx))
	require.Len(t, w.session.Notifications(), 45)

	seen := &idRecorder{}
	w.session.OnNewNotification(seen.record)

	w.degrade(t, "A")

	res, err := w.uc.Create(ctx, producer.Spec{RecipientID: "A", SenderID: "C", Type: notification.TypeFollow})
	require.NoError(t, err)
	require.True(t, res.Created)

	assert.Eventually(t, func() bool {
		return len(w.session.Notifications()) == 46 && w.session.UnreadCount() == 46
	}, 2*time.Second, 10*time.Millisecond)

	// Further ticks leave the merged feed alone.
	time.Sleep(50 * time.Millisecond)
	list := w.session.Notifications()
	assert.Len(t, list, 46)
	assert.Equal(t, res.Notification.ID, list[0].ID)
	assert.Equal(t, 46, w.session.UnreadCount())
	assert.False(t, w.session.HasMore())
	assert.Equal(t, []string{res.Notification.ID}, seen.snapshot())
}

func TestSession_ResubscribeReconcilesMissedEvents(t *testing.T) {
	w := newWorld(t, 0)
	ctx := context.Background()
	w.hub.SetAutoConfirm(false)
	require.NoError(t, w.session.Initialize(ctx, "A"))

	seen := &idRecorder{}
	w.session.OnNewNotification(seen.record)

	w.hub.Emit("A", channel.StatusChannelError, errors.New("broker down"))
	require.Equal(t, realtime.StateRetrying, w.session.ChannelState())

	// Published while no subscription was live; never relayed to the hub.
	res, err := w.uc.Create(ctx, producer.Spec{RecipientID: "A", SenderID: "C", Type: notification.TypeStar})
	require.NoError(t, err)

	w.hub.SetAutoConfirm(true)
	w.sched.fireAll()
	require.Equal(t, realtime.StateSubscribed, w.session.ChannelState())

	assert.Eventually(t, func() bool {
		return len(w.session.Notifications()) == 1 && w.session.UnreadCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{res.Notification.ID}, seen.snapshot())

	// A late relay of the same event is absorbed.
	_, err = w.relay.Tick(ctx)
	require.NoError(t, err)
	assert.Len(t, w.session.Notifications(), 1)
	assert.Equal(t, 1, w.session.UnreadCount())
	assert.Equal(t, []string{res.Notification.ID}, seen.snapshot())
}
