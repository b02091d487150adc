// Package inbox wires the client side of notification delivery for one
// logged-in user: the push subscription, the deduplicator and the local
// feed. Construct one Session per user; nothing here is global.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/channel"
	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/services/inbox/dedup"
	"github.com/NordCoder/Notewire/internal/services/inbox/feed"
	"github.com/NordCoder/Notewire/internal/services/inbox/realtime"
)

const feedConsumer = "feed"

type Deps struct {
	Repo      notification.Repo
	Channel   channel.Channel
	Clock     notification.Clock
	Scheduler realtime.Scheduler
	Logger    *zap.Logger
}

type Config struct {
	PageSize      int             `mapstructure:"page_size"`
	DedupCapacity int             `mapstructure:"dedup_capacity"`
	PollInterval  time.Duration   `mapstructure:"poll_interval"`
	Realtime      realtime.Config `mapstructure:"realtime"`
}

type Session struct {
	log     *zap.Logger
	feed    *feed.Synchronizer
	dedup   *dedup.Deduplicator
	manager *realtime.Manager
	poller  *Poller
	// set while the push channel is Retrying or Degraded; deliveries in
	// that window may have been missed
	recovering atomic.Bool
}

func NewSession(d Deps, cfg Config) *Session {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "inbox.session"))

	s := &Session{log: log}
	s.feed = feed.NewSynchronizer(d.Repo, d.Clock, cfg.PageSize, log)
	s.dedup = dedup.New(cfg.DedupCapacity)
	s.manager = realtime.NewManager(d.Channel, s.dedup, d.Scheduler, cfg.Realtime, log)
	s.poller = NewPoller(cfg.PollInterval, s.poll, log)

	s.dedup.Register(feedConsumer, func(_ context.Context, n notification.Notification) {
		s.feed.Add(n)
	})
	s.manager.OnStateChange(s.onStateChange)
	return s
}

// Initialize switches the session to userID: prior state is dropped, the
// push channel is subscribed and the first page and unread count load.
func (s *Session) Initialize(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("inbox: empty user id")
	}
	s.Reset()
	s.feed.Bind(userID)

	if err := s.manager.Subscribe(ctx, userID); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return errors.Join(
		s.feed.LoadNotifications(ctx, true),
		s.feed.LoadUnreadCount(ctx),
	)
}

func (s *Session) LoadMore(ctx context.Context) error {
	return s.feed.LoadNotifications(ctx, false)
}

// Refresh reloads the first page and the authoritative unread count.
func (s *Session) Refresh(ctx context.Context) error {
	return errors.Join(
		s.feed.LoadNotifications(ctx, true),
		s.feed.LoadUnreadCount(ctx),
	)
}

func (s *Session) MarkAsRead(ctx context.Context, id string) error {
	return s.feed.MarkAsRead(ctx, id)
}

func (s *Session) MarkAllAsRead(ctx context.Context) error {
	return s.feed.MarkAllAsRead(ctx)
}

func (s *Session) DeleteNotification(ctx context.Context, id string) error {
	return s.feed.DeleteNotification(ctx, id)
}

func (s *Session) DeleteAllNotifications(ctx context.Context) error {
	return s.feed.DeleteAllNotifications(ctx)
}

func (s *Session) Notifications() []notification.Notification { return s.feed.Notifications() }

func (s *Session) UnreadCount() int { return s.feed.UnreadCount() }

func (s *Session) HasMore() bool { return s.feed.HasMore() }

// OnNewNotification calls cb for every push-delivered notification that
// made it into the feed.
func (s *Session) OnNewNotification(cb func(notification.Notification)) *feed.Subscription {
	return s.feed.Emitter().Subscribe(cb)
}

// OnChannelState registers fn for push channel transitions.
func (s *Session) OnChannelState(fn realtime.StateListener) { s.manager.OnStateChange(fn) }

func (s *Session) IsDegraded() bool { return s.manager.IsDegraded() }

func (s *Session) ChannelState() realtime.State { return s.manager.State() }

// Reconnect retries the push channel after degradation.
func (s *Session) Reconnect(ctx context.Context) error {
	owner := s.feed.Owner()
	if owner == "" {
		return feed.ErrNoOwner
	}
	return s.manager.Subscribe(ctx, owner)
}

// Reset tears the channel down and clears all local state. The session can
// be initialized again afterwards.
func (s *Session) Reset() {
	s.manager.Disconnect()
	s.poller.Stop()
	s.feed.Reset()
	s.dedup.Reset()
	s.recovering.Store(false)
}

// Close releases the session for good.
func (s *Session) Close() {
	s.manager.Close()
	s.poller.Stop()
	s.feed.Reset()
}

func (s *Session) onStateChange(prev, next realtime.State) {
	switch next {
	case realtime.StateRetrying:
		s.recovering.Store(true)
	case realtime.StateDegraded:
		s.recovering.Store(true)
		s.log.Warn("push channel degraded, falling back to polling", zap.String("user", s.manager.UserID()))
		s.poller.Start()
	case realtime.StateSubscribed:
		if s.recovering.CompareAndSwap(true, false) {
			go s.reconcile()
		}
	}
	if prev == realtime.StateDegraded && next != realtime.StateDegraded {
		s.poller.Stop()
	}
}

// reconcile picks up whatever was published while the channel was down.
func (s *Session) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()
	if err := s.poll(ctx); err != nil {
		s.log.Warn("reconcile after resubscribe failed", zap.Error(err))
	}
}

// poll merges the newest page into the feed without dropping loaded pages
// and reloads the authoritative unread count.
func (s *Session) poll(ctx context.Context) error {
	if s.feed.Owner() == "" {
		return nil
	}
	fresh, err := s.feed.PollHead(ctx)
	if len(fresh) > 0 {
		s.log.Debug("poll merged notifications", zap.Int("count", len(fresh)))
	}
	err = errors.Join(err, s.feed.LoadUnreadCount(ctx))
	if errors.Is(err, feed.ErrNoOwner) {
		// Reset ran mid-poll.
		return nil
	}
	return err
}
