package redis

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/channel"
	"github.com/NordCoder/Notewire/internal/domain/notification"
)

// PushChannel serves channel.Channel from Redis pub/sub. Subscription.Topic
// is ignored; the channel name is derived from the recipient.
type PushChannel struct {
	c            *Client
	log          *zap.Logger
	subscribeTTL time.Duration

	mu   sync.Mutex
	subs map[string]*redisSub
}

var _ channel.Channel = (*PushChannel)(nil)

type redisSub struct {
	id     string
	sub    channel.Subscription
	ps     *goredis.PubSub
	cancel context.CancelFunc
	once   sync.Once
}

func (s *redisSub) ID() string { return s.id }

// NewPushChannel builds the channel. subscribeTTL bounds the wait for the
// server's subscription confirmation; past it the subscription is TIMED_OUT.
func NewPushChannel(c *Client, subscribeTTL time.Duration) *PushChannel {
	if subscribeTTL <= 0 {
		subscribeTTL = 5 * time.Second
	}
	return &PushChannel{
		c:            c,
		log:          c.logger.With(zap.String("component", "redis.push_channel")),
		subscribeTTL: subscribeTTL,
		subs:         make(map[string]*redisSub),
	}
}

func (p *PushChannel) Subscribe(ctx context.Context, sub channel.Subscription) (channel.Handle, error) {
	if sub.RecipientID == "" {
		return nil, errors.New("redis push channel: recipient is required")
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &redisSub{
		id:     uuid.NewString(),
		sub:    sub,
		ps:     p.c.rdb.Subscribe(runCtx, ChannelFor(sub.RecipientID)),
		cancel: cancel,
	}

	p.mu.Lock()
	p.subs[s.id] = s
	p.mu.Unlock()

	go p.run(runCtx, s)
	return s, nil
}

func (p *PushChannel) Unsubscribe(h channel.Handle) error {
	if h == nil {
		return nil
	}
	p.mu.Lock()
	s, ok := p.subs[h.ID()]
	delete(p.subs, h.ID())
	p.mu.Unlock()
	if !ok {
		return nil
	}
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
		notify(s.sub, channel.StatusClosed, nil)
	})
	return err
}

func (p *PushChannel) run(ctx context.Context, s *redisSub) {
	log := p.log.With(zap.String("recipient", s.sub.RecipientID), zap.String("subscription", s.id))

	// The first reply on a fresh PubSub is the subscription confirmation.
	msg, err := s.ps.ReceiveTimeout(ctx, p.subscribeTTL)
	if err != nil {
		p.fail(ctx, log, s, err)
		return
	}
	if _, ok := msg.(*goredis.Subscription); !ok {
		log.Debug("unexpected first reply", zap.Any("reply", msg))
	}
	notify(s.sub, channel.StatusSubscribed, nil)

	for {
		m, err := s.ps.ReceiveMessage(ctx)
		if err != nil {
			p.fail(ctx, log, s, err)
			return
		}
		var n notification.Notification
		if err := json.Unmarshal([]byte(m.Payload), &n); err != nil {
			log.Warn("skip malformed notification", zap.Error(err))
			continue
		}
		if n.RecipientID != s.sub.RecipientID {
			continue
		}
		if s.sub.OnEvent != nil {
			s.sub.OnEvent(ctx, n)
		}
	}
}

func (p *PushChannel) fail(ctx context.Context, log *zap.Logger, s *redisSub, err error) {
	if ctx.Err() != nil || errors.Is(err, goredis.ErrClosed) {
		return
	}
	if isTimeout(err) {
		log.Warn("subscription timed out", zap.Error(err))
		notify(s.sub, channel.StatusTimedOut, err)
		return
	}
	log.Warn("subscription failed", zap.Error(err))
	notify(s.sub, channel.StatusChannelError, err)
}

func notify(sub channel.Subscription, st channel.Status, err error) {
	if sub.OnStatus != nil {
		sub.OnStatus(st, err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
