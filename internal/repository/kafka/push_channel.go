package kafka

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/Notewire/internal/domain/channel"
)

type PushChannelConfig struct {
	Brokers     []string
	GroupPrefix string
	DialTimeout time.Duration
}

// PushChannel serves channel.Channel from the notifications topic and drops
// messages keyed for other recipients. Consumer groups are named per
// recipient and per PushChannel, so a resubscribe resumes from the offsets
// the previous subscription committed instead of skipping to the newest.
// Use one PushChannel per client process.
type PushChannel struct {
	cfg      PushChannelConfig
	log      *zap.Logger
	instance string

	mu   sync.Mutex
	subs map[string]*kafkaSub
}

var _ channel.Channel = (*PushChannel)(nil)

type kafkaSub struct {
	id     string
	sub    channel.Subscription
	cancel context.CancelFunc

	mu       sync.Mutex
	consumer *Consumer
}

func (s *kafkaSub) ID() string { return s.id }

func NewPushChannel(cfg PushChannelConfig, log *zap.Logger) *PushChannel {
	if cfg.GroupPrefix == "" {
		cfg.GroupPrefix = "inbox"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PushChannel{
		cfg:      cfg,
		log:      log.With(zap.String("component", "kafka.push_channel")),
		instance: uuid.NewString(),
		subs:     make(map[string]*kafkaSub),
	}
}

func (p *PushChannel) groupID(recipientID string) string {
	return p.cfg.GroupPrefix + "-" + recipientID + "-" + p.instance
}

func (p *PushChannel) Subscribe(ctx context.Context, sub channel.Subscription) (channel.Handle, error) {
	if sub.Topic == "" || sub.RecipientID == "" {
		return nil, errors.New("kafka push channel: topic and recipient are required")
	}
	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &kafkaSub{id: id, sub: sub, cancel: cancel}

	p.mu.Lock()
	p.subs[id] = s
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

	s.cancel()
	s.mu.Lock()
	c := s.consumer
	s.consumer = nil
	s.mu.Unlock()

	var err error
	if c != nil {
		err = c.Close()
	}
	notify(s.sub, channel.StatusClosed, nil)
	return err
}

func (p *PushChannel) run(ctx context.Context, s *kafkaSub) {
	log := p.log.With(zap.String("recipient", s.sub.RecipientID), zap.String("subscription", s.id))

	dctx, cancel := context.WithTimeout(ctx, p.cfg.DialTimeout)
	consumer, err := BootstrapConsumer(dctx, &ConsumerConfig{
		Brokers:          p.cfg.Brokers,
		GroupID:          p.groupID(s.sub.RecipientID),
		Topic:            s.sub.Topic,
		StopOnFetchError: true,
		Logger:           log,
	}, TopicSpec{MaxWait: p.cfg.DialTimeout}, log)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if isTimeout(err) {
			log.Warn("subscribe timed out", zap.Error(err))
			notify(s.sub, channel.StatusTimedOut, err)
			return
		}
		log.Warn("subscribe failed", zap.Error(err))
		notify(s.sub, channel.StatusChannelError, err)
		return
	}

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		_ = consumer.Close()
		return
	}
	s.consumer = consumer
	s.mu.Unlock()

	notify(s.sub, channel.StatusSubscribed, nil)

	handler := ProtoHandler(func() *structpb.Struct { return &structpb.Struct{} },
		func(ctx context.Context, key []byte, st *structpb.Struct) error {
			if string(key) != s.sub.RecipientID {
				return nil
			}
			n, err := DecodeNotification(st)
			if err != nil {
				log.Warn("skip malformed notification", zap.Error(err))
				return nil
			}
			if s.sub.OnEvent != nil {
				s.sub.OnEvent(ctx, n)
			}
			return nil
		})

	err = consumer.Consume(ctx, handler)
	if ctx.Err() != nil {
		return
	}
	log.Warn("consumer failed", zap.Error(err))
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
