package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/NordCoder/Notewire/internal/domain/channel"
	"github.com/NordCoder/Notewire/internal/domain/notification"
)

// Hub is an in-process push transport: it implements both ends,
// notification.Publisher and channel.Channel. Subscriptions are
// confirmed synchronously unless AutoConfirm is off.
type Hub struct {
	mu          sync.Mutex
	seq         int
	subs        map[string]*hubSub
	autoConfirm bool
	subscribeFn func(sub channel.Subscription) error
}

var (
	_ channel.Channel        = (*Hub)(nil)
	_ notification.Publisher = (*Hub)(nil)
)

type hubSub struct {
	id  string
	sub channel.Subscription
}

func (s *hubSub) ID() string { return s.id }

func NewHub() *Hub {
	return &Hub{subs: make(map[string]*hubSub), autoConfirm: true}
}

// SetAutoConfirm controls whether Subscribe immediately reports SUBSCRIBED.
func (h *Hub) SetAutoConfirm(on bool) {
	h.mu.Lock()
	h.autoConfirm = on
	h.mu.Unlock()
}

// FailSubscribe makes every following Subscribe return fn's error when
// it is non-nil.
func (h *Hub) FailSubscribe(fn func(sub channel.Subscription) error) {
	h.mu.Lock()
	h.subscribeFn = fn
	h.mu.Unlock()
}

func (h *Hub) Subscribe(_ context.Context, sub channel.Subscription) (channel.Handle, error) {
	h.mu.Lock()
	if h.subscribeFn != nil {
		if err := h.subscribeFn(sub); err != nil {
			h.mu.Unlock()
			return nil, err
		}
	}
	h.seq++
	s := &hubSub{id: "hub-" + strconv.Itoa(h.seq), sub: sub}
	h.subs[s.id] = s
	confirm := h.autoConfirm
	h.mu.Unlock()

	if confirm && sub.OnStatus != nil {
		sub.OnStatus(channel.StatusSubscribed, nil)
	}
	return s, nil
}

func (h *Hub) Unsubscribe(handle channel.Handle) error {
	if handle == nil {
		return nil
	}
	h.mu.Lock()
	s, ok := h.subs[handle.ID()]
	delete(h.subs, handle.ID())
	h.mu.Unlock()

	if ok && s.sub.OnStatus != nil {
		s.sub.OnStatus(channel.StatusClosed, nil)
	}
	return nil
}

// PublishNotification fans n out to every live subscription of its recipient.
func (h *Hub) PublishNotification(ctx context.Context, n notification.Notification) error {
	for _, s := range h.matching(n.RecipientID) {
		if s.sub.OnEvent != nil {
			s.sub.OnEvent(ctx, n.Clone())
		}
	}
	return nil
}

// Emit reports st to every live subscription of recipientID.
func (h *Hub) Emit(recipientID string, st channel.Status, err error) {
	for _, s := range h.matching(recipientID) {
		if s.sub.OnStatus != nil {
			s.sub.OnStatus(st, err)
		}
	}
}

// Active counts live subscriptions.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) matching(recipientID string) []*hubSub {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*hubSub, 0, len(h.subs))
	for _, s := range h.subs {
		if s.sub.RecipientID == recipientID {
			out = append(out, s)
		}
	}
	return out
}
