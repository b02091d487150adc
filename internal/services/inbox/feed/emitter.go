package feed

import (
	"sync"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

// Emitter fans new notifications out to observers in subscription order.
type Emitter struct {
	mu   sync.Mutex
	seq  uint64
	subs []*Subscription
}

type Subscription struct {
	e    *Emitter
	id   uint64
	fn   func(notification.Notification)
	once sync.Once
}

func NewEmitter() *Emitter { return &Emitter{} }

func (e *Emitter) Subscribe(fn func(notification.Notification)) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	s := &Subscription{e: e, id: e.seq, fn: fn}
	e.subs = append(e.subs, s)
	return s
}

// Unsubscribe is idempotent.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.e.mu.Lock()
		defer s.e.mu.Unlock()
		for i, x := range s.e.subs {
			if x.id == s.id {
				s.e.subs = append(s.e.subs[:i], s.e.subs[i+1:]...)
				return
			}
		}
	})
}

func (e *Emitter) Emit(n notification.Notification) {
	e.mu.Lock()
	subs := append([]*Subscription(nil), e.subs...)
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(n.Clone())
	}
}

func (e *Emitter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}
