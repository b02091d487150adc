// Package dedup drops push events whose id was seen recently. It keeps a
// bounded FIFO of ids; an id evicted from the window and delivered again
// is forwarded again.
package dedup

import (
	"container/list"
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

const DefaultCapacity = 100

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inbox_dedup_events_total",
	Help: "Push events seen by the deduplicator, by outcome (forwarded, dropped).",
}, []string{"outcome"})

type Consumer func(ctx context.Context, n notification.Notification)

type registration struct {
	name string
	fn   Consumer
}

type Deduplicator struct {
	capacity int

	mu        sync.Mutex
	order     *list.List
	seen      map[string]*list.Element
	consumers []registration
}

func New(capacity int) *Deduplicator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Deduplicator{
		capacity: capacity,
		order:    list.New(),
		seen:     make(map[string]*list.Element, capacity),
	}
}

// Register adds fn under name. Registering an existing name replaces the
// consumer and keeps its position.
func (d *Deduplicator) Register(name string, fn Consumer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.consumers {
		if d.consumers[i].name == name {
			d.consumers[i].fn = fn
			return
		}
	}
	d.consumers = append(d.consumers, registration{name: name, fn: fn})
}

func (d *Deduplicator) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.consumers {
		if d.consumers[i].name == name {
			d.consumers = append(d.consumers[:i], d.consumers[i+1:]...)
			return
		}
	}
}

// Process forwards n to every consumer unless id is still in the window.
// It reports whether n was forwarded.
func (d *Deduplicator) Process(ctx context.Context, id string, n notification.Notification) bool {
	d.mu.Lock()
	if _, ok := d.seen[id]; ok {
		d.mu.Unlock()
		eventsTotal.WithLabelValues("dropped").Inc()
		return false
	}
	d.seen[id] = d.order.PushBack(id)
	for d.order.Len() > d.capacity {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	consumers := make([]registration, len(d.consumers))
	copy(consumers, d.consumers)
	d.mu.Unlock()

	eventsTotal.WithLabelValues("forwarded").Inc()
	for _, c := range consumers {
		c.fn(ctx, n.Clone())
	}
	return true
}

// Seen reports whether id is inside the window.
func (d *Deduplicator) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[id]
	return ok
}

func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}

// Reset forgets every seen id. Consumers stay registered.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.order.Init()
	d.seen = make(map[string]*list.Element, d.capacity)
}
