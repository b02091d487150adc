// Package realtime keeps one push subscription alive per inbox session.
//
// Every subscription attempt gets a generation number. Status and event
// callbacks carry the generation they were registered with and are dropped
// once a newer attempt (or a teardown) has superseded it.
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/channel"
	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/obs/retry"
	"github.com/NordCoder/Notewire/internal/services/inbox/dedup"
)

var ErrClosed = errors.New("realtime: manager closed")

var (
	statusTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inbox_channel_status_total",
		Help: "Channel status signals accepted by the subscription manager.",
	}, []string{"status"})
	degradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inbox_channel_degraded_total",
		Help: "Times a session gave up on its push channel.",
	})
)

type Config struct {
	Topic        string        `mapstructure:"topic"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BaseDelay    time.Duration `mapstructure:"base_delay"`
	TimeoutDelay time.Duration `mapstructure:"timeout_delay"`
}

func DefaultConfig() Config {
	return Config{
		Topic:        "notewire.notifications",
		MaxAttempts:  3,
		BaseDelay:    2 * time.Second,
		TimeoutDelay: 5 * time.Second,
	}
}

type StateListener func(prev, next State)

type Manager struct {
	ch      channel.Channel
	dedup   *dedup.Deduplicator
	sched   Scheduler
	backoff retry.Backoff
	cfg     Config
	log     *zap.Logger

	mu        sync.Mutex
	ctx       context.Context
	state     State
	userID    string
	gen       uint64
	handle    channel.Handle
	errCount  int
	timer     Timer
	timerSeq  uint64
	listeners []StateListener
}

func NewManager(ch channel.Channel, d *dedup.Deduplicator, sched Scheduler, cfg Config, log *zap.Logger) *Manager {
	def := DefaultConfig()
	if cfg.Topic == "" {
		cfg.Topic = def.Topic
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.TimeoutDelay <= 0 {
		cfg.TimeoutDelay = def.TimeoutDelay
	}
	if sched == nil {
		sched = SystemScheduler{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		ch:      ch,
		dedup:   d,
		sched:   sched,
		backoff: retry.ChannelBackoff(cfg.BaseDelay),
		cfg:     cfg,
		log:     log.With(zap.String("component", "inbox.realtime")),
		ctx:     context.Background(),
	}
}

// OnStateChange registers fn for every state transition. fn runs outside
// the manager lock and may call back into the manager.
func (m *Manager) OnStateChange(fn StateListener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsDegraded() bool { return m.State() == StateDegraded }

func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Subscribe (re)connects the push channel for userID. Any previous handle
// and pending retry are dropped first. Channel failures do not surface
// here; they drive the state machine.
func (m *Manager) Subscribe(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("realtime: empty user id")
	}

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrClosed
	}
	old := m.handle
	m.handle = nil
	m.stopTimerLocked()
	m.gen++
	gen := m.gen
	m.ctx = context.WithoutCancel(ctx)
	m.userID = userID
	m.errCount = 0
	fire := m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	fire()
	m.unsubscribe(old)
	m.connect(gen)
	return nil
}

// Disconnect drops the subscription and returns to Disconnected.
func (m *Manager) Disconnect() {
	m.teardown(StateDisconnected)
}

// Close tears down like Disconnect and makes the manager unusable.
func (m *Manager) Close() {
	m.teardown(StateClosed)
}

func (m *Manager) teardown(to State) {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	old := m.handle
	m.handle = nil
	m.stopTimerLocked()
	m.gen++
	m.errCount = 0
	if to == StateDisconnected {
		m.userID = ""
	}
	fire := m.setStateLocked(to)
	m.mu.Unlock()

	fire()
	m.unsubscribe(old)
}

func (m *Manager) connect(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	ctx, userID := m.ctx, m.userID
	m.mu.Unlock()

	h, err := m.ch.Subscribe(ctx, channel.Subscription{
		Topic:       m.cfg.Topic,
		RecipientID: userID,
		OnEvent: func(ctx context.Context, n notification.Notification) {
			m.onEvent(ctx, gen, n)
		},
		OnStatus: func(st channel.Status, err error) {
			m.onStatus(gen, st, err)
		},
	})
	if err != nil {
		m.log.Warn("subscribe failed", zap.String("user", userID), zap.Error(err))
		m.onStatus(gen, channel.StatusChannelError, err)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		// Superseded while subscribing, possibly by a synchronous status.
		m.mu.Unlock()
		m.unsubscribe(h)
		return
	}
	m.handle = h
	m.mu.Unlock()
}

func (m *Manager) onEvent(ctx context.Context, gen uint64, n notification.Notification) {
	m.mu.Lock()
	live := gen == m.gen && m.state != StateClosed
	m.mu.Unlock()
	if !live || m.dedup == nil {
		return
	}
	m.dedup.Process(ctx, n.ID, n)
}

func (m *Manager) onStatus(gen uint64, st channel.Status, cause error) {
	m.mu.Lock()
	if gen != m.gen || m.state == StateClosed || m.state == StateDegraded {
		m.mu.Unlock()
		return
	}
	statusTotal.WithLabelValues(string(st)).Inc()

	var (
		fire     = func() {}
		toRemove channel.Handle
	)
	log := m.log.With(zap.String("user", m.userID), zap.String("status", string(st)))

	switch st {
	case channel.StatusSubscribed:
		m.errCount = 0
		m.stopTimerLocked()
		fire = m.setStateLocked(StateSubscribed)
		log.Debug("channel subscribed")

	case channel.StatusChannelError:
		m.errCount++
		m.stopTimerLocked()
		if m.errCount < m.cfg.MaxAttempts {
			delay := m.backoff.Next(m.errCount - 1)
			m.scheduleLocked(gen, delay)
			fire = m.setStateLocked(StateRetrying)
			log.Warn("channel error, retrying", zap.Int("attempt", m.errCount), zap.Duration("delay", delay), zap.Error(cause))
			break
		}
		toRemove = m.handle
		m.handle = nil
		m.gen++
		degradedTotal.Inc()
		fire = m.setStateLocked(StateDegraded)
		log.Error("channel degraded", zap.Int("attempts", m.errCount), zap.Error(cause))

	case channel.StatusTimedOut:
		if m.timer != nil {
			break
		}
		m.scheduleLocked(gen, m.cfg.TimeoutDelay)
		fire = m.setStateLocked(StateRetrying)
		log.Warn("channel timed out, retrying", zap.Duration("delay", m.cfg.TimeoutDelay))

	case channel.StatusClosed:
	}
	m.mu.Unlock()

	fire()
	m.unsubscribe(toRemove)
}

func (m *Manager) scheduleLocked(gen uint64, d time.Duration) {
	m.timerSeq++
	seq := m.timerSeq
	m.timer = m.sched.AfterFunc(d, func() { m.retry(gen, seq) })
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerSeq++
}

func (m *Manager) retry(gen, seq uint64) {
	m.mu.Lock()
	if gen != m.gen || seq != m.timerSeq || m.state != StateRetrying {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	old := m.handle
	m.handle = nil
	m.gen++
	next := m.gen
	fire := m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	fire()
	m.unsubscribe(old)
	m.connect(next)
}

// setStateLocked moves to next and returns the listener notification to
// run once the lock is released.
func (m *Manager) setStateLocked(next State) func() {
	prev := m.state
	if prev == next {
		return func() {}
	}
	m.state = next
	ls := append([]StateListener(nil), m.listeners...)
	return func() {
		for _, fn := range ls {
			fn(prev, next)
		}
	}
}

func (m *Manager) unsubscribe(h channel.Handle) {
	if h == nil {
		return
	}
	if err := m.ch.Unsubscribe(h); err != nil {
		m.log.Warn("unsubscribe failed", zap.String("handle", h.ID()), zap.Error(err))
	}
}
