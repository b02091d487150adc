package inbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const pollTimeout = 30 * time.Second

// Poller calls fn on a fixed interval while running. It is the fallback
// feed source for a session whose push channel is degraded.
type Poller struct {
	interval time.Duration
	fn       func(ctx context.Context) error
	log      *zap.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

func NewPoller(interval time.Duration, fn func(ctx context.Context) error, log *zap.Logger) *Poller {
	return &Poller{interval: interval, fn: fn, log: log.With(zap.String("component", "inbox.poller"))}
}

// Start is a no-op when the poller is already running or the interval is 0.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.interval <= 0 {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	go p.loop(p.stopCh)
	p.log.Info("polling started", zap.Duration("interval", p.interval))
}

// Stop halts polling without waiting for an in-flight poll.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
	p.log.Info("polling stopped")
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
			if err := p.fn(ctx); err != nil {
				p.log.Warn("poll failed", zap.Error(err))
			}
			cancel()
		}
	}
}
