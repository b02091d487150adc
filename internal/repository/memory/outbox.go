package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/Notewire/internal/domain/outbox"
)

var _ outbox.Repository = (*OutboxRepo)(nil)

type OutboxRepo struct {
	mu   sync.Mutex
	now  func() time.Time
	msgs map[string]*outbox.Message
}

func NewOutboxRepo() *OutboxRepo {
	return &OutboxRepo{now: time.Now, msgs: make(map[string]*outbox.Message)}
}

func (r *OutboxRepo) Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.msgs[key]; ok {
		return nil
	}
	now := r.now()
	r.msgs[key] = &outbox.Message{
		IdempotencyKey: key,
		Kind:           kind,
		Data:           append([]byte(nil), data...),
		Status:         outbox.StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return nil
}

func (r *OutboxRepo) PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]outbox.Message, error) {
	if batch <= 0 {
		return nil, errors.New("batch must be > 0")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var cand []*outbox.Message
	for _, m := range r.msgs {
		switch {
		case m.Status == outbox.StatusCreated:
			cand = append(cand, m)
		case m.Status == outbox.StatusInProgress && m.UpdatedAt.Before(now.Add(-inProgressTTL)):
			cand = append(cand, m)
		}
	}
	sort.Slice(cand, func(i, j int) bool { return cand[i].CreatedAt.Before(cand[j].CreatedAt) })
	if len(cand) > batch {
		cand = cand[:batch]
	}

	out := make([]outbox.Message, 0, len(cand))
	for _, m := range cand {
		m.Status = outbox.StatusInProgress
		m.UpdatedAt = now
		out = append(out, *m)
	}
	return out, nil
}

func (r *OutboxRepo) MarkSuccess(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, k := range keys {
		if m, ok := r.msgs[k]; ok {
			m.Status = outbox.StatusSuccess
			m.UpdatedAt = now
		}
	}
	return nil
}

// Status reports the state of one message, for tests and the demo CLI.
func (r *OutboxRepo) Status(key string) (outbox.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[key]
	if !ok {
		return "", false
	}
	return m.Status, true
}

// Transactor runs the function directly. The in-memory stores have no
// rollback, so a failed function may leave partial writes behind.
type Transactor struct{}

func (Transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
