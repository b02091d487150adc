package memory

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/domain/settings"
)

var _ settings.Repo = (*SettingsRepo)(nil)

type SettingsRepo struct {
	mu   sync.Mutex
	rows map[string]settings.Settings
}

func NewSettingsRepo() *SettingsRepo {
	return &SettingsRepo{rows: make(map[string]settings.Settings)}
}

func (r *SettingsRepo) Get(ctx context.Context, userID string) (*settings.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rows[userID]
	if !ok {
		return settings.Default(userID), nil
	}
	return copySettings(s), nil
}

func (r *SettingsRepo) Update(ctx context.Context, userID string, p settings.Patch) (*settings.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rows[userID]
	if !ok {
		s = *settings.Default(userID)
	}
	cur := copySettings(s)
	cur.Apply(p)
	cur.UpdatedAt = time.Now().UTC()
	r.rows[userID] = *cur
	return copySettings(*cur), nil
}

func copySettings(s settings.Settings) *settings.Settings {
	out := s
	out.Enabled = make(map[notification.Type]bool, len(s.Enabled))
	for k, v := range s.Enabled {
		out.Enabled[k] = v
	}
	return &out
}
