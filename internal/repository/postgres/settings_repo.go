package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/domain/settings"
)

var _ settings.Repo = (*SettingsRepoImpl)(nil)

type SettingsRepoImpl struct {
	db *DB
	tx Transactor
}

func NewSettingsRepo(db *DB, tx Transactor) *SettingsRepoImpl {
	return &SettingsRepoImpl{db: db, tx: tx}
}

const (
	qSettingsGet = `
SELECT user_id, enabled, updated_at
FROM notification_settings
WHERE user_id = $1;
`
	qSettingsLock = `
SELECT user_id, enabled, updated_at
FROM notification_settings
WHERE user_id = $1
FOR UPDATE;
`
	qSettingsUpsert = `
INSERT INTO notification_settings (user_id, enabled, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE
SET enabled = EXCLUDED.enabled, updated_at = now()
RETURNING updated_at;
`
)

// Get returns the stored settings, or the all-enabled default when the user
// never saved any.
func (r *SettingsRepoImpl) Get(ctx context.Context, userID string) (*settings.Settings, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	s, err := r.scanOne(ctx, qSettingsGet, userID)
	if errors.Is(err, ErrNotFound) {
		return settings.Default(userID), nil
	}
	return s, err
}

func (r *SettingsRepoImpl) Update(ctx context.Context, userID string, p settings.Patch) (*settings.Settings, error) {
	var out *settings.Settings
	err := r.tx.WithTx(ctx, func(ctx context.Context) error {
		ctx, cancel := r.db.withTimeout(ctx)
		defer cancel()

		cur, err := r.scanOne(ctx, qSettingsLock, userID)
		switch {
		case errors.Is(err, ErrNotFound):
			cur = settings.Default(userID)
		case err != nil:
			return err
		}
		cur.Apply(p)

		raw, err := json.Marshal(cur.Enabled)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		if err := r.db.execQueryer(ctx).QueryRow(ctx, qSettingsUpsert, userID, raw).Scan(&cur.UpdatedAt); err != nil {
			return fmt.Errorf("upsert settings: %w", err)
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SettingsRepoImpl) scanOne(ctx context.Context, q, userID string) (*settings.Settings, error) {
	var (
		s   settings.Settings
		raw []byte
	)
	if err := r.db.execQueryer(ctx).QueryRow(ctx, q, userID).Scan(&s.UserID, &raw, &s.UpdatedAt); err != nil {
		if errors.Is(mapErr(err), ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select settings: %w", err)
	}
	s.Enabled = map[notification.Type]bool{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.Enabled); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}
	return &s, nil
}
