package settings

import "context"

type Repo interface {
	Get(ctx context.Context, userID string) (*Settings, error)
	Update(ctx context.Context, userID string, p Patch) (*Settings, error)
}
