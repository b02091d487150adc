package outbox

import (
	"context"

	"github.com/NordCoder/Notewire/internal/domain/outbox"
	"github.com/NordCoder/Notewire/internal/obs/retry"
)

// WrapKindHandler retries h under p. A nil Backoff falls back to the
// publish policy schedule.
func WrapKindHandler(h outbox.KindHandler, p retry.Policy) outbox.KindHandler {
	if p.Backoff == nil {
		p.Backoff = retry.DefaultPublishPolicy(nil).Backoff
	}
	return func(ctx context.Context, data []byte) error {
		return retry.Do(ctx, func() error { return h(ctx, data) }, p)
	}
}
