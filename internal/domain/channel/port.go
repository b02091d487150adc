package channel

import (
	"context"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

// Status is the out-of-band signal a push channel emits about a subscription.
type Status string

const (
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusChannelError Status = "CHANNEL_ERROR"
	StatusTimedOut     Status = "TIMED_OUT"
	StatusClosed       Status = "CLOSED"
)

type Subscription struct {
	Topic       string
	RecipientID string
	OnEvent     func(ctx context.Context, n notification.Notification)
	OnStatus    func(s Status, err error)
}

type Handle interface {
	ID() string
}

// Channel delivers events at least once. Subscribe returns immediately;
// readiness and failures arrive through Subscription.OnStatus.
type Channel interface {
	Subscribe(ctx context.Context, sub Subscription) (Handle, error)
	Unsubscribe(h Handle) error
}
