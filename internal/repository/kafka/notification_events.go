package kafka

import (
	"context"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

type NotificationEventsKafka struct {
	p *Producer
}

func NewNotificationEventsKafka(p *Producer) *NotificationEventsKafka {
	return &NotificationEventsKafka{p: p}
}

var _ notification.Publisher = (*NotificationEventsKafka)(nil)

func (e *NotificationEventsKafka) PublishNotification(ctx context.Context, n notification.Notification) error {
	st, err := EncodeNotification(n)
	if err != nil {
		return err
	}
	return e.p.PublishProto(ctx, KeyFor(n.RecipientID), st)
}
