package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

type Publisher struct {
	c   *Client
	log *zap.Logger
}

var _ notification.Publisher = (*Publisher)(nil)

func NewPublisher(c *Client) *Publisher {
	return &Publisher{c: c, log: c.logger.With(zap.String("component", "redis.publisher"))}
}

func (p *Publisher) PublishNotification(ctx context.Context, n notification.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	receivers, err := p.c.rdb.Publish(ctx, ChannelFor(n.RecipientID), payload).Result()
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	p.log.Debug("notification published",
		zap.String("id", n.ID),
		zap.String("recipient", n.RecipientID),
		zap.Int64("receivers", receivers),
	)
	return nil
}
