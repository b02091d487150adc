package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/Notewire/internal/config/producer"
	"github.com/NordCoder/Notewire/internal/domain/notification"
	kafkax "github.com/NordCoder/Notewire/internal/repository/kafka"
	redisx "github.com/NordCoder/Notewire/internal/repository/redis"
)

// initPublisher builds the push transport the outbox relay writes to.
func initPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (notification.Publisher, func() error, error) {
	switch cfg.Push.Transport {
	case config.TransportRedis:
		c, err := redisx.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return redisx.NewPublisher(c), c.Close, nil
	default:
		p := kafkax.BootstrapProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.AsTopicSpec(), logger)
		logger.Info("kafka producer initialized",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", p.Topic()),
		)
		return kafkax.NewNotificationEventsKafka(p), p.Close, nil
	}
}
