package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/Notewire/internal/config/inbox"
	"github.com/NordCoder/Notewire/internal/domain/channel"
	kafkax "github.com/NordCoder/Notewire/internal/repository/kafka"
	pg "github.com/NordCoder/Notewire/internal/repository/postgres"
	redisx "github.com/NordCoder/Notewire/internal/repository/redis"
)

type closer func()

func openRepo(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pg.NotificationRepoImpl, closer, error) {
	db, err := pg.New(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("db connected")
	return pg.NewNotificationRepo(db), db.Close, nil
}

func openChannel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (channel.Channel, closer, error) {
	switch cfg.Push.Transport {
	case config.TransportRedis:
		c, err := redisx.NewClient(ctx, cfg.Redis.Config, logger)
		if err != nil {
			return nil, nil, err
		}
		return redisx.NewPushChannel(c, cfg.Redis.SubscribeTTL), func() { _ = c.Close() }, nil
	default:
		return kafkax.NewPushChannel(cfg.Kafka.AsPushChannelConfig(), logger), func() {}, nil
	}
}
