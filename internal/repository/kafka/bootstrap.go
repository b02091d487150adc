package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BootstrapConsumer dials the cluster, makes sure cfg.Topic exists and
// returns a consumer for it. A dial failure is returned as is.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, spec TopicSpec, logger *zap.Logger) (*Consumer, error) {
	spec.Name = cfg.Topic
	if err := EnsureTopic(ctx, cfg.Brokers, spec, logger); err != nil {
		return nil, err
	}
	return NewConsumer(cfg), nil
}

func BootstrapProducer(ctx context.Context, brokers []string, spec TopicSpec, logger *zap.Logger) *Producer {
	if spec.MaxWait <= 0 {
		spec.MaxWait = 5 * time.Second
	}
	_ = EnsureTopic(ctx, brokers, spec, logger)

	return NewProducer(brokers, spec.Name).WithLogger(logger)
}
