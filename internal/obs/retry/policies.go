package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

func DefaultPublishPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "push_publish",
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("publish retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("publish retries exhausted", zap.Error(err))
			}
		},
	}
}

// ChannelBackoff is the reconnect schedule of a push subscription:
// base, 2*base, 3*base, ...
func ChannelBackoff(base time.Duration) Backoff {
	return Linear{Base: base}
}
