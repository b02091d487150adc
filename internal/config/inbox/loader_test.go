package inbox_config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	sc := cfg.Session.AsSessionConfig()
	assert.Equal(t, 20, sc.PageSize)
	assert.Equal(t, 100, sc.DedupCapacity)
	assert.Equal(t, 3, sc.Realtime.MaxAttempts)
	assert.Equal(t, 2*time.Second, sc.Realtime.BaseDelay)
	assert.Equal(t, "notewire.notifications", sc.Realtime.Topic)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "inbox", cfg.Kafka.AsPushChannelConfig().GroupPrefix)
	assert.Equal(t, "http://localhost:8080", cfg.Producer.BaseURL)
	assert.True(t, cfg.Producer.VerifyTLS)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SESSION_REALTIME_MAX_ATTEMPTS", "5")
	t.Setenv("SESSION_POLL_INTERVAL", "0s")
	t.Setenv("PUSH_TRANSPORT", "redis")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Session.Realtime.MaxAttempts)
	assert.Zero(t, cfg.Session.PollInterval)
	assert.Equal(t, TransportRedis, cfg.Push.Transport)
}
