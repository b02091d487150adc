package producer_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "notewire.notifications", cfg.Kafka.Topic)
	assert.Equal(t, TransportKafka, cfg.Push.Transport)
	assert.Equal(t, 2*time.Second, cfg.DB.QueryTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Outbox.WaitTime)
	assert.Equal(t, "notewire/producer", cfg.AsLoggerConfig().App)
	assert.Equal(t, "notewire.notifications", cfg.Kafka.AsTopicSpec().Name)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PUSH_TRANSPORT", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("OUTBOX_BATCH_SIZE", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, TransportRedis, cfg.Push.Transport)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 7, cfg.Outbox.BatchSize)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "producer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_addr: \":9999\"\nlog:\n  pretty: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoad_RejectsUnknownTransport(t *testing.T) {
	t.Setenv("PUSH_TRANSPORT", "carrier-pigeon")

	_, err := Load("")
	var cerr ErrConfig
	assert.ErrorAs(t, err, &cerr)
}
