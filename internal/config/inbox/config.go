package inbox_config

import (
	"time"

	"github.com/NordCoder/Notewire/internal/obs"
	kafkax "github.com/NordCoder/Notewire/internal/repository/kafka"
	pg "github.com/NordCoder/Notewire/internal/repository/postgres"
	redisx "github.com/NordCoder/Notewire/internal/repository/redis"
	"github.com/NordCoder/Notewire/internal/services/inbox"
	"github.com/NordCoder/Notewire/internal/services/inbox/realtime"
	"github.com/NordCoder/Notewire/internal/services/producer"
)

const (
	TransportKafka = "kafka"
	TransportRedis = "redis"
)

type Kafka struct {
	Brokers     []string      `mapstructure:"brokers"`
	GroupPrefix string        `mapstructure:"group_prefix"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

func (k *Kafka) AsPushChannelConfig() kafkax.PushChannelConfig {
	return kafkax.PushChannelConfig{
		Brokers:     k.Brokers,
		GroupPrefix: k.GroupPrefix,
		DialTimeout: k.DialTimeout,
	}
}

type Redis struct {
	redisx.Config `mapstructure:",squash"`
	SubscribeTTL  time.Duration `mapstructure:"subscribe_ttl"`
}

type Push struct {
	Transport string `mapstructure:"transport"`
}

type Session struct {
	PageSize      int             `mapstructure:"page_size"`
	DedupCapacity int             `mapstructure:"dedup_capacity"`
	PollInterval  time.Duration   `mapstructure:"poll_interval"`
	Realtime      realtime.Config `mapstructure:"realtime"`
}

func (s *Session) AsSessionConfig() inbox.Config {
	return inbox.Config{
		PageSize:      s.PageSize,
		DedupCapacity: s.DedupCapacity,
		PollInterval:  s.PollInterval,
		Realtime:      s.Realtime,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (lc *Log) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  lc.Level,
		Pretty: lc.Pretty,
		App:    "notewire/inbox",
	}
}

type Config struct {
	DB       pg.Config             `mapstructure:"db"`
	Kafka    Kafka                 `mapstructure:"kafka"`
	Redis    Redis                 `mapstructure:"redis"`
	Push     Push                  `mapstructure:"push"`
	Session  Session               `mapstructure:"session"`
	Producer producer.ClientConfig `mapstructure:"producer"`
	Log      Log                   `mapstructure:"log"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
