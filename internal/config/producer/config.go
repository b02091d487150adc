package producer_config

import (
	"time"

	"github.com/NordCoder/Notewire/internal/obs"
	"github.com/NordCoder/Notewire/internal/outbox"
	kafkax "github.com/NordCoder/Notewire/internal/repository/kafka"
	pg "github.com/NordCoder/Notewire/internal/repository/postgres"
	redisx "github.com/NordCoder/Notewire/internal/repository/redis"
)

const (
	TransportKafka = "kafka"
	TransportRedis = "redis"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Kafka struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	Partitions        int      `mapstructure:"partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
}

func (k *Kafka) AsTopicSpec() kafkax.TopicSpec {
	return kafkax.TopicSpec{
		Name:              k.Topic,
		NumPartitions:     k.Partitions,
		ReplicationFactor: k.ReplicationFactor,
	}
}

type Push struct {
	Transport string `mapstructure:"transport"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	App    App           `mapstructure:"app"`
	Server Server        `mapstructure:"server"`
	DB     pg.Config     `mapstructure:"db"`
	Kafka  Kafka         `mapstructure:"kafka"`
	Redis  redisx.Config `mapstructure:"redis"`
	Push   Push          `mapstructure:"push"`
	Outbox outbox.Config `mapstructure:"outbox"`
	OTEL   OTEL          `mapstructure:"otel"`
	Log    Log           `mapstructure:"log"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    "notewire/" + c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
