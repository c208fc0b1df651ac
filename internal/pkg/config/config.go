// Package config holds the daemon's settings.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is assembled from command line flags plus the environment-only
// integration settings.
type Config struct {
	ProgramFile      string
	DryRun           bool
	TickInterval     time.Duration
	DiscoveryTimeout time.Duration
	LogLevel         string
	LogFormat        string

	Integrations
}

// Integrations configures the optional sinks. Each one is enabled only when
// its address is set.
type Integrations struct {
	MqttCfg     MqttConfig     `envPrefix:"MQTT_"`
	DatabaseCfg DatabaseConfig `envPrefix:"DATABASE_"`
	RedisCfg    RedisConfig    `envPrefix:"REDIS_"`
	StatusCfg   StatusConfig   `envPrefix:"STATUS_"`
}

type MqttConfig struct {
	Host        string `env:"HOST"`
	Username    string `env:"USER"`
	Password    string `env:"PASS"`
	TopicPrefix string `env:"TOPIC_PREFIX" envDefault:"homeassistant"`
}

type DatabaseConfig struct {
	URL             string        `env:"URL"`
	Retention       time.Duration `env:"RETENTION" envDefault:"168h"`
	CleanupSchedule string        `env:"CLEANUP_SCHEDULE" envDefault:"0 3 * * *"`
}

type RedisConfig struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	TTL      time.Duration `env:"TTL" envDefault:"30s"`
}

type StatusConfig struct {
	Addr           string `env:"ADDR"`
	ReportSchedule string `env:"REPORT_SCHEDULE" envDefault:"@every 1m"`
}

func LoadIntegrations() (Integrations, error) {
	return env.ParseAs[Integrations]()
}

func (m MqttConfig) Enabled() bool     { return m.Host != "" }
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }
func (r RedisConfig) Enabled() bool    { return r.Addr != "" }
func (s StatusConfig) Enabled() bool   { return s.Addr != "" }
