package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"incubator-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Retention RetentionConfig `mapstructure:"retention"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// IngestConfig covers the MQTT reading feed.
type IngestConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	Topic          string        `mapstructure:"topic"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	QoS            int           `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// EngineConfig tunes rule evaluation.
type EngineConfig struct {
	AltaMargin   float64 `mapstructure:"alta_margin"`
	QualityFloor float64 `mapstructure:"quality_floor"`
}

// AlertingConfig defines notification routing for alert lifecycle events.
type AlertingConfig struct {
	Enabled       bool           `mapstructure:"enabled"`
	SubmitRetries int            `mapstructure:"submit_retries"`
	SubmitBackoff time.Duration  `mapstructure:"submit_backoff"`
	Telegram      TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram delivery channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// RetentionConfig governs the periodic reading sweep. Alerts are exempt
// from retention; they are kept for audit.
type RetentionConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	ReadingMaxAge time.Duration `mapstructure:"reading_max_age"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VITALWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vitalwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.timeout", "3s")
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("ingest.broker", "tcp://localhost:1883")
	v.SetDefault("ingest.client_id", "vitalwatcher")
	v.SetDefault("ingest.topic", "incubadora/+/lecturas")
	v.SetDefault("ingest.qos", 1)
	v.SetDefault("ingest.connect_timeout", "10s")

	v.SetDefault("engine.alta_margin", 0.25)
	v.SetDefault("engine.quality_floor", 0.5)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.submit_retries", 3)
	v.SetDefault("alerting.submit_backoff", "200ms")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("retention.sweep_interval", "1h")
	v.SetDefault("retention.reading_max_age", "720h")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Engine.AltaMargin < 0 || c.Engine.AltaMargin > 1 {
		return fmt.Errorf("engine.alta_margin must be within [0,1]")
	}
	if c.Engine.QualityFloor < 0 || c.Engine.QualityFloor > 1 {
		return fmt.Errorf("engine.quality_floor must be within [0,1]")
	}
	if c.Ingest.QoS < 0 || c.Ingest.QoS > 2 {
		return fmt.Errorf("ingest.qos must be 0, 1, or 2")
	}
	if c.Alerting.SubmitRetries < 0 {
		return fmt.Errorf("alerting.submit_retries cannot be negative")
	}
	if c.Retention.SweepInterval <= 0 {
		return fmt.Errorf("retention.sweep_interval must be greater than zero")
	}
	if c.Retention.ReadingMaxAge <= 0 {
		return fmt.Errorf("retention.reading_max_age must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
