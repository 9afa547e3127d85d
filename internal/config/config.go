package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Registry sources
const (
	RegistryStorage   = "storage"
	RegistryWebsocket = "websocket"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	ConfigDir           string `mapstructure:"CONFIG_DIR"`
	ScanIntervalMinutes int    `mapstructure:"SCAN_INTERVAL_MINUTES"`
	ScanCron            string `mapstructure:"SCAN_CRON"`
	HTTPAddr            string `mapstructure:"HTTP_ADDR"`
	LogLevel            string `mapstructure:"LOG_LEVEL"`

	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	DBURL           string `mapstructure:"DB_URL"`
	MQTTBroker      string `mapstructure:"MQTT_BROKER"`
	MQTTClientID    string `mapstructure:"MQTT_CLIENT_ID"`
	MQTTTopicPrefix string `mapstructure:"MQTT_TOPIC_PREFIX"`

	JWTSecret         string `mapstructure:"JWT_SECRET"`
	AdminUser         string `mapstructure:"ADMIN_USER"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`

	HassURL        string `mapstructure:"HASS_URL"`
	HassToken      string `mapstructure:"HASS_TOKEN"`
	RegistrySource string `mapstructure:"REGISTRY_SOURCE"`

	MDNSName     string `mapstructure:"MDNS_NAME"`
	WatchFiles   bool   `mapstructure:"WATCH_FILES"`
	HistoryLimit int    `mapstructure:"HISTORY_LIMIT"`
}

var keys = []string{
	"CONFIG_DIR", "SCAN_INTERVAL_MINUTES", "SCAN_CRON", "HTTP_ADDR", "LOG_LEVEL",
	"REDIS_ADDR", "DB_URL", "MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_TOPIC_PREFIX",
	"JWT_SECRET", "ADMIN_USER", "ADMIN_PASSWORD_HASH",
	"HASS_URL", "HASS_TOKEN", "REGISTRY_SOURCE",
	"MDNS_NAME", "WATCH_FILES", "HISTORY_LIMIT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CONFIG_DIR", "/config")
	v.SetDefault("SCAN_INTERVAL_MINUTES", 60)
	v.SetDefault("HTTP_ADDR", ":8099")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MQTT_CLIENT_ID", "haca")
	v.SetDefault("MQTT_TOPIC_PREFIX", "haca")
	v.SetDefault("ADMIN_USER", "admin")
	v.SetDefault("REGISTRY_SOURCE", RegistryStorage)
	v.SetDefault("WATCH_FILES", false)
	v.SetDefault("HISTORY_LIMIT", 100)
}

// LoadConfig reads configuration from config.yaml, .env, or env vars.
// Environment variables win over the file.
func LoadConfig(paths ...string) (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail much later
func (c *Config) Validate() error {
	c.RegistrySource = strings.ToLower(c.RegistrySource)
	switch c.RegistrySource {
	case RegistryStorage:
	case RegistryWebsocket:
		if c.HassURL == "" || c.HassToken == "" {
			return fmt.Errorf("%w: websocket registry needs HASS_URL and HASS_TOKEN", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: REGISTRY_SOURCE must be storage or websocket, got %q", ErrInvalidConfig, c.RegistrySource)
	}
	if c.ScanCron == "" && c.ScanIntervalMinutes <= 0 {
		return fmt.Errorf("%w: SCAN_INTERVAL_MINUTES must be positive", ErrInvalidConfig)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("%w: HISTORY_LIMIT must be positive", ErrInvalidConfig)
	}
	return nil
}

// ScanSchedule is the cron spec of the periodic scan
func (c *Config) ScanSchedule() string {
	if c.ScanCron != "" {
		return c.ScanCron
	}
	return fmt.Sprintf("@every %s", time.Duration(c.ScanIntervalMinutes)*time.Minute)
}
