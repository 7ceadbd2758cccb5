package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/carbon"
)

const (
	defaultPort            = 8080
	defaultRefreshInterval = 31 * time.Minute
	defaultRequestTimeout  = 30 * time.Second
	defaultTopicPrefix     = "carbon"
)

// Config holds environment-driven settings for the tracker.
type Config struct {
	BaseURL         string
	Port            int
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	LogLevel        logrus.Level
	DatabaseURL     string
	BearerToken     string
	MQTT            MQTTConfig
	DryRun          bool
}

// MQTTConfig configures the optional MQTT publisher. An empty Broker disables it.
type MQTTConfig struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("carbon_api_base_url", carbon.DefaultBaseURL)
	v.SetDefault("port", defaultPort)
	v.SetDefault("refresh_interval", defaultRefreshInterval.String())
	v.SetDefault("request_timeout", defaultRequestTimeout.String())
	v.SetDefault("log_level", "info")
	v.SetDefault("mqtt_topic_prefix", defaultTopicPrefix)
	v.SetDefault("dry_run", false)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{"database_url", "api_bearer_token", "mqtt_broker", "mqtt_username", "mqtt_password"} {
		_ = v.BindEnv(key)
	}
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:     strings.TrimRight(strings.TrimSpace(v.GetString("carbon_api_base_url")), "/"),
		DatabaseURL: strings.TrimSpace(v.GetString("database_url")),
		BearerToken: strings.TrimSpace(v.GetString("api_bearer_token")),
		MQTT: MQTTConfig{
			Broker:      strings.TrimSpace(v.GetString("mqtt_broker")),
			Username:    v.GetString("mqtt_username"),
			Password:    v.GetString("mqtt_password"),
			TopicPrefix: strings.Trim(strings.TrimSpace(v.GetString("mqtt_topic_prefix")), "/"),
		},
	}

	if cfg.BaseURL == "" {
		return cfg, fmt.Errorf("CARBON_API_BASE_URL must not be empty")
	}

	portStr := strings.TrimSpace(v.GetString("port"))
	port, err := parsePositiveInt(portStr)
	if err != nil {
		return cfg, fmt.Errorf("invalid PORT: %s", portStr)
	}
	cfg.Port = port

	if cfg.RefreshInterval, err = parsePositiveDuration(v.GetString("refresh_interval")); err != nil {
		return cfg, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	if cfg.RequestTimeout, err = parsePositiveDuration(v.GetString("request_timeout")); err != nil {
		return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	if cfg.LogLevel, err = logrus.ParseLevel(v.GetString("log_level")); err != nil {
		return cfg, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	dryRun := strings.TrimSpace(v.GetString("dry_run"))
	cfg.DryRun = dryRun == "1" || strings.EqualFold(dryRun, "true")

	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = defaultTopicPrefix
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ArchiveEnabled reports whether a database is configured.
func (c Config) ArchiveEnabled() bool {
	return c.DatabaseURL != ""
}

// MQTTEnabled reports whether a broker is configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTT.Broker != ""
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("not a positive integer: %q", s)
	}
	return n, nil
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
