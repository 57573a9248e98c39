package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Fallback policies applied when the upstream webhook fails or answers without usable counts.
const (
	FallbackNone       = "none"
	FallbackSynthesize = "synthesize"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port         int           `mapstructure:"port"`
		ReadTimeout  time.Duration `mapstructure:"readTimeout"`
		WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	} `mapstructure:"server"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	NATS     struct {
		Enabled bool               `mapstructure:"enabled"`
		URL     string             `mapstructure:"url"`
		Ingest  ConsumerNatsConfig `mapstructure:"ingest"`
		Events  EventsNatsConfig   `mapstructure:"events"`
	} `mapstructure:"nats"`
	WorkerPools struct {
		Notifier WorkerPoolConfig `mapstructure:"notifier"`
	} `mapstructure:"workerPools"`
}

// UpstreamConfig holds the external automation webhook settings.
type UpstreamConfig struct {
	WebhookURL     string        `mapstructure:"webhookURL"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Fallback       string        `mapstructure:"fallback"` // none | synthesize
	DefaultChannel string        `mapstructure:"defaultChannel"`
}

// SynthesizeOnFailure reports whether the upstream fallback policy is enabled.
func (u UpstreamConfig) SynthesizeOnFailure() bool {
	return strings.EqualFold(u.Fallback, FallbackSynthesize)
}

// WorkerPoolConfig holds configuration for an ants worker pool
type WorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// ConsumerNatsConfig holds configuration specific to a NATS consumer
type ConsumerNatsConfig struct {
	MaxAge        int64         `mapstructure:"maxAge"` // max age of messages in day
	Stream        string        `mapstructure:"stream"`
	Consumer      string        `mapstructure:"consumer"` // durable name
	QueueGroup    string        `mapstructure:"group"`
	SubjectPrefix string        `mapstructure:"subjectPrefix"`
	MaxDeliver    int           `mapstructure:"maxDeliver"`   // Max delivery attempts before the message is terminated
	NakBaseDelay  time.Duration `mapstructure:"nakBaseDelay"` // Base delay for exponential backoff NAK
	NakMaxDelay   time.Duration `mapstructure:"nakMaxDelay"`  // Maximum delay for exponential backoff NAK
}

// EventsNatsConfig holds the stream that receives "report ingested" events.
type EventsNatsConfig struct {
	Stream        string `mapstructure:"stream"`
	SubjectPrefix string `mapstructure:"subjectPrefix"`
	MaxAge        int64  `mapstructure:"maxAge"` // days
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("database.postgresAutoMigrate", true)
	v.SetDefault("metrics.enabled", true)

	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("upstream.fallback", FallbackNone)
	v.SetDefault("upstream.defaultChannel", "linkedin")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.ingest.stream", "METRICS_INGEST")
	v.SetDefault("nats.ingest.consumer", "metrics-ingest")
	v.SetDefault("nats.ingest.group", "metrics-ingest-group")
	v.SetDefault("nats.ingest.subjectPrefix", "v1.metrics.ingest")
	v.SetDefault("nats.ingest.maxAge", 7)
	v.SetDefault("nats.ingest.maxDeliver", 5)
	v.SetDefault("nats.ingest.nakBaseDelay", time.Second)
	v.SetDefault("nats.ingest.nakMaxDelay", 30*time.Second)
	v.SetDefault("nats.events.stream", "METRICS_EVENTS")
	v.SetDefault("nats.events.subjectPrefix", "v1.metrics.ingested")
	v.SetDefault("nats.events.maxAge", 7)

	v.SetDefault("workerPools.notifier.poolSize", 4)
	v.SetDefault("workerPools.notifier.expiryTime", time.Minute)

	v.SetConfigName("default")
	v.SetConfigType("yaml")

	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.outreach-metrics-service")
	v.AddConfigPath("/etc/outreach-metrics-service")

	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}
	if webhook := os.Getenv("UPSTREAM_WEBHOOK_URL"); webhook != "" {
		v.Set("upstream.webhookURL", webhook)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Upstream.Fallback) {
	case FallbackNone, FallbackSynthesize:
	default:
		return fmt.Errorf("invalid upstream.fallback %q: must be %q or %q", c.Upstream.Fallback, FallbackNone, FallbackSynthesize)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("invalid upstream.timeout %s: must be positive", c.Upstream.Timeout)
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats.enabled is true")
	}
	return nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(parts, tag)
		key := strings.Join(path, ".")

		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
