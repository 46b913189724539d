// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultDatabaseName is used when neither DATABASE_NAME nor the URI path names a database.
const defaultDatabaseName = "crm"

// Config holds application configuration loaded from the environment.
type Config struct {
	// Port is the TCP port the HTTP server listens on (e.g. 8000).
	Port int `mapstructure:"PORT"`
	// DatabaseURL is the MongoDB connection string. Empty is allowed: the server starts but data endpoints return 503.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DatabaseName overrides the database named in DatabaseURL's path.
	DatabaseName string `mapstructure:"DATABASE_NAME"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// ShutdownTimeout bounds graceful HTTP shutdown (e.g. "10s").
	ShutdownTimeout string `mapstructure:"SHUTDOWN_TIMEOUT"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint. Empty disables export (no-op providers).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel resource service.name.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. When set, client change events are published.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// ClientEventsTopic is the Kafka topic for client change events.
	ClientEventsTopic string `mapstructure:"CLIENT_EVENTS_TOPIC"`

	// Worker-only: Loki URL the event worker pushes to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("PORT", 8000)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_NAME", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "crm-backend")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("CLIENT_EVENTS_TOPIC", "crm-client-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "crm-client-events-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, errors.New("config: PORT must be between 1 and 65535")
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)

	return &cfg, nil
}

// HTTPAddr returns the listen address for the HTTP server (all interfaces).
func (c *Config) HTTPAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// ShutdownTimeoutDuration parses ShutdownTimeout. Returns 10s if unset or invalid.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// ResolveDatabaseName returns DatabaseName if set, else the database in the DatabaseURL path, else "crm".
// Falling back to "crm" while DatabaseURL is set is logged.
func (c *Config) ResolveDatabaseName() string {
	if name := strings.TrimSpace(c.DatabaseName); name != "" {
		return name
	}
	if c.DatabaseURL == "" {
		return defaultDatabaseName
	}
	name, err := databaseFromURI(c.DatabaseURL)
	switch {
	case err != nil:
		log.Printf("config: DATABASE_URL: %v; using database %q", err, defaultDatabaseName)
	case name == "":
		log.Printf("config: DATABASE_URL names no database; using database %q", defaultDatabaseName)
	default:
		return name
	}
	return defaultDatabaseName
}

// databaseFromURI extracts the default database from a mongodb:// or mongodb+srv:// URI. It
// tolerates seed lists (h1:27017,h2:27017) and unescaped characters in the password, which
// net/url rejects.
func databaseFromURI(uri string) (string, error) {
	_, rest, ok := strings.Cut(strings.TrimSpace(uri), "://")
	if !ok {
		return "", errors.New("missing scheme")
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	_, path, ok := strings.Cut(rest, "/")
	if !ok {
		return "", nil
	}
	path, _, _ = strings.Cut(path, "?")
	name, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("database name %q: %w", path, err)
	}
	return name, nil
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event publishing is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
