// Package config loads service configuration from the environment.
// Every value has a default; invalid values fall back rather than fail.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	Pipeline      PipelineConfig
	STT           STTConfig
	Database      DatabaseConfig
	Kafka         KafkaConfig
	Forum         ForumConfig
	Identity      IdentityConfig
	Observability ObservabilityConfig
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Principal string
	APIAddr   string
}

// PipelineConfig bounds the transcription pipeline.
type PipelineConfig struct {
	MaxSegmentMs int
	Parallelism  int
	CallTimeout  time.Duration
	LanguageTag  string
}

// STTConfig selects the recognition backend.
type STTConfig struct {
	Provider string // "mock" or "google"
}

// DatabaseConfig holds the Postgres connection string.
type DatabaseConfig struct {
	URL string
}

// KafkaConfig holds the report notifier settings.
type KafkaConfig struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	Principal string
}

// ForumConfig bounds the duplicate guard.
type ForumConfig struct {
	DuplicateWindow time.Duration
}

// IdentityConfig holds token signing and the optional seed officer.
type IdentityConfig struct {
	JWTSecret    string
	Issuer       string
	SeedBadgeID  string
	SeedPassword string
	SeedName     string
}

// ObservabilityConfig holds logging and the ops HTTP surface.
type ObservabilityConfig struct {
	LogLevel string
	HTTPAddr string
}

// Load reads configuration from the environment.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-community-intake")

	return &Config{
		Service: ServiceConfig{
			Principal: principal,
			APIAddr:   envOrDefault("API_ADDR", ":8081"),
		},
		Pipeline: PipelineConfig{
			MaxSegmentMs: envOrDefaultInt("PIPELINE_MAX_SEGMENT_MS", 30000),
			Parallelism:  envOrDefaultInt("PIPELINE_PARALLELISM", 4),
			CallTimeout:  envOrDefaultDuration("PIPELINE_CALL_TIMEOUT", 30*time.Second),
			LanguageTag:  envOrDefault("PIPELINE_LANGUAGE_TAG", "vi-VN"),
		},
		STT: STTConfig{
			Provider: envOrDefault("STT_PROVIDER", "mock"),
		},
		Database: DatabaseConfig{
			URL: envOrDefault("DATABASE_URL", "postgres://localhost:5432/community_intake?sslmode=disable"),
		},
		Kafka: KafkaConfig{
			Enabled:   envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:   splitList(envOrDefault("KAFKA_BROKERS", "")),
			Topic:     envOrDefault("KAFKA_TOPIC", "community.reports.created"),
			Principal: envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Forum: ForumConfig{
			DuplicateWindow: envOrDefaultDuration("FORUM_DUPLICATE_WINDOW", 10*time.Minute),
		},
		Identity: IdentityConfig{
			JWTSecret:    envOrDefault("JWT_SECRET", ""),
			Issuer:       envOrDefault("JWT_ISSUER", principal),
			SeedBadgeID:  envOrDefault("SEED_OFFICER_BADGE", ""),
			SeedPassword: envOrDefault("SEED_OFFICER_PASSWORD", ""),
			SeedName:     envOrDefault("SEED_OFFICER_NAME", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel: envOrDefault("LOG_LEVEL", "info"),
			HTTPAddr: envOrDefault("HTTP_ADDR", ":8080"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
