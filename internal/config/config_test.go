package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear relevant env vars
	envVars := []string{
		"SERVICE_PRINCIPAL", "API_ADDR", "LOG_LEVEL", "HTTP_ADDR",
		"PIPELINE_MAX_SEGMENT_MS", "PIPELINE_PARALLELISM",
		"PIPELINE_CALL_TIMEOUT", "PIPELINE_LANGUAGE_TAG",
		"STT_PROVIDER", "DATABASE_URL",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_PRINCIPAL",
		"FORUM_DUPLICATE_WINDOW",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	if cfg.Service.Principal != "svc-community-intake" {
		t.Errorf("expected default principal 'svc-community-intake', got %s", cfg.Service.Principal)
	}
	if cfg.Service.APIAddr != ":8081" {
		t.Errorf("expected default API addr ':8081', got %s", cfg.Service.APIAddr)
	}
	if cfg.Pipeline.MaxSegmentMs != 30000 {
		t.Errorf("expected default max segment 30000ms, got %d", cfg.Pipeline.MaxSegmentMs)
	}
	if cfg.Pipeline.Parallelism != 4 {
		t.Errorf("expected default parallelism 4, got %d", cfg.Pipeline.Parallelism)
	}
	if cfg.Pipeline.CallTimeout != 30*time.Second {
		t.Errorf("expected default call timeout 30s, got %v", cfg.Pipeline.CallTimeout)
	}
	if cfg.Pipeline.LanguageTag != "vi-VN" {
		t.Errorf("expected default language 'vi-VN', got %s", cfg.Pipeline.LanguageTag)
	}
	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.Topic != "community.reports.created" {
		t.Errorf("expected default topic 'community.reports.created', got %s", cfg.Kafka.Topic)
	}
	if cfg.Forum.DuplicateWindow != 10*time.Minute {
		t.Errorf("expected default duplicate window 10m, got %v", cfg.Forum.DuplicateWindow)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.HTTPAddr != ":8080" {
		t.Errorf("expected default HTTP addr ':8080', got %s", cfg.Observability.HTTPAddr)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("PIPELINE_MAX_SEGMENT_MS", "15000")
	os.Setenv("PIPELINE_PARALLELISM", "8")
	os.Setenv("PIPELINE_CALL_TIMEOUT", "45s")
	os.Setenv("PIPELINE_LANGUAGE_TAG", "en-US")
	os.Setenv("STT_PROVIDER", "google")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	os.Setenv("FORUM_DUPLICATE_WINDOW", "30m")
	os.Setenv("LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("SERVICE_PRINCIPAL")
		os.Unsetenv("PIPELINE_MAX_SEGMENT_MS")
		os.Unsetenv("PIPELINE_PARALLELISM")
		os.Unsetenv("PIPELINE_CALL_TIMEOUT")
		os.Unsetenv("PIPELINE_LANGUAGE_TAG")
		os.Unsetenv("STT_PROVIDER")
		os.Unsetenv("KAFKA_ENABLED")
		os.Unsetenv("KAFKA_BROKERS")
		os.Unsetenv("FORUM_DUPLICATE_WINDOW")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Pipeline.MaxSegmentMs != 15000 {
		t.Errorf("expected max segment 15000ms, got %d", cfg.Pipeline.MaxSegmentMs)
	}
	if cfg.Pipeline.Parallelism != 8 {
		t.Errorf("expected parallelism 8, got %d", cfg.Pipeline.Parallelism)
	}
	if cfg.Pipeline.CallTimeout != 45*time.Second {
		t.Errorf("expected call timeout 45s, got %v", cfg.Pipeline.CallTimeout)
	}
	if cfg.Pipeline.LanguageTag != "en-US" {
		t.Errorf("expected language 'en-US', got %s", cfg.Pipeline.LanguageTag)
	}
	if cfg.STT.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.STT.Provider)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker-1:9092" || cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Forum.DuplicateWindow != 30*time.Minute {
		t.Errorf("expected duplicate window 30m, got %v", cfg.Forum.DuplicateWindow)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	os.Setenv("PIPELINE_MAX_SEGMENT_MS", "not-a-number")
	os.Setenv("PIPELINE_PARALLELISM", "many")
	os.Setenv("PIPELINE_CALL_TIMEOUT", "soon")
	os.Setenv("KAFKA_ENABLED", "invalid")
	os.Setenv("FORUM_DUPLICATE_WINDOW", "invalid")

	defer func() {
		os.Unsetenv("PIPELINE_MAX_SEGMENT_MS")
		os.Unsetenv("PIPELINE_PARALLELISM")
		os.Unsetenv("PIPELINE_CALL_TIMEOUT")
		os.Unsetenv("KAFKA_ENABLED")
		os.Unsetenv("FORUM_DUPLICATE_WINDOW")
	}()

	cfg := Load()

	if cfg.Pipeline.MaxSegmentMs != 30000 {
		t.Errorf("expected default max segment on invalid input, got %d", cfg.Pipeline.MaxSegmentMs)
	}
	if cfg.Pipeline.Parallelism != 4 {
		t.Errorf("expected default parallelism on invalid input, got %d", cfg.Pipeline.Parallelism)
	}
	if cfg.Pipeline.CallTimeout != 30*time.Second {
		t.Errorf("expected default call timeout on invalid input, got %v", cfg.Pipeline.CallTimeout)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled on invalid input")
	}
	if cfg.Forum.DuplicateWindow != 10*time.Minute {
		t.Errorf("expected default duplicate window on invalid input, got %v", cfg.Forum.DuplicateWindow)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	os.Unsetenv("KAFKA_PRINCIPAL")

	defer os.Unsetenv("SERVICE_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}
