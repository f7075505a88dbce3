// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianTasks/pkg/logging"
	"github.com/AleutianAI/AleutianTasks/services/agent"
	"github.com/AleutianAI/AleutianTasks/services/agent/confirm"
	"github.com/AleutianAI/AleutianTasks/services/llm"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/middleware"
	"gopkg.in/yaml.v3"
)

// Trace exporters.
const (
	TraceExporterNone   = "none"
	TraceExporterOTLP   = "otlp"
	TraceExporterStdout = "stdout"
)

// ConfigEnvVar names the environment variable holding the config file path.
const ConfigEnvVar = "ALEUTIAN_TASKS_CONFIG"

// Config holds configuration for the task agent service.
//
// # Description
//
// Zero-valued fields are replaced with defaults by New. Use LoadConfig to
// layer a YAML file and the environment over DefaultConfig.
type Config struct {
	// Port is the HTTP server port. Default: 12300
	Port int `yaml:"port"`

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "release"
	GinMode string `yaml:"gin_mode"`

	// DataDir holds the SQLite database and, if enabled, the Badger
	// session store. Default: "./data"
	DataDir string `yaml:"data_dir"`

	// SQLitePath is the task and conversation database.
	// Default: "<data_dir>/tasks.db"
	SQLitePath string `yaml:"sqlite_path"`

	// BadgerPath enables the persistent confirmation store.
	// If empty, pending confirmations live in process memory.
	BadgerPath string `yaml:"badger_path"`

	// ConfirmationTTL bounds how long a pending delete waits for an answer.
	// Default: 10m
	ConfirmationTTL time.Duration `yaml:"confirmation_ttl"`

	// LLM selects the model backend and its generation parameters.
	LLM LLMConfig `yaml:"llm"`

	// OTelEndpoint is the OpenTelemetry collector endpoint used by the
	// otlp exporter.
	OTelEndpoint string `yaml:"otel_endpoint"`

	// TraceExporter is "otlp", "stdout" (pretty JSON on stderr) or "none".
	// Default: "otlp" when OTelEndpoint is set, otherwise "none"
	TraceExporter string `yaml:"trace_exporter"`

	// EnableMetrics exposes GET /metrics.
	// Default: true
	EnableMetrics bool `yaml:"enable_metrics"`

	// Auth configures bearer-token authentication.
	Auth AuthConfig `yaml:"auth"`

	// RateLimit sizes the per-user chat limiter.
	// Default: 30 per minute, burst 10
	RateLimit middleware.RateLimitConfig `yaml:"rate_limit"`

	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig is the backend selection plus generation parameters.
type LLMConfig struct {
	llm.Config `yaml:",inline"`

	// Temperature is the sampling temperature. Nil means the default
	// of 0.7; an explicit 0 is kept.
	Temperature *float32 `yaml:"temperature"`

	// MaxTokens bounds each completion. Default: 4096
	MaxTokens int `yaml:"max_tokens"`
}

// AuthConfig maps bearer tokens to user ids.
type AuthConfig struct {
	// Tokens maps token to user id. If empty, every request runs as
	// extensions.LocalUserID.
	Tokens map[string]string `yaml:"tokens"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: json
	Format string `yaml:"format"`

	// Dir enables a daily log file. Empty disables it.
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Port:            12300,
		GinMode:         "release",
		DataDir:         "./data",
		ConfirmationTTL: confirm.DefaultTTL,
		LLM: LLMConfig{
			Config: llm.Config{
				Backend: "openai",
				Timeout: 30 * time.Second,
			},
			Temperature: agent.Float32(0.7),
			MaxTokens:   4096,
		},
		EnableMetrics: true,
		RateLimit: middleware.RateLimitConfig{
			PerMinute: 30,
			Burst:     10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig builds the service configuration.
//
// # Description
//
// Sources, lowest priority first: DefaultConfig, the YAML file at path (or
// at $ALEUTIAN_TASKS_CONFIG when path is empty), then environment
// variables. The result has defaults applied and is validated.
//
// # Inputs
//
//   - path: YAML file. Empty means use the environment variable, and no
//     file at all when that is unset too.
//
// # Outputs
//
//   - Config: Ready to pass to New.
//   - error: Non-nil if the file cannot be read or parsed, or the result
//     is invalid.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(ConfigEnvVar)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg = applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides cfg from the environment. Unset or unparseable
// variables leave the current value.
func applyEnv(cfg *Config) {
	cfg.Port = getEnvInt("ALEUTIAN_TASKS_PORT", cfg.Port)
	cfg.GinMode = getEnvString("GIN_MODE", cfg.GinMode)
	cfg.DataDir = getEnvString("ALEUTIAN_TASKS_DATA_DIR", cfg.DataDir)
	cfg.SQLitePath = getEnvString("ALEUTIAN_TASKS_SQLITE_PATH", cfg.SQLitePath)
	cfg.BadgerPath = getEnvString("ALEUTIAN_TASKS_BADGER_PATH", cfg.BadgerPath)
	cfg.ConfirmationTTL = getEnvDuration("ALEUTIAN_TASKS_CONFIRMATION_TTL", cfg.ConfirmationTTL)

	cfg.LLM.Backend = getEnvString("LLM_BACKEND_TYPE", cfg.LLM.Backend)
	cfg.LLM.Model = getEnvString("ALEUTIAN_TASKS_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnvString("ALEUTIAN_TASKS_LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Timeout = getEnvDuration("ALEUTIAN_TASKS_LLM_TIMEOUT", cfg.LLM.Timeout)
	if v, ok := lookupEnvFloat("ALEUTIAN_TASKS_LLM_TEMPERATURE"); ok {
		cfg.LLM.Temperature = agent.Float32(float32(v))
	}
	cfg.LLM.MaxTokens = getEnvInt("ALEUTIAN_TASKS_LLM_MAX_TOKENS", cfg.LLM.MaxTokens)

	cfg.OTelEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTelEndpoint)
	cfg.TraceExporter = getEnvString("ALEUTIAN_TASKS_TRACE_EXPORTER", cfg.TraceExporter)
	cfg.EnableMetrics = getEnvBool("ALEUTIAN_TASKS_ENABLE_METRICS", cfg.EnableMetrics)

	if raw := os.Getenv("ALEUTIAN_TASKS_AUTH_TOKENS"); raw != "" {
		cfg.Auth.Tokens = parseTokenList(raw)
	}
	cfg.RateLimit.PerMinute = getEnvInt("ALEUTIAN_TASKS_RATE_LIMIT_PER_MINUTE", cfg.RateLimit.PerMinute)
	cfg.RateLimit.Burst = getEnvInt("ALEUTIAN_TASKS_RATE_LIMIT_BURST", cfg.RateLimit.Burst)

	cfg.Logging.Level = getEnvString("ALEUTIAN_TASKS_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvString("ALEUTIAN_TASKS_LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Dir = getEnvString("ALEUTIAN_TASKS_LOG_DIR", cfg.Logging.Dir)
}

// parseTokenList reads "token=user,token2=user2". Malformed pairs are
// skipped.
func parseTokenList(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		token, user, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || token == "" || user == "" {
			continue
		}
		out[token] = user
	}
	return out
}

// applyConfigDefaults fills zero-valued fields. Booleans are left alone.
func applyConfigDefaults(cfg Config) Config {
	d := DefaultConfig()
	if cfg.Port == 0 {
		cfg.Port = d.Port
	}
	if cfg.GinMode == "" {
		cfg.GinMode = d.GinMode
	}
	if cfg.DataDir == "" {
		cfg.DataDir = d.DataDir
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "tasks.db")
	}
	if cfg.ConfirmationTTL <= 0 {
		cfg.ConfirmationTTL = d.ConfirmationTTL
	}
	if cfg.TraceExporter == "" {
		cfg.TraceExporter = TraceExporterNone
		if cfg.OTelEndpoint != "" {
			cfg.TraceExporter = TraceExporterOTLP
		}
	}
	if cfg.LLM.Backend == "" {
		cfg.LLM.Backend = d.LLM.Backend
	}
	if cfg.LLM.Temperature == nil {
		cfg.LLM.Temperature = d.LLM.Temperature
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = d.LLM.MaxTokens
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = d.RateLimit.Burst
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
	return cfg
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("gin_mode %q must be debug, release or test", c.GinMode))
	}
	switch strings.ToLower(c.LLM.Backend) {
	case "openai", "anthropic", "claude", "ollama":
	default:
		errs = append(errs, fmt.Errorf("llm.backend %q is not supported", c.LLM.Backend))
	}
	switch c.TraceExporter {
	case TraceExporterNone, TraceExporterStdout:
	case TraceExporterOTLP:
		if c.OTelEndpoint == "" {
			errs = append(errs, errors.New("trace_exporter otlp needs otel_endpoint"))
		}
	default:
		errs = append(errs, fmt.Errorf("trace_exporter %q must be otlp, stdout or none", c.TraceExporter))
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f must be between 0 and 2", *t))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, errors.New("llm.timeout must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if f := c.Logging.Format; f != "json" && f != "text" {
		errs = append(errs, fmt.Errorf("logging.format %q must be json or text", f))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// LoggerConfig converts the logging section for logging.New.
func (c Config) LoggerConfig() (logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		Level:   level,
		LogDir:  c.Logging.Dir,
		Service: "aleutian-tasks",
		JSON:    c.Logging.Format == "json",
	}, nil
}

// =============================================================================
// Environment helpers
// =============================================================================

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func lookupEnvFloat(key string) (float64, bool) {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
