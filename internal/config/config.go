// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the server configuration from defaults, the
// environment and explicit overrides.
package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment variable read by [Load].
const EnvPrefix = "KAGENT_A2A_"

// MinPayloadBytes is the smallest accepted request body limit. A limit below
// it cannot carry a JSON-RPC envelope with a single short message.
const MinPayloadBytes = 1 << 10

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	App      AppConfig      `koanf:"app"`
	Store    StoreConfig    `koanf:"store"`
	Redis    RedisConfig    `koanf:"redis"`
	Queue    QueueConfig    `koanf:"queue"`
	Executor ExecutorConfig `koanf:"executor"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr            string        `koanf:"addr"              validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"  validate:"gte=0"`
	MaxPayloadBytes int64         `koanf:"max_payload_bytes" validate:"gt=0"`
}

// AppConfig describes the served agent.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Description string `koanf:"description"`
	URL         string `koanf:"url"`
	Version     string `koanf:"version"     validate:"required"`
}

// StoreConfig selects the task store.
type StoreConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=memory sqlite postgres redis"`
	DSN    string `koanf:"dsn"`
	Table  string `koanf:"table"`
}

// RedisConfig configures the Redis task store.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"     validate:"gte=0"`
	Prefix   string        `koanf:"prefix"`
	TTL      time.Duration `koanf:"ttl"    validate:"gte=0"`
}

// QueueConfig configures per-task event queues.
type QueueConfig struct {
	Size int `koanf:"size" validate:"gt=0"`
}

// ExecutorConfig configures agent execution.
type ExecutorConfig struct {
	Streaming     bool `koanf:"streaming"`
	ResumeOnStart bool `koanf:"resume_on_start"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8083",
			ShutdownTimeout: 10 * time.Second,
			MaxPayloadBytes: 10 << 20,
		},
		App: AppConfig{
			Name:        "kagent-agent",
			Description: "kagent A2A agent",
			URL:         "http://localhost:8083/",
			Version:     "0.1.0",
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Table:  "tasks",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "kagent:a2a",
		},
		Queue: QueueConfig{
			Size: 1024,
		},
		Executor: ExecutorConfig{
			Streaming:     true,
			ResumeOnStart: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from the defaults, the environment and
// overrides, in increasing order of precedence. Override keys use the koanf
// dotted path, for example "server.addr".
func Load(overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return transformEnvKey(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for _, key := range sortedKeys(overrides) {
		if err := k.Set(key, overrides[key]); err != nil {
			return nil, fmt.Errorf("failed to set key %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks field constraints and cross-field consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	var errs []error
	if c.Server.MaxPayloadBytes < MinPayloadBytes {
		errs = append(errs, fmt.Errorf("server.max_payload_bytes %d is below the minimum of %d bytes", c.Server.MaxPayloadBytes, MinPayloadBytes))
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the %s driver", c.Store.Driver))
		}
		if c.Store.Table == "" {
			errs = append(errs, errors.New("store.table is required for database drivers"))
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis driver"))
		}
	}

	return errors.Join(errs...)
}

// transformEnvKey converts environment variable names to koanf paths.
// For example: SERVER_MAX_PAYLOAD_BYTES -> server.max_payload_bytes
func transformEnvKey(s string) string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '_'
	})
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return parts[0] + "." + strings.Join(parts[1:], "_")
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
