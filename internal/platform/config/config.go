// Package config loads runtime configuration from the environment with an
// optional .env file for local development. Precedence, highest first:
// explicit map, process environment, .env file, built-in defaults.
package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile            = ".env"
	defaultPort               = "8080"
	defaultReadTimeout        = 15 * time.Second
	defaultWriteTimeout       = 30 * time.Second
	defaultIdleTimeout        = 120 * time.Second
	defaultEnvironment        = "local"
	defaultPricingTimezone    = "Europe/Warsaw"
	defaultRateLimitPerMinute = 120
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Environment string
	Pricing     PricingConfig
	RateLimits  RateLimitConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PricingConfig stores tariff evaluation settings.
type PricingConfig struct {
	Timezone string
}

// RateLimitConfig controls request throttling. PerMinute set to zero
// disables throttling entirely.
type RateLimitConfig struct {
	PerMinute int
}

// ValidationError reports configuration fields that are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the offending field list.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile points the loader at a different .env file. An empty path
// disables file loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit key/value pairs that win over every other
// source, mainly for tests.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment, leaving only injected
// maps and the .env file.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

func applyOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// EnvironmentValues returns the merged key/value environment using the same
// precedence as Load. Callers use it for keys outside the typed
// configuration, such as build metadata.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := applyOptions(opts)

	fileValues, err := parseEnvFile(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(fileValues))
	maps.Copy(values, fileValues)

	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || key == "" {
				continue
			}
			values[key] = value
		}
	}

	maps.Copy(values, options.envMap)
	return values, nil
}

// Load assembles the typed configuration from defaults and the environment.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := applyOptions(opts)

	fileValues, err := parseEnvFile(options.envFile)
	if err != nil {
		return Config{}, err
	}

	env := envSource{
		overrides: options.envMap,
		dotenv:    fileValues,
		system:    options.useSystemEnv,
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         env.str("API_SERVER_PORT", defaultPort),
			ReadTimeout:  env.duration("API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: env.duration("API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  env.duration("API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Environment: strings.ToLower(env.str("API_ENVIRONMENT", defaultEnvironment)),
		Pricing: PricingConfig{
			Timezone: env.str("API_PRICING_TIMEZONE", defaultPricingTimezone),
		},
		RateLimits: RateLimitConfig{
			PerMinute: env.integer("API_RATELIMIT_PER_MINUTE", defaultRateLimitPerMinute),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		invalid = append(invalid, "Server.Port")
	}
	if strings.TrimSpace(cfg.Pricing.Timezone) == "" {
		invalid = append(invalid, "Pricing.Timezone")
	}
	if cfg.RateLimits.PerMinute < 0 {
		invalid = append(invalid, "RateLimits.PerMinute")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

// envSource resolves a key against the three backing sources in precedence
// order.
type envSource struct {
	overrides map[string]string
	dotenv    map[string]string
	system    bool
}

func (s envSource) value(key string) (string, bool) {
	if v, ok := s.overrides[key]; ok {
		return v, true
	}
	if s.system {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
	}
	v, ok := s.dotenv[key]
	return v, ok
}

func (s envSource) str(key, fallback string) string {
	if v, ok := s.value(key); ok && v != "" {
		return v
	}
	return fallback
}

// duration and integer fall back on malformed values rather than failing:
// a bad optional knob must not take the service down.
func (s envSource) duration(key string, fallback time.Duration) time.Duration {
	v, ok := s.value(key)
	if !ok || v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s envSource) integer(key string, fallback int) int {
	v, ok := s.value(key)
	if !ok || v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// parseEnvFile reads KEY=VALUE lines. Blank lines and # comments are
// skipped, an export prefix is tolerated, and single or double quotes
// around values are stripped. A missing file is not an error.
func parseEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	values := make(map[string]string)
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = unquote(strings.TrimSpace(value))
	}
	return values, nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if first == last && (first == '"' || first == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
