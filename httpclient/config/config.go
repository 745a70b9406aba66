// Package config loads client settings from YAML and the environment and
// turns them into httpclient options.
//
// Sources are layered, later ones winning:
//  1. built-in defaults
//  2. a YAML file or document
//  3. environment variables prefixed with COURIER_
//
// Environment keys use "__" to separate levels, so COURIER_RETRY__MAX_ATTEMPTS
// sets retry.max_attempts. Lists such as retry.status_codes are comma separated.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("config: invalid settings")

// EnvPrefix is the prefix of environment variables read by Load and Parse.
const EnvPrefix = "COURIER_"

// Transport names accepted in Settings.Transport.
const (
	TransportNetHTTP  = "nethttp"
	TransportFastHTTP = "fasthttp"
)

// Connection profiles for the nethttp transport.
const (
	ProfileDefault        = "default"
	ProfileHighThroughput = "high_throughput"
	ProfileLowLatency     = "low_latency"
)

// Settings describes one client.
//
// Example YAML:
//
//	base_url: https://api.example.com
//	transport: nethttp
//	timeout: 10s
//	headers:
//	  Accept: application/json
//	retry:
//	  enabled: true
//	  max_attempts: 4
//	  interval: 200ms
//	  status_codes: [502, 503, 504]
type Settings struct {
	BaseURL     string `koanf:"base_url" validate:"required,url"`
	Transport   string `koanf:"transport" validate:"oneof=nethttp fasthttp"`
	Profile     string `koanf:"profile" validate:"oneof=default high_throughput low_latency"`
	ServiceName string `koanf:"service_name"`

	// Timeout bounds a single attempt. Zero keeps the profile's timeout.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`

	Debug   bool              `koanf:"debug"`
	Headers map[string]string `koanf:"headers"`

	Retry RetrySettings `koanf:"retry"`
	Chaos ChaosSettings `koanf:"chaos"`
}

// RetrySettings maps onto httpclient.RetryPolicy. Nothing is retried
// unless Enabled is set.
type RetrySettings struct {
	Enabled     bool          `koanf:"enabled"`
	MaxAttempts int           `koanf:"max_attempts" validate:"gte=1"`
	Interval    time.Duration `koanf:"interval" validate:"gte=0"`
	MaxInterval time.Duration `koanf:"max_interval" validate:"gte=0"`
	Exponential bool          `koanf:"exponential"`
	StatusCodes []int         `koanf:"status_codes" validate:"dive,gte=100,lte=599"`
}

// ChaosSettings injects faults in front of the transport. Leave it empty
// outside test environments.
type ChaosSettings struct {
	Latency   time.Duration `koanf:"latency" validate:"gte=0"`
	ErrorRate float64       `koanf:"error_rate" validate:"gte=0,lte=1"`

	// StatusRate is ignored unless StatusCode is set.
	StatusRate float64 `koanf:"status_rate" validate:"gte=0,lte=1"`
	StatusCode int     `koanf:"status_code" validate:"omitempty,gte=400,lte=599"`
}

func (c ChaosSettings) enabled() bool {
	return c.Latency > 0 || c.ErrorRate > 0 || c.StatusRate > 0
}

func defaults() map[string]any {
	return map[string]any{
		"transport":          TransportNetHTTP,
		"profile":            ProfileDefault,
		"debug":              false,
		"retry.enabled":      false,
		"retry.max_attempts": 3,
		"retry.interval":     "1s",
		"retry.exponential":  true,
	}
}

// Load reads settings from the YAML file at path, then the environment.
// An empty path skips the file.
func Load(path string) (*Settings, error) {
	var src koanf.Provider
	if path != "" {
		src = file.Provider(path)
	}
	return load(src)
}

// Parse reads settings from a YAML document, then the environment.
func Parse(data []byte) (*Settings, error) {
	return load(rawbytes.Provider(data))
}

func load(src koanf.Provider) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if src != nil {
		if err := k.Load(src, yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load yaml: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("config: decode settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// transformEnv maps COURIER_RETRY__MAX_ATTEMPTS to retry.max_attempts.
// Header names keep their case with "_" read as "-".
func transformEnv(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	parts := strings.Split(key, "__")

	if len(parts) == 2 && strings.EqualFold(parts[0], "headers") {
		return "headers." + strings.ReplaceAll(parts[1], "_", "-"), value
	}

	key = strings.ToLower(strings.Join(parts, "."))
	if key == "retry.status_codes" {
		codes := strings.Split(value, ",")
		out := make([]any, 0, len(codes))
		for _, c := range codes {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
		return key, out
	}
	return key, value
}
