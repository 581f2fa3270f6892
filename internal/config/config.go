package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath       = "HEALTHCOST_CONFIG"
	EnvAddr             = "HEALTHCOST_ADDR"
	EnvShutdownTimeout  = "HEALTHCOST_SHUTDOWN_TIMEOUT"
	EnvRateLimitEnabled = "HEALTHCOST_RATE_LIMIT_ENABLED"
	EnvRateLimitRPS     = "HEALTHCOST_RATE_LIMIT_RPS"
	EnvRateLimitBurst   = "HEALTHCOST_RATE_LIMIT_BURST"
	EnvVerboseErrors    = "HEALTHCOST_VERBOSE_ERRORS"
	EnvLenientJSON      = "HEALTHCOST_LENIENT_JSON"
	EnvTelemetryEnabled = "HEALTHCOST_TELEMETRY_ENABLED"
	EnvSampleRatio      = "HEALTHCOST_TRACE_SAMPLE_RATIO"
	EnvMetricInterval   = "HEALTHCOST_METRIC_INTERVAL"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RateLimitConfig configures the per-client token bucket in front of the
// HTTP adapter.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type DispatchConfig struct {
	// VerboseErrors appends the raw request internals to dispatcher error
	// messages, as older agent prompts expect.
	VerboseErrors bool `yaml:"verboseErrors"`
	// LenientJSON repairs malformed hospital_prices JSON before rejecting it.
	LenientJSON bool `yaml:"lenientJSON"`
}

// TelemetryConfig controls OTLP export. Endpoints are taken from the
// standard OTEL_EXPORTER_OTLP_* variables.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
	// ServiceName overrides OTEL_SERVICE_NAME.
	ServiceName    string        `yaml:"serviceName"`
	SampleRatio    float64       `yaml:"sampleRatio"`
	MetricInterval time.Duration `yaml:"metricInterval"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled: false,
			RPS:     30,
			Burst:   60,
		},
		Telemetry: TelemetryConfig{
			Enabled:        true,
			SampleRatio:    1,
			MetricInterval: 30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $HEALTHCOST_CONFIG when path is empty), and finally environment overrides.
// A missing file is only an error when a path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
		explicit = path != ""
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnvOverrides overlays HEALTHCOST_* environment variables onto cfg.
func ApplyEnvOverrides(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvShutdownTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvShutdownTimeout, err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	if v, ok := parseBoolEnv(EnvRateLimitEnabled); ok {
		cfg.RateLimit.Enabled = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRateLimitRPS)); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRateLimitRPS, err)
		}
		cfg.RateLimit.RPS = rps
	}
	if v := strings.TrimSpace(os.Getenv(EnvRateLimitBurst)); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRateLimitBurst, err)
		}
		cfg.RateLimit.Burst = burst
	}
	if v, ok := parseBoolEnv(EnvVerboseErrors); ok {
		cfg.Dispatch.VerboseErrors = v
	}
	if v, ok := parseBoolEnv(EnvLenientJSON); ok {
		cfg.Dispatch.LenientJSON = v
	}
	if v, ok := parseBoolEnv(EnvTelemetryEnabled); ok {
		cfg.Telemetry.Enabled = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSampleRatio)); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSampleRatio, err)
		}
		cfg.Telemetry.SampleRatio = ratio
	}
	if v := strings.TrimSpace(os.Getenv(EnvMetricInterval)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMetricInterval, err)
		}
		cfg.Telemetry.MetricInterval = d
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdownTimeout must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rateLimit: rps and burst must be positive, got rps=%g burst=%d", c.RateLimit.RPS, c.RateLimit.Burst)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sampleRatio must be within [0, 1], got %g", c.Telemetry.SampleRatio)
	}
	if c.Telemetry.MetricInterval < 0 {
		return errors.New("telemetry.metricInterval must not be negative")
	}
	return nil
}

func parseBoolEnv(name string) (bool, bool) {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch v {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
