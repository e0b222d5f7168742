// Package config loads the harness configuration file. Files may be JSON or
// YAML (chosen by extension), may reference environment variables as ${VAR},
// and are merged over built-in defaults so a minimal file or no file at all
// still yields a runnable configuration. A .env file in the working
// directory, when present, is loaded into the environment first.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/apiharness/api-contract-tests/retry"
)

// Config is the root of the harness configuration.
type Config struct {
	Environments map[string]Environment `koanf:"environments"`
	TestSettings TestSettings           `koanf:"test_settings"`
	Reporting    ReportingConfig        `koanf:"reporting"`
	Logging      LoggingConfig          `koanf:"logging"`
	Mock         MockConfig             `koanf:"mock"`
}

// Environment describes one target deployment of the API under test.
type Environment struct {
	BaseURL string            `koanf:"base_url"`
	Auth    AuthConfig        `koanf:"auth"`
	Timeout time.Duration     `koanf:"timeout"`
	Headers map[string]string `koanf:"headers"`
}

// AuthConfig selects how the client authenticates: "none", "bearer" (Token),
// or "basic" (Username/Password).
type AuthConfig struct {
	Type     string `koanf:"type"`
	Token    string `koanf:"token"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type TestSettings struct {
	Retry           RetrySettings       `koanf:"retry"`
	MaxResponseTime time.Duration       `koanf:"max_response_time"`
	Performance     PerformanceSettings `koanf:"performance"`
}

// RetrySettings configures the retry policy the suites use for transient
// request failures.
type RetrySettings struct {
	MaxRetries        int           `koanf:"max_retries"`
	InitialDelay      time.Duration `koanf:"initial_delay"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
}

// Policy converts the settings to a retry policy restricted to the given
// failure kinds.
func (r RetrySettings) Policy(kinds ...retry.Kind) retry.Policy {
	return retry.Policy{
		MaxRetries:        r.MaxRetries,
		InitialDelay:      r.InitialDelay,
		BackoffMultiplier: r.BackoffMultiplier,
		RetryOn:           kinds,
	}
}

type PerformanceSettings struct {
	Users      int               `koanf:"users"`
	Duration   time.Duration     `koanf:"duration"`
	Thresholds ThresholdSettings `koanf:"thresholds"`
}

type ThresholdSettings struct {
	MaxP95         time.Duration `koanf:"max_p95"`
	MaxFailureRate float64       `koanf:"max_failure_rate"`
	MinThroughput  float64       `koanf:"min_throughput"`
}

type ReportingConfig struct {
	Allure AllureConfig `koanf:"allure"`
}

type AllureConfig struct {
	Enabled   bool   `koanf:"enabled"`
	OutputDir string `koanf:"output_dir"`
}

type LoggingConfig struct {
	Level      string `koanf:"level"`
	TimeFormat string `koanf:"time_format"`
}

// SlogLevel maps the configured level name onto a slog level, defaulting to
// info for anything unrecognized.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MockConfig controls the embedded mock API service.
type MockConfig struct {
	Port        int             `koanf:"port"`
	StaticToken string          `koanf:"static_token"`
	Seed        int64           `koanf:"seed"`
	RateLimit   RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	Limit  int           `koanf:"limit"`
	Window time.Duration `koanf:"window"`
}

// Default returns the built-in configuration used when no file is given.
// The dev environment has no base URL; the runner takes that as its cue to
// start the embedded mock service and test against it.
func Default() *Config {
	return &Config{
		Environments: map[string]Environment{
			"dev": {
				Timeout: 10 * time.Second,
			},
		},
		TestSettings: TestSettings{
			Retry: RetrySettings{
				MaxRetries:        3,
				InitialDelay:      500 * time.Millisecond,
				BackoffMultiplier: 2,
			},
			MaxResponseTime: 2 * time.Second,
			Performance: PerformanceSettings{
				Users:    5,
				Duration: 10 * time.Second,
				Thresholds: ThresholdSettings{
					MaxP95:         800 * time.Millisecond,
					MaxFailureRate: 0.01,
					MinThroughput:  10,
				},
			},
		},
		Reporting: ReportingConfig{
			Allure: AllureConfig{OutputDir: "allure-results"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			TimeFormat: "15:04:05.000",
		},
		Mock: MockConfig{
			Port: 8666,
			Seed: 1,
			RateLimit: RateLimitConfig{
				Limit:  600,
				Window: time.Minute,
			},
		},
	}
}

// Load reads the configuration file at path and merges it over the defaults.
// An empty path returns the defaults unchanged. A .env file is loaded first
// when present, and ${VAR} references in the file are substituted from the
// environment before parsing.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	data = SubstituteEnv(data)

	parser, err := parserForPath(path)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("applying config file %s: %w", path, err)
	}
	return cfg, nil
}

func parserForPath(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return kjson.Parser(), nil
	case ".yaml", ".yml":
		return kyaml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (want .json, .yaml, or .yml)", filepath.Ext(path))
	}
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// SubstituteEnv expands ${VAR} references from the process environment.
// References to unset variables are left literal, with a warning, so the
// mistake surfaces near its cause instead of as an empty value downstream.
func SubstituteEnv(data []byte) []byte {
	return envRefPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(envRefPattern.FindSubmatch(match)[1])
		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		slog.Warn("config references unset environment variable", "name", name)
		return match
	})
}

// Environment returns the named environment from the configuration.
func (c *Config) Environment(name string) (Environment, error) {
	env, ok := c.Environments[name]
	if !ok {
		known := make([]string, 0, len(c.Environments))
		for k := range c.Environments {
			known = append(known, k)
		}
		sort.Strings(known)
		return Environment{}, fmt.Errorf("environment %q not defined (have: %s)", name, strings.Join(known, ", "))
	}
	return env, nil
}

// EnvironmentName resolves the active environment name: an explicit override
// wins, then $ENVIRONMENT, then "dev".
func EnvironmentName(override string) string {
	if override != "" {
		return override
	}
	if name := os.Getenv("ENVIRONMENT"); name != "" {
		return name
	}
	return "dev"
}
