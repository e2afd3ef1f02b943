// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/benbenbuben/text-to-video-app/internal/auth"
	"github.com/benbenbuben/text-to-video-app/internal/frames"
	"github.com/benbenbuben/text-to-video-app/internal/inference"
)

// Supported inference backends.
const (
	BackendHuggingFace = "huggingface"
	BackendGemini      = "gemini"
)

// Config holds all configuration for the server, CLI, and Lambda.
// The inference credential is optional here: a missing token surfaces as a
// configuration error on the first generation, not at startup.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Host        string `env:"HOST" envDefault:"localhost"`
	Port        int    `env:"PORT" envDefault:"3000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// CORSOrigins are allowed in addition to localhost origins.
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`
	MetricsEnabled bool     `env:"METRICS_ENABLED" envDefault:"false"`

	// Inference backend
	Backend          string `env:"BACKEND" envDefault:"huggingface"`
	HuggingFaceToken string `env:"HUGGINGFACE_API_TOKEN"`
	ModelURL         string `env:"MODEL_URL"`
	WaitForModel     bool   `env:"WAIT_FOR_MODEL" envDefault:"false"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GeminiModel      string `env:"GEMINI_MODEL"`
	InferenceProxy   string `env:"INFERENCE_PROXY"` // host:port of a SOCKS5 proxy
	SSMTokenParam    string `env:"SSM_TOKEN_PARAM" envDefault:"/text-to-video/prod/huggingface-token"`

	// Frames
	FrameCount int           `env:"FRAME_COUNT" envDefault:"3"`
	FrameDelay time.Duration `env:"FRAME_DELAY" envDefault:"2s"`

	// Retry policy
	CallTimeout      time.Duration `env:"CALL_TIMEOUT" envDefault:"25s"`
	LoadingRetries   int           `env:"LOADING_RETRIES" envDefault:"2"`
	LoadingWaitCap   time.Duration `env:"LOADING_WAIT_CAP" envDefault:"20s"`
	QuotaRetries     int           `env:"QUOTA_RETRIES" envDefault:"3"`
	QuotaWait        time.Duration `env:"QUOTA_WAIT" envDefault:"65s"`
	RateLimitRetries int           `env:"RATE_LIMIT_RETRIES" envDefault:"2"`
	RateLimitWait    time.Duration `env:"RATE_LIMIT_WAIT" envDefault:"10s"`
	NetworkRetries   int           `env:"NETWORK_RETRIES" envDefault:"2"`
	NetworkWait      time.Duration `env:"NETWORK_WAIT" envDefault:"5s"`
	TimeoutRetries   int           `env:"TIMEOUT_RETRIES" envDefault:"0"`
	MaxAttempts      int           `env:"MAX_ATTEMPTS" envDefault:"6"`

	// PlatformCeiling is the hosting platform's request time limit. It is
	// only compared against the worst-case latency at startup.
	PlatformCeiling time.Duration `env:"PLATFORM_CEILING" envDefault:"60s"`
}

// Load reads .env files (if present) and parses the environment.
func Load() (*Config, error) {
	LoadEnvFiles()
	return Parse()
}

// Parse parses the current environment without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.HuggingFaceToken = strings.TrimSpace(cfg.HuggingFaceToken)
	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFiles loads .env and ../.env when they exist. Values in the files
// override the process environment.
func LoadEnvFiles() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}

// Validate checks values that would make the service misbehave rather than
// fail cleanly.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendHuggingFace, BackendGemini:
	default:
		return fmt.Errorf("BACKEND must be %q or %q, got %q", BackendHuggingFace, BackendGemini, c.Backend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if err := c.Settings().Validate(); err != nil {
		return fmt.Errorf("invalid generation settings: %w", err)
	}
	return nil
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Addr is the listen address for the local server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Settings builds the frame pipeline settings.
func (c *Config) Settings() frames.Settings {
	return frames.Settings{
		FrameCount: c.FrameCount,
		FrameDelay: c.FrameDelay,
		Policy: frames.Policy{
			CallTimeout:      c.CallTimeout,
			LoadingRetries:   c.LoadingRetries,
			LoadingWaitCap:   c.LoadingWaitCap,
			QuotaRetries:     c.QuotaRetries,
			QuotaWait:        c.QuotaWait,
			RateLimitRetries: c.RateLimitRetries,
			RateLimitWait:    c.RateLimitWait,
			NetworkRetries:   c.NetworkRetries,
			NetworkWait:      c.NetworkWait,
			TimeoutRetries:   c.TimeoutRetries,
			MaxAttempts:      c.MaxAttempts,
		},
	}
}

// NewBackend builds the configured inference backend. It never fails on a
// missing credential; the backend's Ready check reports that per request.
func (c *Config) NewBackend() (frames.Backend, error) {
	httpClient, err := inference.NewHTTPClient(c.InferenceProxy)
	if err != nil {
		return nil, err
	}

	switch c.Backend {
	case BackendGemini:
		return inference.NewGeminiClient(c.GeminiAPIKey, c.GeminiModel, httpClient), nil
	default:
		opts := []inference.HuggingFaceOption{
			inference.WithHTTPClient(httpClient),
			inference.WithWaitForModel(c.WaitForModel),
		}
		if c.ModelURL != "" {
			opts = append(opts, inference.WithModelURL(c.ModelURL))
		}
		// A missing token is reported by Ready on each request.
		token, _ := auth.GetToken(c.HuggingFaceToken)
		return inference.NewHuggingFaceClient(token, opts...), nil
	}
}
