package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider exposes the application's configuration. Handlers and services
// depend on this interface rather than on the concrete Config.
type Provider interface {
	GetServerAddr() string
	GetSessionSecret() string
	GetAuthBackendURL() string
	GetRedirectPath() string
	GetSocialProviders() []string
	GetScreenIdleTimeout() time.Duration
	GetRateLimit() int
	GetTracingEnabled() bool
	GetTracingZipkinURL() string
	GetPubSubBufferSize() int64
	GetPubSubDebug() bool
}

// Config holds all configuration for the application.
type Config struct {
	ServerAddr        string
	SessionSecret     string
	AuthBackendURL    string
	RedirectPath      string
	SocialProviders   []string
	ScreenIdleTimeout time.Duration
	RateLimit         int
	TracingEnabled    bool
	TracingZipkinURL  string
	PubSubBufferSize  int64
	PubSubDebug       bool
}

// Load reads a .env file if present and builds a Config from the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		ServerAddr:        getEnv("SERVER_ADDR", ":8080"),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		AuthBackendURL:    os.Getenv("AUTH_BACKEND_URL"),
		RedirectPath:      getEnv("AUTH_REDIRECT_PATH", "/users"),
		SocialProviders:   splitList(getEnv("AUTH_SOCIAL_PROVIDERS", "github,google")),
		ScreenIdleTimeout: 30 * time.Minute,
		RateLimit:         10,
		TracingZipkinURL:  getEnv("PUBSUB_TRACING_ZIPKIN_URL", "http://localhost:9411/api/v2/spans"),
		PubSubBufferSize:  64,
	}

	if v := os.Getenv("SCREEN_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SCREEN_IDLE_TIMEOUT %q: %w", v, err)
		}
		cfg.ScreenIdleTimeout = d
	}

	if v := os.Getenv("AUTH_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT %q", v)
		}
		cfg.RateLimit = n
	}

	if v := os.Getenv("PUBSUB_TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PUBSUB_TRACING_ENABLED %q: %w", v, err)
		}
		cfg.TracingEnabled = enabled
	}

	if v := os.Getenv("PUBSUB_BUFFER_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid PUBSUB_BUFFER_SIZE %q", v)
		}
		cfg.PubSubBufferSize = n
	}

	if v := os.Getenv("PUBSUB_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PUBSUB_DEBUG %q: %w", v, err)
		}
		cfg.PubSubDebug = debug
	}

	if len(cfg.SessionSecret) < 16 {
		return nil, fmt.Errorf("SESSION_SECRET must be set to at least 16 characters")
	}
	if !strings.HasPrefix(cfg.RedirectPath, "/") {
		return nil, fmt.Errorf("AUTH_REDIRECT_PATH must be an absolute path, got %q", cfg.RedirectPath)
	}

	return cfg, nil
}

func (c *Config) GetServerAddr() string               { return c.ServerAddr }
func (c *Config) GetSessionSecret() string            { return c.SessionSecret }
func (c *Config) GetAuthBackendURL() string           { return c.AuthBackendURL }
func (c *Config) GetRedirectPath() string             { return c.RedirectPath }
func (c *Config) GetSocialProviders() []string        { return c.SocialProviders }
func (c *Config) GetScreenIdleTimeout() time.Duration { return c.ScreenIdleTimeout }
func (c *Config) GetRateLimit() int                   { return c.RateLimit }
func (c *Config) GetTracingEnabled() bool             { return c.TracingEnabled }
func (c *Config) GetTracingZipkinURL() string         { return c.TracingZipkinURL }
func (c *Config) GetPubSubBufferSize() int64          { return c.PubSubBufferSize }
func (c *Config) GetPubSubDebug() bool                { return c.PubSubDebug }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
