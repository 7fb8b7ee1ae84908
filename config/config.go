package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults used when the corresponding variable is unset.
const (
	DefaultPort             = "8080"
	DefaultEventsAPIURL     = "http://localhost:5000/api"
	DefaultEventsPushURL    = "ws://localhost:5000/ws"
	DefaultRequestTimeout   = 10 * time.Second
	DefaultPushPingInterval = 30 * time.Second
	DefaultSessionKey       = "default"
)

// Config holds all configuration for the client
type Config struct {
	Environment      string
	Port             string
	EventsAPIURL     string
	EventsPushURL    string
	RequestTimeout   time.Duration
	PushPingInterval time.Duration
	DBUrl            string // optional; enables the persisted session
	SessionKey       string
	SessionToken     string // optional bearer JWT used when no session is persisted
	AllowedOrigins   []string
}

// Load loads configuration from environment variables.
// Outside production it first loads a .env file if one exists.
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// A missing .env is fine; the process environment still applies.
	if env != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found or couldn't be loaded: %v", err)
		}
	}

	cfg := &Config{
		Environment:   env,
		Port:          getenv("PORT", DefaultPort),
		EventsAPIURL:  strings.TrimSuffix(getenv("EVENTS_API_URL", DefaultEventsAPIURL), "/"),
		EventsPushURL: getenv("EVENTS_PUSH_URL", DefaultEventsPushURL),
		DBUrl:         os.Getenv("DATABASE_URL"),
		SessionKey:    getenv("SESSION_KEY", DefaultSessionKey),
		SessionToken:  strings.TrimSpace(os.Getenv("SESSION_TOKEN")),
	}

	var err error
	if cfg.RequestTimeout, err = duration("REQUEST_TIMEOUT", DefaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.PushPingInterval, err = duration("PUSH_PING_INTERVAL", DefaultPushPingInterval); err != nil {
		return nil, err
	}
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, s)
	}
	return d, nil
}
