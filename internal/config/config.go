package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Host               string
	HTTPPort           int
	VideoSize          string
	ControlListen      string
	RelayListen        string
	CaptureTimeout     time.Duration
	OfferPolicy        string
	HangUpOnICEFailure bool
	SignalPingInterval time.Duration
	LogLevel           string
}

const (
	defaultHTTPPort           = 8888
	defaultVideoSize          = "2K"
	defaultControlListen      = "127.0.0.1:9000"
	defaultSignalPingInterval = 30 * time.Second
)

// Load reads configuration from a .env file (if present) and environment variables.
// Environment variables take precedence over .env values.
func Load() (*Config, error) {
	// godotenv.Load does not overwrite existing env vars
	_ = godotenv.Load()

	host := os.Getenv("THETA_HOST")
	if host == "" {
		return nil, fmt.Errorf("THETA_HOST environment variable is required")
	}

	cfg := &Config{
		Host:               host,
		HTTPPort:           defaultHTTPPort,
		VideoSize:          envOr("THETA_VIDEO_SIZE", defaultVideoSize),
		ControlListen:      defaultControlListen,
		RelayListen:        os.Getenv("THETA_RELAY_LISTEN"),
		OfferPolicy:        envOr("THETA_OFFER_POLICY", "reject"),
		SignalPingInterval: defaultSignalPingInterval,
		LogLevel:           os.Getenv("LOG_LEVEL"),
	}

	if v, ok := os.LookupEnv("THETA_CONTROL_LISTEN"); ok {
		cfg.ControlListen = v
	}

	if v := os.Getenv("THETA_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port >= 65535 {
			return nil, fmt.Errorf("THETA_HTTP_PORT: invalid port %q", v)
		}
		cfg.HTTPPort = port
	}

	if v := os.Getenv("THETA_CAPTURE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("THETA_CAPTURE_TIMEOUT: invalid duration %q", v)
		}
		cfg.CaptureTimeout = d
	}

	if v := os.Getenv("THETA_SIGNAL_PING_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("THETA_SIGNAL_PING_INTERVAL: invalid duration %q", v)
		}
		cfg.SignalPingInterval = d
	}

	if v := os.Getenv("THETA_HANGUP_ON_ICE_FAILURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("THETA_HANGUP_ON_ICE_FAILURE: invalid bool %q", v)
		}
		cfg.HangUpOnICEFailure = b
	}

	switch cfg.OfferPolicy {
	case "reject", "replace":
	default:
		return nil, fmt.Errorf("THETA_OFFER_POLICY: must be reject or replace, got %q", cfg.OfferPolicy)
	}

	return cfg, nil
}

// CommandURL is the camera's command endpoint.
func (c *Config) CommandURL() string {
	return fmt.Sprintf("http://%s/webrtc/commands/execute", net.JoinHostPort(c.Host, strconv.Itoa(c.HTTPPort)))
}

// SignalingURL is the relay WebSocket, served one port above the HTTP port.
func (c *Config) SignalingURL() string {
	return fmt.Sprintf("ws://%s/", net.JoinHostPort(c.Host, strconv.Itoa(c.HTTPPort+1)))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
