package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL  = "http://localhost:8080"
	defaultPlatform    = "mobile"
	defaultHTTPTimeout = 15 * time.Second
	defaultStaleTime   = 60 * time.Second
	defaultGCTime      = 5 * time.Minute
	defaultCacheRetry  = 2
)

// Client holds the configuration of the terminal payout client.
type Client struct {
	APIBaseURL  string
	Platform    string
	LogLevel    string
	HTTPTimeout time.Duration
	StaleTime   time.Duration
	GCTime      time.Duration
	Retries     int
	DeviceID    string
	// Biometrics reports whether the device offers a biometric prompt.
	Biometrics bool
}

// LoadClient reads the client configuration from the environment.
func LoadClient() (Client, error) {
	cfg := Client{
		APIBaseURL: strings.TrimRight(getEnv("API_BASE_URL", defaultAPIBaseURL), "/"),
		Platform:   strings.ToLower(getEnv("CLIENT_PLATFORM", defaultPlatform)),
		LogLevel:   strings.ToLower(getEnv("LOG_LEVEL", "warn")),
		Retries:    defaultCacheRetry,
		DeviceID:   os.Getenv("DEVICE_ID"),
		Biometrics: true,
	}

	var err error
	if cfg.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT_SECONDS", "HTTP_TIMEOUT", defaultHTTPTimeout); err != nil {
		return Client{}, err
	}
	if cfg.StaleTime, err = durationEnv("CACHE_STALE_TIME_SECONDS", "CACHE_STALE_TIME", defaultStaleTime); err != nil {
		return Client{}, err
	}
	if cfg.GCTime, err = durationEnv("CACHE_GC_TIME_SECONDS", "CACHE_GC_TIME", defaultGCTime); err != nil {
		return Client{}, err
	}

	if v := os.Getenv("CACHE_RETRY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Client{}, fmt.Errorf("invalid CACHE_RETRY: %q", v)
		}
		cfg.Retries = n
	}
	if v := os.Getenv("BIOMETRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Client{}, fmt.Errorf("invalid BIOMETRICS_ENABLED: %w", err)
		}
		cfg.Biometrics = b
	}

	switch cfg.Platform {
	case "mobile", "web":
	default:
		return Client{}, fmt.Errorf("invalid CLIENT_PLATFORM %q: want mobile or web", cfg.Platform)
	}

	return cfg, nil
}
