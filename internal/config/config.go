package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL       = "http://localhost:8000"
	DefaultTimeout       = 30 * time.Second
	DefaultWatchInterval = time.Minute
)

type AppConfig struct {
	BaseURL       string
	CSRFToken     string
	SessionCookie string
	DBPath        string
	LogFile       string
	LogLevel      string
	MetricsAddr   string
	Timeout       time.Duration
	Notifications string
	Lat           float64
	Lng           float64
	HasLocation   bool
	WatchInterval time.Duration
}

// LoadEnv reads .env from the working directory when present.
func LoadEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func Parse(args []string) (AppConfig, error) {
	var cfg AppConfig
	var lat, lng string

	fs := flag.NewFlagSet("safe-traveller", flag.ContinueOnError)
	fs.StringVar(&cfg.BaseURL, "base-url", "", "Safe Traveller server URL (SAFE_TRAVELLER_URL)")
	fs.StringVar(&cfg.CSRFToken, "csrf-token", os.Getenv("SAFE_TRAVELLER_CSRF_TOKEN"), "CSRF token used when the server sets no csrftoken cookie")
	fs.StringVar(&cfg.SessionCookie, "session-cookie", os.Getenv("SAFE_TRAVELLER_SESSION"), "Django sessionid cookie for the logged in user")
	fs.StringVar(&cfg.DBPath, "db-path", "", "path to SQLite preferences file")
	fs.StringVar(&cfg.LogFile, "log-file", "", "path to diagnostic log file")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", os.Getenv("METRICS_ADDR"), "serve Prometheus metrics on this address")
	fs.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "HTTP timeout for backend calls")
	fs.StringVar(&cfg.Notifications, "notifications", envOr("SAFE_TRAVELLER_NOTIFICATIONS", "default"), "notification permission: default, granted, denied")
	fs.StringVar(&lat, "lat", os.Getenv("SAFE_TRAVELLER_LAT"), "current latitude")
	fs.StringVar(&lng, "lng", os.Getenv("SAFE_TRAVELLER_LNG"), "current longitude")
	fs.DurationVar(&cfg.WatchInterval, "watch-interval", DefaultWatchInterval, "location refresh interval")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.BaseURL = DetectBaseURL(cfg.BaseURL)
	if cfg.Timeout <= 0 {
		return cfg, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.WatchInterval <= 0 {
		return cfg, fmt.Errorf("watch interval must be positive, got %s", cfg.WatchInterval)
	}

	if lat != "" || lng != "" {
		var err error
		if cfg.Lat, err = parseCoord(lat, 90); err != nil {
			return cfg, fmt.Errorf("lat: %w", err)
		}
		if cfg.Lng, err = parseCoord(lng, 180); err != nil {
			return cfg, fmt.Errorf("lng: %w", err)
		}
		cfg.HasLocation = true
	}

	dataDir, err := DetectDataDir("")
	if err != nil {
		return cfg, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(dataDir, "preferences.sqlite")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(dataDir, "client.log")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return cfg, fmt.Errorf("create db dir: %w", err)
	}

	return cfg, nil
}

func DetectBaseURL(explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	if fromEnv := strings.TrimSpace(os.Getenv("SAFE_TRAVELLER_URL")); fromEnv != "" {
		return strings.TrimRight(fromEnv, "/")
	}
	return DefaultBaseURL
}

func DetectDataDir(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	if fromEnv := os.Getenv("SAFE_TRAVELLER_HOME"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "safe-traveller"), nil
}

func parseCoord(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse coordinate %q: %w", s, err)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("coordinate %v out of range ±%v", v, limit)
	}
	return v, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
