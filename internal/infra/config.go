package infra

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents session configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	BindAddr         string
	Port             string
	GeminiAPIKey     string
	GeminiBaseURL    string
	ProfilePath      string
	MediaDir         string
	VideoPollEvery   time.Duration
	VideoMaxPolls    int
	VideoTimeout     time.Duration
	RequestsPerMin   int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		BindAddr:         getEnv("BIND_ADDR", "127.0.0.1"),
		Port:             getEnv("PORT", "8787"),
		GeminiAPIKey:     firstEnv("API_KEY", "GEMINI_API_KEY"),
		GeminiBaseURL:    strings.TrimRight(os.Getenv("GEMINI_BASE_URL"), "/"),
		ProfilePath:      getEnv("PROFILE_PATH", defaultProfilePath()),
		MediaDir:         os.Getenv("MEDIA_DIR"),
		VideoPollEvery:   time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 10)),
		VideoMaxPolls:    getEnvInt("VIDEO_MAX_POLLS", 90),
		VideoTimeout:     time.Second * time.Duration(getEnvInt("VIDEO_TIMEOUT_SECONDS", 1200)),
		RequestsPerMin:   getEnvInt("GEMINI_REQUESTS_PER_MINUTE", 0),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 120)),
		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
	}

	if !isLoopback(cfg.BindAddr) {
		return nil, fmt.Errorf("BIND_ADDR must be a loopback address, got %q", cfg.BindAddr)
	}
	if cfg.VideoPollEvery <= 0 {
		return nil, fmt.Errorf("VIDEO_POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.VideoMaxPolls <= 0 {
		return nil, fmt.Errorf("VIDEO_MAX_POLLS must be positive")
	}
	if cfg.VideoTimeout <= 0 {
		return nil, fmt.Errorf("VIDEO_TIMEOUT_SECONDS must be positive")
	}
	if cfg.RequestsPerMin < 0 {
		return nil, fmt.Errorf("GEMINI_REQUESTS_PER_MINUTE must not be negative")
	}

	return cfg, nil
}

// Addr is the listen address of the session bridge.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "studio", "profile.yaml")
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
