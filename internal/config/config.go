package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr               string
	GRPCAddr               string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	JWTSecret              string
	JWTIssuer              string
	APIKey                 string
	ServiceAuthToken       string
	TrustProxyHeaders      bool
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	IdempotencyTTL         time.Duration
	DeviceAuthRateLimit    int
	DeviceAuthRateWindow   time.Duration
	DeviceOnlineWindow     time.Duration
	SessionCleanupEnabled  bool
	SessionCleanupInterval time.Duration
	SessionCleanupTimeout  time.Duration
}

// ClientConfig configures the hub client used by the session and device flows.
type ClientConfig struct {
	HubURL    string
	HubAPIKey string
	Timeout   time.Duration
}

func Load() Config {
	loadDotEnv()
	return Config{
		HTTPAddr:               getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:               getenv("GRPC_ADDR", ":9090"),
		DatabaseURL:            getenv("DATABASE_URL", ""),
		RedisAddr:              getenv("REDIS_ADDR", ""),
		RedisPassword:          getenvSecret("REDIS_PASSWORD", ""),
		JWTSecret:              getenvSecret("JWT_SECRET", ""),
		JWTIssuer:              getenv("JWT_ISSUER", "wheeltrack-hub"),
		APIKey:                 getenvSecret("API_KEY", ""),
		ServiceAuthToken:       getenvSecret("SERVICE_AUTH_TOKEN", ""),
		TrustProxyHeaders:      getenvBool("TRUST_PROXY_HEADERS", false),
		AccessTokenTTL:         getenvDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL:        getenvDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		IdempotencyTTL:         getenvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		DeviceAuthRateLimit:    getenvInt("DEVICE_AUTH_RATE_LIMIT", 30),
		DeviceAuthRateWindow:   getenvDuration("DEVICE_AUTH_RATE_WINDOW", time.Minute),
		DeviceOnlineWindow:     getenvDuration("DEVICE_ONLINE_WINDOW", time.Hour),
		SessionCleanupEnabled:  getenvBool("SESSION_CLEANUP_ENABLED", true),
		SessionCleanupInterval: getenvDuration("SESSION_CLEANUP_INTERVAL", time.Hour),
		SessionCleanupTimeout:  getenvDuration("SESSION_CLEANUP_TIMEOUT", 30*time.Second),
	}
}

func LoadClient() ClientConfig {
	loadDotEnv()
	return ClientConfig{
		HubURL:    strings.TrimRight(getenv("HUB_URL", "http://127.0.0.1:8080"), "/"),
		HubAPIKey: getenvSecret("HUB_API_KEY", ""),
		Timeout:   getenvDuration("HUB_TIMEOUT", 15*time.Second),
	}
}

// loadDotEnv reads ENV_FILE (default .env) if present. Variables already set
// in the environment win.
func loadDotEnv() {
	path := getenv("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvSecret(key, fallback string) string {
	if file := os.Getenv(key + "_FILE"); file != "" {
		if data, err := os.ReadFile(file); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	if val := os.Getenv(key); val != "" {
		return strings.TrimSpace(val)
	}
	return fallback
}
