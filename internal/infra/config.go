package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// VendorConfig carries the endpoint and bearer credential for one vendor API.
type VendorConfig struct {
	BaseURL string
	APIKey  string
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string

	RedisAddr       string
	BalanceCacheTTL time.Duration

	// Blob storage. When MinioEndpoint is empty the service falls back to
	// the local filesystem store rooted at StoragePath.
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	StoragePath     string
	PublicAssetBase string

	Sora2        VendorConfig
	Veo3         VendorConfig
	LipSync      VendorConfig
	InfiniteTalk VendorConfig
	NanoBanana   VendorConfig

	VendorTimeout    time.Duration
	TransferTimeout  time.Duration
	MaxArtifactBytes int64
	RetryAttempts    int

	StaleTimeout     time.Duration
	SweepBatch       int
	SweepConcurrency int
	SweepSchedule    string
	FailedTTL        time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		BalanceCacheTTL: getEnvDuration("BALANCE_CACHE_TTL", 15*time.Second),

		MinioEndpoint:   os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:     getEnv("MINIO_BUCKET", "mediaforge"),
		MinioUseSSL:     getEnvBool("MINIO_USE_SSL", false),
		StoragePath:     getEnv("STORAGE_PATH", "./storage"),
		PublicAssetBase: getEnv("PUBLIC_ASSET_BASE", "http://localhost:8080/static"),

		Sora2:        vendorFromEnv("SORA2", "https://api.sora2.example.com"),
		Veo3:         vendorFromEnv("VEO3", "https://api.veo3.example.com"),
		LipSync:      vendorFromEnv("LIPSYNC", "https://api.lipsync.example.com"),
		InfiniteTalk: vendorFromEnv("INFINITETALK", "https://api.infinitetalk.example.com"),
		NanoBanana:   vendorFromEnv("NANOBANANA", "https://api.nanobanana.example.com"),

		VendorTimeout:    getEnvDuration("VENDOR_TIMEOUT", 30*time.Second),
		TransferTimeout:  getEnvDuration("TRANSFER_TIMEOUT", 60*time.Second),
		MaxArtifactBytes: int64(getEnvInt("MAX_ARTIFACT_MB", 500)) * 1024 * 1024,
		RetryAttempts:    getEnvInt("RETRY_ATTEMPTS", 3),

		StaleTimeout:     getEnvDuration("STALE_TIMEOUT", 10*time.Minute),
		SweepBatch:       getEnvInt("SWEEP_BATCH", 20),
		SweepConcurrency: getEnvInt("SWEEP_CONCURRENCY", 4),
		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "@every 30s"),
		FailedTTL:        getEnvDuration("FAILED_TTL", 24*time.Hour),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func vendorFromEnv(prefix, defaultBaseURL string) VendorConfig {
	return VendorConfig{
		BaseURL: getEnv(prefix+"_BASE_URL", defaultBaseURL),
		APIKey:  os.Getenv(prefix + "_API_KEY"),
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
