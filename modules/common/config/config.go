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

// Config holds every environment variable the server reads.
type Config struct {
	// Server
	Port string

	// Storage layout
	StorageDir     string // root of clothes/, user/, outputs/ and metadata files
	StoreBackend   string // "file" or "supabase"
	CacheBackend   string // "file" or "redis"
	ArtifactFormat string // "png" or "webp"

	// Gemini API
	GeminiAPIKeys []string
	GeminiModel   string

	// Provider call budget
	ProviderTimeout time.Duration

	// Redis (cache index backend)
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase (metadata store backend)
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string
}

var globalConfig *Config

// LoadConfig reads .env (if present) and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	useTLS := true
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	providerTimeout := 120 * time.Second
	if secStr := os.Getenv("PROVIDER_TIMEOUT_SECONDS"); secStr != "" {
		if parsed, err := strconv.Atoi(secStr); err == nil && parsed > 0 {
			providerTimeout = time.Duration(parsed) * time.Second
		}
	}

	// Multiple keys let generation rotate past per-key rate limits.
	var apiKeys []string
	if keysStr := os.Getenv("GEMINI_API_KEYS"); keysStr != "" {
		for _, key := range strings.Split(keysStr, ",") {
			if key = strings.TrimSpace(key); key != "" {
				apiKeys = append(apiKeys, key)
			}
		}
	}
	if len(apiKeys) == 0 {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			apiKeys = []string{key}
		}
	}

	globalConfig = &Config{
		Port: getEnv("PORT", "8080"),

		StorageDir:     getEnv("STORAGE_DIR", "storage"),
		StoreBackend:   getEnv("STORE_BACKEND", "file"),
		CacheBackend:   getEnv("CACHE_BACKEND", "file"),
		ArtifactFormat: getEnv("ARTIFACT_FORMAT", "png"),

		GeminiAPIKeys: apiKeys,
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),

		ProviderTimeout: providerTimeout,

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),
	}

	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Storage: %s (store: %s, cache: %s, artifacts: %s)",
		globalConfig.StorageDir, globalConfig.StoreBackend, globalConfig.CacheBackend, globalConfig.ArtifactFormat)
	log.Printf("   Gemini: %s (%d key(s), timeout %s)",
		globalConfig.GeminiModel, len(globalConfig.GeminiAPIKeys), globalConfig.ProviderTimeout)
	if globalConfig.CacheBackend == "redis" {
		log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	}
	if globalConfig.StoreBackend == "supabase" {
		log.Printf("   Supabase: %s", globalConfig.SupabaseURL)
	}

	return globalConfig, nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

func (c *Config) validate() error {
	if len(c.GeminiAPIKeys) == 0 {
		return fmt.Errorf("GEMINI_API_KEYS (or GEMINI_API_KEY) is required")
	}
	switch c.StoreBackend {
	case "file":
	case "supabase":
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required when STORE_BACKEND=supabase")
		}
		if c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required when STORE_BACKEND=supabase")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be 'file' or 'supabase', got %q", c.StoreBackend)
	}
	switch c.CacheBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("CACHE_BACKEND must be 'file' or 'redis', got %q", c.CacheBackend)
	}
	switch c.ArtifactFormat {
	case "png", "webp":
	default:
		return fmt.Errorf("ARTIFACT_FORMAT must be 'png' or 'webp', got %q", c.ArtifactFormat)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetRedisAddr builds the Redis connection string.
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
