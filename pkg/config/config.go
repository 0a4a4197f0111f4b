package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Storage
	CacheDBPath  string
	MemoryDBPath string

	// Scheduler
	CheckInterval           time.Duration
	SyncInterval            time.Duration
	MaxNotificationsPerHour int
	QuietHoursStart         int
	QuietHoursEnd           int

	// AI provider
	AIProvider    string // "gemini", "ollama" or "auto"
	GeminiApiKey  string
	OllamaBaseURL string
	OllamaModel   string

	// Google Calendar
	GoogleClientID     string
	GoogleClientSecret string
	GoogleAccessToken  string
	GoogleRefreshToken string

	// Delivery
	FirebaseCredentials string
	FCMDeviceTokens     []string

	// Chroma insight store
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8080"),

		CacheDBPath:  getEnv("CACHE_DB_PATH", "agent_cache.db"),
		MemoryDBPath: getEnv("MEMORY_DB_PATH", "agent_memory.db"),

		CheckInterval:           getEnvDuration("CHECK_INTERVAL", 900*time.Second),
		SyncInterval:            getEnvDuration("SYNC_INTERVAL", 300*time.Second),
		MaxNotificationsPerHour: getEnvInt("MAX_NOTIFICATIONS_PER_HOUR", 6),
		QuietHoursStart:         getEnvInt("QUIET_HOURS_START", 23),
		QuietHoursEnd:           getEnvInt("QUIET_HOURS_END", 7),

		AIProvider:    getEnv("AI_PROVIDER", "auto"),
		GeminiApiKey:  getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleAccessToken:  getEnv("GOOGLE_ACCESS_TOKEN", ""),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),

		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		FCMDeviceTokens:     getEnvList("FCM_DEVICE_TOKENS"),

		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		// Bare numbers are treated as seconds
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
