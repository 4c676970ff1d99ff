package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries all process configuration, loaded once in main.
type Config struct {
	Port         string
	Env          string
	CacheBackend string // "memory" or "redis"
	RedisAddr    string
	DatabaseDSN  string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	JWTSecret string
	DevAuth   bool // allow the fixed development identity when no token is sent

	StripeSecretKey     string
	StripeWebhookSecret string
	FrontendURL         string

	ProxycurlAPIKey string
}

// Load reads .env if present, then the environment.
func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		Port:         getenv("PORT", "8080"),
		Env:          getenv("ENV", "production"),
		CacheBackend: getenv("CACHE_BACKEND", "redis"),
		RedisAddr:    getenv("REDIS_ADDR", "127.0.0.1:6379"),
		DatabaseDSN:  getenv("DATABASE_DSN", "file:nexcv.db?cache=shared&_pragma=foreign_keys(1)"),

		LLMBaseURL: getenv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMModel:   getenv("LLM_MODEL", "gpt-4o-mini"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		DevAuth:   getbool("DEV_AUTH", false),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		FrontendURL:         getenv("FRONTEND_URL", "http://localhost:3000"),

		ProxycurlAPIKey: os.Getenv("PROXYCURL_API_KEY"),
	}
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
