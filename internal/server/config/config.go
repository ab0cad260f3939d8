package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                string
	DatabaseURL         string
	MongoDatabase       string
	UploadDir           string
	UploadRandomSuffix  bool
	JWTSecret           string
	RedisURL            string
	LeaderboardCacheTTL time.Duration
	RateLimitRPS        float64
	RateLimitBurst      int
	AllowedOrigins      []string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	return &Config{
		Port:                getEnv("PORT", "5000"),
		DatabaseURL:         getEnv("DATABASE_URL", "mongodb://localhost:27017"),
		MongoDatabase:       getEnv("MONGO_DATABASE", "carbontrack"),
		UploadDir:           getEnv("UPLOAD_DIR", "uploads"),
		UploadRandomSuffix:  getEnvBool("UPLOAD_RANDOM_SUFFIX", false),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		LeaderboardCacheTTL: getEnvSeconds("LEADERBOARD_CACHE_TTL", 0),
		RateLimitRPS:        getEnvFloat64("RATE_LIMIT_RPS", 10),
		RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 20),
		AllowedOrigins:      getEnvList("ALLOWED_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if secs, err := strconv.ParseFloat(val, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
