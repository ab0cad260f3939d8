package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, key := range []string{
			"PORT", "DATABASE_URL", "UPLOAD_DIR", "UPLOAD_RANDOM_SUFFIX",
			"LEADERBOARD_CACHE_TTL", "ALLOWED_ORIGINS",
		} {
			t.Setenv(key, "")
		}

		cfg := Load()
		if cfg.Port != "5000" {
			t.Errorf("expected port 5000, got %s", cfg.Port)
		}
		if cfg.UploadDir != "uploads" {
			t.Errorf("expected upload dir 'uploads', got %s", cfg.UploadDir)
		}
		if cfg.UploadRandomSuffix {
			t.Error("random suffix should be off by default")
		}
		if cfg.LeaderboardCacheTTL != 0 {
			t.Errorf("expected cache disabled, got %v", cfg.LeaderboardCacheTTL)
		}
		if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
			t.Errorf("unexpected origins: %v", cfg.AllowedOrigins)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/carbon")
		t.Setenv("UPLOAD_RANDOM_SUFFIX", "true")
		t.Setenv("LEADERBOARD_CACHE_TTL", "30")
		t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")

		cfg := Load()
		if cfg.Port != "9090" {
			t.Errorf("expected port 9090, got %s", cfg.Port)
		}
		if cfg.DatabaseURL != "postgres://u:p@db:5432/carbon" {
			t.Errorf("unexpected database url %s", cfg.DatabaseURL)
		}
		if !cfg.UploadRandomSuffix {
			t.Error("expected random suffix enabled")
		}
		if cfg.LeaderboardCacheTTL != 30*time.Second {
			t.Errorf("expected 30s ttl, got %v", cfg.LeaderboardCacheTTL)
		}
		if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
			t.Errorf("unexpected origins: %v", cfg.AllowedOrigins)
		}
	})

	t.Run("ignores unparsable numbers", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_BURST", "lots")
		t.Setenv("RATE_LIMIT_RPS", "fast")

		cfg := Load()
		if cfg.RateLimitBurst != 20 {
			t.Errorf("expected fallback burst 20, got %d", cfg.RateLimitBurst)
		}
		if cfg.RateLimitRPS != 10 {
			t.Errorf("expected fallback rps 10, got %v", cfg.RateLimitRPS)
		}
	})
}
