// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timeOfDayPattern はスイープ時刻の"HH:MM"形式を検証する。
var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth
	JWTSecret     string
	SessionMaxAge int

	// Sweep
	SweepTimes        []string
	SweepTimezone     string
	SweepPollInterval time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// defaultSweepTimes は授業時限の区切りに合わせた自動チェックアウト時刻の既定値。
var defaultSweepTimes = []string{
	"07:50", "08:40", "09:35", "10:30", "11:25",
	"12:20", "13:15", "14:10", "15:05", "16:00", "17:00",
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SweepTimezone = getEnvString("SWEEP_TIMEZONE", "America/New_York")
	cfg.SweepPollInterval = getEnvDuration("SWEEP_POLL_INTERVAL", 30*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	sweepTimes, err := parseSweepTimes(os.Getenv("SWEEP_TIMES"))
	if err != nil {
		return nil, err
	}
	cfg.SweepTimes = sweepTimes

	// スケジュールの分単位の区別を取りこぼさないよう、ポーリング間隔は1分以下に制限する
	if cfg.SweepPollInterval <= 0 || cfg.SweepPollInterval > time.Minute {
		return nil, fmt.Errorf("SWEEP_POLL_INTERVAL must be between 1s and 1m, got %s", cfg.SweepPollInterval)
	}

	if _, err := time.LoadLocation(cfg.SweepTimezone); err != nil {
		return nil, fmt.Errorf("invalid SWEEP_TIMEZONE %q: %w", cfg.SweepTimezone, err)
	}

	return cfg, nil
}

// parseSweepTimes はカンマ区切りのスイープ時刻リストを解析する。
// 空文字の場合は既定のスケジュールを返す。重複を除去し昇順に整列する。
func parseSweepTimes(raw string) ([]string, error) {
	if raw == "" {
		times := make([]string, len(defaultSweepTimes))
		copy(times, defaultSweepTimes)
		return times, nil
	}

	seen := make(map[string]bool)
	var times []string
	for _, part := range strings.Split(raw, ",") {
		t := strings.TrimSpace(part)
		if t == "" {
			continue
		}
		if !timeOfDayPattern.MatchString(t) {
			return nil, fmt.Errorf("invalid SWEEP_TIMES entry %q: must be HH:MM", t)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		times = append(times, t)
	}

	if len(times) == 0 {
		return nil, fmt.Errorf("SWEEP_TIMES contains no valid entries")
	}

	// "HH:MM"の辞書順は時刻順と一致する
	for i := 1; i < len(times); i++ {
		for j := i; j > 0 && times[j] < times[j-1]; j-- {
			times[j], times[j-1] = times[j-1], times[j]
		}
	}

	return times, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
