package models

import "time"

// Config holds everything read from config.json. Environment variables
// override file values (see database.LoadConfig).
type Config struct {
	// ゲームAPI
	APIBaseURL string `json:"api_base_url"`
	APITimeout string `json:"api_timeout"`

	// PostgreSQL (mutation audit log). An empty DBHost disables it.
	DBHost     string `json:"db_host"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBName     string `json:"db_name"`
	DBSSLMode  string `json:"db_sslmode"`

	// Redis (token store). An empty RedisAddr falls back to the in-memory store.
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// 監査ログの保持日数
	AuditRetentionDays int `json:"audit_retention_days"`

	AllowedOrigins []string `json:"allowed_origins"`
	SecureCookies  bool     `json:"secure_cookies"`
	ListenAddr     string   `json:"listen_addr"`
}

// AuditRetention returns how long audit rows are kept, 30 days by default.
func (c Config) AuditRetention() time.Duration {
	days := c.AuditRetentionDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// Timeout parses APITimeout, returning 20s when it is empty or invalid.
func (c Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.APITimeout)
	if err != nil || d <= 0 {
		return 20 * time.Second
	}
	return d
}
