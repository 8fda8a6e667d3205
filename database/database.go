package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"luchaserver/models"
)

// DefaultConfig is used when config.json is missing.
func DefaultConfig() models.Config {
	return models.Config{
		APIBaseURL: "http://localhost:3000",
		APITimeout: "20s",
		DBSSLMode:  "disable",
		ListenAddr: ":8080",
	}
}

// LoadConfig loads config.json, then applies environment overrides. A
// missing file is not an error.
func LoadConfig(filename string) (models.Config, error) {
	config := DefaultConfig()
	configFile, err := os.Open(filename)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return config, err
	default:
		defer configFile.Close()
		if err := json.NewDecoder(configFile).Decode(&config); err != nil {
			return config, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
		}
	}
	applyEnv(&config)
	return config, nil
}

// 環境変数で上書き
func applyEnv(config *models.Config) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	str("API_BASE_URL", &config.APIBaseURL)
	str("API_TIMEOUT", &config.APITimeout)
	str("DB_HOST", &config.DBHost)
	str("DB_USER", &config.DBUser)
	str("DB_PASSWORD", &config.DBPassword)
	str("DB_NAME", &config.DBName)
	str("DB_SSLMODE", &config.DBSSLMode)
	str("REDIS_ADDR", &config.RedisAddr)
	str("REDIS_PASSWORD", &config.RedisPassword)
	str("LISTEN_ADDR", &config.ListenAddr)

	if v, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		config.RedisDB = v
	}
	if v, err := strconv.Atoi(os.Getenv("AUDIT_RETENTION_DAYS")); err == nil {
		config.AuditRetentionDays = v
	}
	if v, err := strconv.ParseBool(os.Getenv("SECURE_COOKIES")); err == nil {
		config.SecureCookies = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		config.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, o)
			}
		}
	}
}

func InitPostgreSQL(config models.Config, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s password=%s sslmode=%s",
		config.DBHost, config.DBUser, config.DBName, config.DBPassword, config.DBSSLMode)

	const maxRetries = 3
	const retryInterval = 5 * time.Second
	var err error
	for i := 0; i <= maxRetries; i++ {
		var gormDB *gorm.DB
		gormDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			return gormDB, nil
		}
		logger.Error("データベース接続のリトライ", zap.Int("retry", i), zap.Error(err))
		if i < maxRetries {
			time.Sleep(retryInterval)
		}
	}
	return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
}

func InitRedis(config models.Config, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Error("Failed to connect to Redis", zap.Error(err))
		rdb.Close()
		return nil, err
	}

	logger.Info("Connected to Redis", zap.String("addr", config.RedisAddr))
	return rdb, nil
}

// AutoMigrate creates or updates the audit table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.MutationAudit{})
}
