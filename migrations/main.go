package main

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"luchaserver/database"
)

var logger *zap.Logger

func init() {
	var err error
	// Zapのロガーを設定
	logger, err = zap.NewProduction()
	if err != nil {
		panic(err)
	}
	_ = godotenv.Load()
}

// 監査ログ用テーブルの作成。サーバー本体も起動時に同じ処理を行う
func main() {
	defer logger.Sync()

	path := "config.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	config, err := database.LoadConfig(path)
	if err != nil {
		logger.Fatal("設定ファイルの読み込みに失敗しました", zap.Error(err))
	}
	if config.DBHost == "" {
		logger.Fatal("DB_HOST is not set; nothing to migrate")
	}

	db, err := database.InitPostgreSQL(config, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Error migrating mutation_audits table", zap.Error(err))
	}
	logger.Info("mutation_audits table migrated successfully")
}
