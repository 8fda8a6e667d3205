package utils

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pruners are the housekeeping targets of CronCleaner. Any of them may be nil.
type Pruners struct {
	// Views drops page views idle for longer than the given duration.
	Views interface {
		Prune(idle time.Duration) int
		Len() int
	}
	// Tokens drops expired tokens from the in-memory store.
	Tokens interface {
		Prune(now time.Time) int
		Len() int
	}
	// Audit hard-deletes audit rows older than the cutoff.
	Audit interface {
		Prune(ctx context.Context, before time.Time) (int64, error)
	}

	ViewIdle       time.Duration
	AuditRetention time.Duration
}

// CronCleaner schedules the housekeeping jobs and starts the scheduler.
// The returned cron can be stopped on shutdown.
func CronCleaner(p Pruners, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()

	// 放置されたページの状態を削除（10分ごと）
	if p.Views != nil {
		if _, err := c.AddFunc("@every 10m", func() { p.pruneViews(logger) }); err != nil {
			return nil, err
		}
	}

	// 期限切れトークンの削除
	if p.Tokens != nil {
		if _, err := c.AddFunc("@hourly", func() { p.pruneTokens(logger, time.Now()) }); err != nil {
			return nil, err
		}
	}

	// 古い監査ログを削除するジョブ（"分 時 日 月 曜日"）
	if p.Audit != nil {
		if _, err := c.AddFunc("0 3 * * *", func() {
			logger.Info("古い監査ログを削除する処理を開始")
			n, err := p.Audit.Prune(context.Background(), time.Now().Add(-p.AuditRetention))
			if err != nil {
				logger.Error("監査ログの削除に失敗しました", zap.Error(err))
				return
			}
			logger.Info("監査ログの削除完了", zap.Int64("rows_deleted", n))
		}); err != nil {
			return nil, err
		}
	}

	c.Start()
	return c, nil
}

func (p Pruners) pruneViews(logger *zap.Logger) {
	if n := p.Views.Prune(p.ViewIdle); n > 0 {
		logger.Info("放置されたページを削除しました", zap.Int("views_pruned", n), zap.Int("views_mounted", p.Views.Len()))
	}
}

func (p Pruners) pruneTokens(logger *zap.Logger, now time.Time) {
	if n := p.Tokens.Prune(now); n > 0 {
		logger.Info("期限切れトークンを削除しました", zap.Int("tokens_pruned", n), zap.Int("tokens_left", p.Tokens.Len()))
	}
}
