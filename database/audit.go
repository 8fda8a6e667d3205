package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"luchaserver/models"
)

// AuditRepository stores one row per user action.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, entry *models.MutationAudit) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Recent returns the newest rows of a session, newest first.
func (r *AuditRepository) Recent(ctx context.Context, sessionID string, limit int) ([]models.MutationAudit, error) {
	var rows []models.MutationAudit
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Prune hard-deletes rows older than before.
func (r *AuditRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().
		Where("created_at < ?", before).
		Delete(&models.MutationAudit{})
	return result.RowsAffected, result.Error
}

// NopAuditor is used when no database is configured.
type NopAuditor struct{}

func (NopAuditor) Record(context.Context, *models.MutationAudit) error { return nil }
