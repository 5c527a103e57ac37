package repository

import (
	"context"

	"internhub/internal/model"

	"gorm.io/gorm"
)

// AuditRepository defines data access for audit log entries
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, action string, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, action string, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.AuditLog{})
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("User").Order("created_at desc").Offset(offset).Limit(limit)
	if action != "" {
		fetch = fetch.Where("action = ?", action)
	}
	if err := fetch.Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
