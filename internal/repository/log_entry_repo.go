package repository

import (
	"context"
	"time"

	"internhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogEntryRepository defines data access for work-log entries.
// ApplyDecision is the single write path for the approval-owned fields.
type LogEntryRepository interface {
	Create(ctx context.Context, entry *model.LogEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.LogEntry, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, page, limit int) ([]model.LogEntry, int64, error)
	FindUnapproved(ctx context.Context, studentID uuid.UUID) ([]model.LogEntry, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.LogEntry, error)
	Update(ctx context.Context, entry *model.LogEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	ApplyDecision(ctx context.Context, ids []uuid.UUID, approve bool, comment string, at time.Time) error
}

type logEntryRepository struct {
	db *gorm.DB
}

func NewLogEntryRepository(db *gorm.DB) LogEntryRepository {
	return &logEntryRepository{db: db}
}

func (r *logEntryRepository) Create(ctx context.Context, entry *model.LogEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *logEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.LogEntry, error) {
	var entry model.LogEntry
	if err := GetDB(ctx, r.db).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *logEntryRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, page, limit int) ([]model.LogEntry, int64, error) {
	var entries []model.LogEntry
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.LogEntry{}).Where("student_id = ?", studentID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Where("student_id = ?", studentID).
		Order("work_date desc").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// FindUnapproved returns every unapproved entry for the student, ascending by
// work date. Scope selection itself happens in memory so the window logic
// stays a pure, deterministic function.
func (r *logEntryRepository) FindUnapproved(ctx context.Context, studentID uuid.UUID) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	err := GetDB(ctx, r.db).
		Where("student_id = ? AND approved = ?", studentID, false).
		Order("work_date asc, created_at asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *logEntryRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	if len(ids) == 0 {
		return entries, nil
	}
	err := GetDB(ctx, r.db).
		Where("id IN ?", ids).
		Order("work_date asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *logEntryRepository) Update(ctx context.Context, entry *model.LogEntry) error {
	return GetDB(ctx, r.db).Save(entry).Error
}

func (r *logEntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.LogEntry{}).Error
}

// ApplyDecision mutates every entry in ids in one statement: approve sets
// approved/approved_at, reject flags needs_revision; both record the comment.
func (r *logEntryRepository) ApplyDecision(ctx context.Context, ids []uuid.UUID, approve bool, comment string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	updates := map[string]interface{}{
		"approver_comment": comment,
		"updated_at":       at,
	}
	if approve {
		updates["approved"] = true
		updates["approved_at"] = at
		updates["needs_revision"] = false
	} else {
		updates["needs_revision"] = true
	}

	return GetDB(ctx, r.db).
		Model(&model.LogEntry{}).
		Where("id IN ?", ids).
		Updates(updates).Error
}
