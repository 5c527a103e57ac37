package repository

import (
	"context"
	"time"

	"internhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalTokenRepository defines data access for approval tokens.
// ConsumePending is the concurrency guard of the whole protocol: a single
// conditional UPDATE that both claims the token and excludes a consumed
// sibling, checked by rows affected, never read-then-write.
type ApprovalTokenRepository interface {
	Create(ctx context.Context, token *model.ApprovalToken) error
	FindByValue(ctx context.Context, raw string) (*model.ApprovalToken, error)
	MarkExpired(ctx context.Context, id uuid.UUID) error
	ConsumePending(ctx context.Context, id uuid.UUID, requestID uuid.UUID, comment string, at time.Time) (bool, error)
	HasConsumedSibling(ctx context.Context, requestID uuid.UUID) (bool, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]model.ApprovalToken, error)
}

type approvalTokenRepository struct {
	db *gorm.DB
}

func NewApprovalTokenRepository(db *gorm.DB) ApprovalTokenRepository {
	return &approvalTokenRepository{db: db}
}

func (r *approvalTokenRepository) Create(ctx context.Context, token *model.ApprovalToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

// FindByValue looks a token up by its raw secret value. The unique index on
// the token column makes this the primary lookup; the value itself is never
// logged by callers.
func (r *approvalTokenRepository) FindByValue(ctx context.Context, raw string) (*model.ApprovalToken, error) {
	var token model.ApprovalToken
	if err := GetDB(ctx, r.db).Preload("Student").First(&token, "token = ?", raw).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// MarkExpired lazily flips a stale pending token to EXPIRED. Guarded on
// status so it never clobbers a concurrent consumption.
func (r *approvalTokenRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).
		Model(&model.ApprovalToken{}).
		Where("id = ? AND status = ?", id, model.TokenStatusPending).
		Update("status", model.TokenStatusExpired).Error
}

// ConsumePending atomically transitions PENDING -> CONSUMED. The NOT EXISTS
// predicate rejects the claim when the sibling token of the same request was
// consumed first, so mutual exclusion and double-click protection are a
// single statement. Returns false when the row was not claimed.
func (r *approvalTokenRepository) ConsumePending(ctx context.Context, id uuid.UUID, requestID uuid.UUID, comment string, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).
		Model(&model.ApprovalToken{}).
		Where("id = ? AND status = ?", id, model.TokenStatusPending).
		Where("NOT EXISTS (SELECT 1 FROM approval_tokens s WHERE s.request_id = ? AND s.status = ? AND s.id <> ?)",
			requestID, model.TokenStatusConsumed, id).
		Updates(map[string]interface{}{
			"status":      model.TokenStatusConsumed,
			"comment":     comment,
			"consumed_at": at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *approvalTokenRepository) HasConsumedSibling(ctx context.Context, requestID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.ApprovalToken{}).
		Where("request_id = ? AND status = ?", requestID, model.TokenStatusConsumed).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *approvalTokenRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]model.ApprovalToken, error) {
	var tokens []model.ApprovalToken
	err := GetDB(ctx, r.db).
		Where("student_id = ?", studentID).
		Order("issued_at desc").
		Limit(limit).
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
