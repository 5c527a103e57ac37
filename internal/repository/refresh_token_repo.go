package repository

import (
	"context"

	"internhub/internal/model"

	"gorm.io/gorm"
)

// RefreshTokenRepository defines data access for long-lived session tokens
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	GetByToken(ctx context.Context, raw string) (*model.RefreshToken, error)
	Delete(ctx context.Context, raw string) error
}

type refreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

func (r *refreshTokenRepository) GetByToken(ctx context.Context, raw string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	if err := GetDB(ctx, r.db).Preload("User").First(&token, "token = ?", raw).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *refreshTokenRepository) Delete(ctx context.Context, raw string) error {
	return GetDB(ctx, r.db).Where("token = ?", raw).Delete(&model.RefreshToken{}).Error
}
