package repository

import (
	"context"

	"internhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlacementRepository defines data access for internship/project placements
type PlacementRepository interface {
	Create(ctx context.Context, p *model.Placement) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Placement, error)
	ActiveByStudent(ctx context.Context, studentID uuid.UUID) (*model.Placement, error)
	ActiveByStudentAndType(ctx context.Context, studentID uuid.UUID, processType string) (*model.Placement, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Placement, error)
	Update(ctx context.Context, p *model.Placement) error
}

type placementRepository struct {
	db *gorm.DB
}

func NewPlacementRepository(db *gorm.DB) PlacementRepository {
	return &placementRepository{db: db}
}

func (r *placementRepository) Create(ctx context.Context, p *model.Placement) error {
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *placementRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Placement, error) {
	var p model.Placement
	if err := GetDB(ctx, r.db).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *placementRepository) ActiveByStudent(ctx context.Context, studentID uuid.UUID) (*model.Placement, error) {
	var p model.Placement
	err := GetDB(ctx, r.db).
		Where("student_id = ? AND active = ?", studentID, true).
		Order("start_date desc").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *placementRepository) ActiveByStudentAndType(ctx context.Context, studentID uuid.UUID, processType string) (*model.Placement, error) {
	var p model.Placement
	err := GetDB(ctx, r.db).
		Where("student_id = ? AND process_type = ? AND active = ?", studentID, processType, true).
		Order("start_date desc").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *placementRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Placement, error) {
	var placements []model.Placement
	err := GetDB(ctx, r.db).
		Where("student_id = ?", studentID).
		Order("start_date desc").
		Find(&placements).Error
	if err != nil {
		return nil, err
	}
	return placements, nil
}

func (r *placementRepository) Update(ctx context.Context, p *model.Placement) error {
	return GetDB(ctx, r.db).Save(p).Error
}
