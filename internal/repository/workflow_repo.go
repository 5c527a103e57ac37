package repository

import (
	"context"
	"time"

	"internhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkflowRepository defines data access for step definitions and per-student step state
type WorkflowRepository interface {
	UpsertDefinition(ctx context.Context, def *model.WorkflowStepDefinition) error
	DefinitionsByType(ctx context.Context, processType string) ([]model.WorkflowStepDefinition, error)
	StepsByStudent(ctx context.Context, studentID uuid.UUID, processType string) ([]model.StudentWorkflowStep, error)
	CreateSteps(ctx context.Context, steps []model.StudentWorkflowStep) error
	UpdateStepStatus(ctx context.Context, id uuid.UUID, status string, completedAt *time.Time) error
}

type workflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

// UpsertDefinition inserts or refreshes one authored step definition,
// keyed by (process_type, step_key). Used by the startup seeder only.
func (r *workflowRepository) UpsertDefinition(ctx context.Context, def *model.WorkflowStepDefinition) error {
	return GetDB(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "process_type"}, {Name: "step_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"step_order", "title", "description_template", "required", "dependencies", "updated_at",
			}),
		}).
		Create(def).Error
}

func (r *workflowRepository) DefinitionsByType(ctx context.Context, processType string) ([]model.WorkflowStepDefinition, error) {
	var defs []model.WorkflowStepDefinition
	err := GetDB(ctx, r.db).
		Where("process_type = ?", processType).
		Order("step_order asc").
		Find(&defs).Error
	if err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *workflowRepository) StepsByStudent(ctx context.Context, studentID uuid.UUID, processType string) ([]model.StudentWorkflowStep, error) {
	var steps []model.StudentWorkflowStep
	err := GetDB(ctx, r.db).
		Where("student_id = ? AND process_type = ?", studentID, processType).
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *workflowRepository) CreateSteps(ctx context.Context, steps []model.StudentWorkflowStep) error {
	if len(steps) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&steps).Error
}

func (r *workflowRepository) UpdateStepStatus(ctx context.Context, id uuid.UUID, status string, completedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if completedAt != nil {
		updates["completed_at"] = completedAt
	}
	return GetDB(ctx, r.db).
		Model(&model.StudentWorkflowStep{}).
		Where("id = ?", id).
		Updates(updates).Error
}
