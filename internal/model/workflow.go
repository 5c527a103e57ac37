package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Step status enum constants
const (
	StepStatusWaiting    = "WAITING"
	StepStatusInProgress = "IN_PROGRESS"
	StepStatusCompleted  = "COMPLETED"
)

// WorkflowStepDefinition is one authored milestone of a process type.
// Definitions are seeded from configs/workflows.yaml at startup and are
// read-only at runtime. Overlaying Dependencies on the order must form a DAG.
type WorkflowStepDefinition struct {
	ID                  uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProcessType         string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_step_def_type_key" json:"process_type"`
	StepKey             string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_step_def_type_key" json:"step_key"`
	StepOrder           int       `gorm:"not null" json:"step_order"`
	Title               string    `gorm:"type:varchar(255);not null" json:"title"`
	DescriptionTemplate string    `gorm:"type:text" json:"description_template"`
	Required            bool      `gorm:"not null;default:true" json:"required"`
	Dependencies        string    `gorm:"type:jsonb;not null;default:'[]'" json:"-"` // JSON array of step keys
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DependencyKeys deserializes the dependency step keys
func (d *WorkflowStepDefinition) DependencyKeys() ([]string, error) {
	var keys []string
	if d.Dependencies == "" {
		return keys, nil
	}
	if err := json.Unmarshal([]byte(d.Dependencies), &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// SetDependencyKeys serializes the dependency step keys
func (d *WorkflowStepDefinition) SetDependencyKeys(keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	raw, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	d.Dependencies = string(raw)
	return nil
}

// StudentWorkflowStep is the per-student status of one workflow step
type StudentWorkflowStep struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StudentID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_student_step" json:"student_id"`
	ProcessType string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_student_step" json:"process_type"`
	StepKey     string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_student_step" json:"step_key"`
	Status      string     `gorm:"type:varchar(15);not null;default:'WAITING'" json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
