package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateLogEntry  = "CREATE_LOG_ENTRY"
	ActionUpdateLogEntry  = "UPDATE_LOG_ENTRY"
	ActionDeleteLogEntry  = "DELETE_LOG_ENTRY"
	ActionCreatePlacement = "CREATE_PLACEMENT"
	ActionClosePlacement  = "CLOSE_PLACEMENT"

	// Approval protocol actions
	ActionCreateApprovalRequest = "CREATE_APPROVAL_REQUEST"
	ActionConsumeApprove        = "CONSUME_APPROVE_TOKEN"
	ActionConsumeReject         = "CONSUME_REJECT_TOKEN"

	// Workflow tracker actions
	ActionInitializeWorkflow = "INITIALIZE_WORKFLOW"
	ActionAdvanceStep        = "ADVANCE_WORKFLOW_STEP"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable: decision consumption has no authenticated user
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
