package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LogEntry is one work-log record a student writes during a placement.
// The approval fields (Approved, NeedsRevision, ApproverComment, ApprovedAt)
// are written exclusively by the decision path of the approval protocol.
type LogEntry struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StudentID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"student_id"`
	Student         *User           `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	PlacementID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"placement_id"`
	WorkDate        time.Time       `gorm:"not null;index" json:"work_date"`
	Activity        string          `gorm:"type:text;not null" json:"activity"`
	HoursWorked     decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"hours_worked"`
	Approved        bool            `gorm:"not null;default:false;index" json:"approved"`
	NeedsRevision   bool            `gorm:"not null;default:false" json:"needs_revision"`
	ApproverComment string          `gorm:"type:text" json:"approver_comment"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
