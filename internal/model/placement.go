package model

import (
	"time"

	"github.com/google/uuid"
)

// Process type enum constants
const (
	ProcessTypeInternship = "INTERNSHIP"
	ProcessTypeProject    = "PROJECT"
)

// ValidProcessType reports whether t is a known process type
func ValidProcessType(t string) bool {
	return t == ProcessTypeInternship || t == ProcessTypeProject
}

// Placement binds a student to a company and an external supervisor for one
// process run. The supervisor has no account, only a name and an email the
// approval links are sent to.
type Placement struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StudentID       uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	Student         *User     `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	ProcessType     string    `gorm:"type:varchar(20);not null;index" json:"process_type"`
	CompanyName     string    `gorm:"type:varchar(255);not null" json:"company_name"`
	SupervisorName  string    `gorm:"type:varchar(255);not null" json:"supervisor_name"`
	SupervisorEmail string    `gorm:"type:varchar(255);not null" json:"supervisor_email"`
	StartDate       time.Time `gorm:"not null" json:"start_date"`
	EndDate         time.Time `gorm:"not null" json:"end_date"`
	Active          bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
