package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Token outcome enum constants, fixed at minting time. Every approval
// request mints exactly two sibling tokens, one per outcome; a single token
// can never go both ways.
const (
	OutcomeApprove = "APPROVE"
	OutcomeReject  = "REJECT"
)

// Token status enum constants
const (
	TokenStatusPending  = "PENDING"
	TokenStatusConsumed = "CONSUMED"
	TokenStatusExpired  = "EXPIRED"
)

// Request kind enum constants: how the scope was selected, kept for history
const (
	RequestKindSingle   = "SINGLE"
	RequestKindSelected = "SELECTED"
	RequestKindWeekly   = "WEEKLY"
	RequestKindMonthly  = "MONTHLY"
	RequestKindFull     = "FULL"
)

// ApprovalToken is one half of an approval request: an unguessable,
// single-use, time-bounded secret mailed to a supervisor inside a link.
// RequestID pairs the two siblings so mutual exclusion (at most one of the
// pair ever reaches CONSUMED) is enforceable with a single atomic check.
// Rows are never deleted; the table is the approval audit trail.
type ApprovalToken struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"request_id"`
	Token           string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"` // raw secret, never serialized
	Outcome         string     `gorm:"type:varchar(10);not null" json:"outcome"`
	RequestKind     string     `gorm:"type:varchar(10);not null" json:"request_kind"`
	StudentID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"student_id"`
	Student         *User      `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	ProcessType     string     `gorm:"type:varchar(20);not null" json:"process_type"`
	ApproverName    string     `gorm:"type:varchar(255);not null" json:"approver_name"`
	ApproverEmail   string     `gorm:"type:varchar(255);not null" json:"approver_email"`
	ScopeIDs        string     `gorm:"type:jsonb;not null" json:"-"` // JSON array of log entry ids, immutable once issued
	Status          string     `gorm:"type:varchar(10);not null;default:'PENDING';index" json:"status"`
	Comment         string     `gorm:"type:text" json:"comment"`
	IssuedAt        time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt       time.Time  `gorm:"not null" json:"expires_at"`
	ConsumedAt      *time.Time `json:"consumed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SetScope serializes the scoped log entry ids into the jsonb column
func (t *ApprovalToken) SetScope(ids []uuid.UUID) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	t.ScopeIDs = string(raw)
	return nil
}

// Scope deserializes the scoped log entry ids from the jsonb column
func (t *ApprovalToken) Scope() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(t.ScopeIDs), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ScopeSize returns the number of scoped records, 0 on malformed payload
func (t *ApprovalToken) ScopeSize() int {
	ids, err := t.Scope()
	if err != nil {
		return 0
	}
	return len(ids)
}
