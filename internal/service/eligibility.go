package service

import (
	"context"
	"errors"

	"internhub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Eligibility is the blocked flag merged into workflow snapshots at read time
type Eligibility struct {
	Blocked     bool   `json:"blocked"`
	BlockReason string `json:"block_reason,omitempty"`
}

// EligibilityProvider answers whether a student may currently progress
// through a process type. Snapshots merge the answer at read time; it is
// never stored.
type EligibilityProvider interface {
	Check(ctx context.Context, studentID uuid.UUID, processType string) (Eligibility, error)
}

type placementEligibility struct {
	placementRepo repository.PlacementRepository
}

// NewPlacementEligibility returns the default provider: a student is blocked
// while there is no active placement for the process type.
func NewPlacementEligibility(placementRepo repository.PlacementRepository) EligibilityProvider {
	return &placementEligibility{placementRepo: placementRepo}
}

func (p *placementEligibility) Check(ctx context.Context, studentID uuid.UUID, processType string) (Eligibility, error) {
	_, err := p.placementRepo.ActiveByStudentAndType(ctx, studentID, processType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Eligibility{Blocked: true, BlockReason: "no active placement for this process"}, nil
		}
		return Eligibility{}, err
	}
	return Eligibility{}, nil
}
