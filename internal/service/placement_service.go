package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"internhub/internal/model"
	"internhub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreatePlacementRequest struct {
	StudentID       string `json:"student_id" binding:"required"`
	ProcessType     string `json:"process_type" binding:"required,oneof=INTERNSHIP PROJECT"`
	CompanyName     string `json:"company_name" binding:"required"`
	SupervisorName  string `json:"supervisor_name" binding:"required"`
	SupervisorEmail string `json:"supervisor_email" binding:"required,email"`
	StartDate       string `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate         string `json:"end_date" binding:"required"`
}

type PlacementResponse struct {
	ID              string `json:"id"`
	StudentID       string `json:"student_id"`
	ProcessType     string `json:"process_type"`
	CompanyName     string `json:"company_name"`
	SupervisorName  string `json:"supervisor_name"`
	SupervisorEmail string `json:"supervisor_email"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	Active          bool   `json:"active"`
}

// --- Interface ---

type PlacementService interface {
	CreatePlacement(ctx context.Context, actorID string, req CreatePlacementRequest) (*PlacementResponse, error)
	ListByStudent(ctx context.Context, studentID string) ([]PlacementResponse, error)
	ClosePlacement(ctx context.Context, actorID string, id string) error
}

type placementService struct {
	placementRepo repository.PlacementRepository
	userRepo      repository.UserRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewPlacementService(
	placementRepo repository.PlacementRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) PlacementService {
	return &placementService{
		placementRepo: placementRepo,
		userRepo:      userRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

// --- Implementation ---

func (s *placementService) CreatePlacement(ctx context.Context, actorID string, req CreatePlacementRequest) (*PlacementResponse, error) {
	sid, err := uuid.Parse(req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("invalid student id: %w", err)
	}

	student, err := s.userRepo.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, errors.New("student not found")
	}
	if student.Role != model.RoleStudent {
		return nil, errors.New("placements can only be created for students")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}
	if end.Before(start) {
		return nil, errors.New("end date must not be before start date")
	}

	// One active placement per (student, process type); a new one supersedes.
	if existing, findErr := s.placementRepo.ActiveByStudentAndType(ctx, sid, req.ProcessType); findErr == nil {
		existing.Active = false
		if updErr := s.placementRepo.Update(ctx, existing); updErr != nil {
			return nil, fmt.Errorf("failed to close previous placement: %w", updErr)
		}
	} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing placement: %w", findErr)
	}

	placement := model.Placement{
		StudentID:       sid,
		ProcessType:     req.ProcessType,
		CompanyName:     req.CompanyName,
		SupervisorName:  req.SupervisorName,
		SupervisorEmail: req.SupervisorEmail,
		StartDate:       start,
		EndDate:         end,
		Active:          true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.placementRepo.Create(txCtx, &placement); createErr != nil {
			return fmt.Errorf("failed to create placement: %w", createErr)
		}

		var actor *uuid.UUID
		if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
			actor = &parsed
		}
		details, _ := json.Marshal(map[string]interface{}{
			"student_id":   req.StudentID,
			"process_type": req.ProcessType,
			"company":      req.CompanyName,
		})
		audit := model.AuditLog{
			UserID:     actor,
			Action:     model.ActionCreatePlacement,
			EntityID:   placement.ID.String(),
			EntityName: req.CompanyName,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Create(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toPlacementResponse(placement), nil
}

func (s *placementService) ListByStudent(ctx context.Context, studentID string) ([]PlacementResponse, error) {
	sid, err := uuid.Parse(studentID)
	if err != nil {
		return nil, fmt.Errorf("invalid student id: %w", err)
	}

	placements, err := s.placementRepo.ListByStudent(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("failed to list placements: %w", err)
	}

	res := make([]PlacementResponse, 0, len(placements))
	for _, p := range placements {
		res = append(res, *toPlacementResponse(p))
	}
	return res, nil
}

func (s *placementService) ClosePlacement(ctx context.Context, actorID string, id string) error {
	placementID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid placement id: %w", err)
	}

	placement, err := s.placementRepo.GetByID(ctx, placementID)
	if err != nil {
		return errors.New("placement not found")
	}
	if !placement.Active {
		return nil
	}

	placement.Active = false
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updErr := s.placementRepo.Update(txCtx, placement); updErr != nil {
			return fmt.Errorf("failed to close placement: %w", updErr)
		}

		var actor *uuid.UUID
		if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
			actor = &parsed
		}
		audit := model.AuditLog{
			UserID:     actor,
			Action:     model.ActionClosePlacement,
			EntityID:   placement.ID.String(),
			EntityName: placement.CompanyName,
		}
		if auditErr := s.auditRepo.Create(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
}

func toPlacementResponse(p model.Placement) *PlacementResponse {
	return &PlacementResponse{
		ID:              p.ID.String(),
		StudentID:       p.StudentID.String(),
		ProcessType:     p.ProcessType,
		CompanyName:     p.CompanyName,
		SupervisorName:  p.SupervisorName,
		SupervisorEmail: p.SupervisorEmail,
		StartDate:       p.StartDate.Format("2006-01-02"),
		EndDate:         p.EndDate.Format("2006-01-02"),
		Active:          p.Active,
	}
}
