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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateLogEntryRequest struct {
	WorkDate    string `json:"work_date" binding:"required"` // YYYY-MM-DD
	Activity    string `json:"activity" binding:"required"`
	HoursWorked string `json:"hours_worked" binding:"required"`
}

type UpdateLogEntryRequest struct {
	WorkDate    string `json:"work_date"`
	Activity    string `json:"activity"`
	HoursWorked string `json:"hours_worked"`
}

type LogEntryResponse struct {
	ID              string  `json:"id"`
	WorkDate        string  `json:"work_date"`
	Activity        string  `json:"activity"`
	HoursWorked     string  `json:"hours_worked"`
	Approved        bool    `json:"approved"`
	NeedsRevision   bool    `json:"needs_revision"`
	ApproverComment string  `json:"approver_comment,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// --- Interface ---

type LogEntryService interface {
	CreateLogEntry(ctx context.Context, studentID string, req CreateLogEntryRequest) (*LogEntryResponse, error)
	ListLogEntries(ctx context.Context, studentID string, page, limit int) ([]LogEntryResponse, int64, error)
	UpdateLogEntry(ctx context.Context, studentID string, id string, req UpdateLogEntryRequest) (*LogEntryResponse, error)
	DeleteLogEntry(ctx context.Context, studentID string, id string) error
}

type logEntryService struct {
	logRepo       repository.LogEntryRepository
	placementRepo repository.PlacementRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewLogEntryService(
	logRepo repository.LogEntryRepository,
	placementRepo repository.PlacementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) LogEntryService {
	return &logEntryService{
		logRepo:       logRepo,
		placementRepo: placementRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

// --- Implementation ---

func (s *logEntryService) CreateLogEntry(ctx context.Context, studentID string, req CreateLogEntryRequest) (*LogEntryResponse, error) {
	sid, err := uuid.Parse(studentID)
	if err != nil {
		return nil, fmt.Errorf("invalid student id: %w", err)
	}

	placement, err := s.placementRepo.ActiveByStudent(ctx, sid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("no active placement, log entries cannot be created")
		}
		return nil, fmt.Errorf("failed to resolve placement: %w", err)
	}

	workDate, err := time.Parse("2006-01-02", req.WorkDate)
	if err != nil {
		return nil, fmt.Errorf("invalid work date: %w", err)
	}

	hours, err := decimal.NewFromString(req.HoursWorked)
	if err != nil || hours.IsNegative() || hours.GreaterThan(decimal.NewFromInt(24)) {
		return nil, errors.New("hours_worked must be a number between 0 and 24")
	}

	entry := model.LogEntry{
		StudentID:   sid,
		PlacementID: placement.ID,
		WorkDate:    workDate,
		Activity:    req.Activity,
		HoursWorked: hours,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.logRepo.Create(txCtx, &entry); createErr != nil {
			return fmt.Errorf("failed to create log entry: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"work_date": req.WorkDate,
			"hours":     hours.StringFixed(2),
		})
		audit := model.AuditLog{
			UserID:   &sid,
			Action:   model.ActionCreateLogEntry,
			EntityID: entry.ID.String(),
			Details:  string(details),
		}
		if auditErr := s.auditRepo.Create(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toLogEntryResponse(entry), nil
}

func (s *logEntryService) ListLogEntries(ctx context.Context, studentID string, page, limit int) ([]LogEntryResponse, int64, error) {
	sid, err := uuid.Parse(studentID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid student id: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	entries, total, err := s.logRepo.ListByStudent(ctx, sid, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list log entries: %w", err)
	}

	res := make([]LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, *toLogEntryResponse(e))
	}
	return res, total, nil
}

func (s *logEntryService) UpdateLogEntry(ctx context.Context, studentID string, id string, req UpdateLogEntryRequest) (*LogEntryResponse, error) {
	entry, err := s.ownedUnapprovedEntry(ctx, studentID, id)
	if err != nil {
		return nil, err
	}

	if req.WorkDate != "" {
		workDate, parseErr := time.Parse("2006-01-02", req.WorkDate)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid work date: %w", parseErr)
		}
		entry.WorkDate = workDate
	}
	if req.Activity != "" {
		entry.Activity = req.Activity
	}
	if req.HoursWorked != "" {
		hours, parseErr := decimal.NewFromString(req.HoursWorked)
		if parseErr != nil || hours.IsNegative() || hours.GreaterThan(decimal.NewFromInt(24)) {
			return nil, errors.New("hours_worked must be a number between 0 and 24")
		}
		entry.HoursWorked = hours
	}

	// Editing a flagged entry clears the revision flag so it can be
	// re-submitted for approval.
	entry.NeedsRevision = false

	sid := entry.StudentID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updErr := s.logRepo.Update(txCtx, entry); updErr != nil {
			return fmt.Errorf("failed to update log entry: %w", updErr)
		}

		audit := model.AuditLog{
			UserID:   &sid,
			Action:   model.ActionUpdateLogEntry,
			EntityID: entry.ID.String(),
		}
		if auditErr := s.auditRepo.Create(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toLogEntryResponse(*entry), nil
}

func (s *logEntryService) DeleteLogEntry(ctx context.Context, studentID string, id string) error {
	entry, err := s.ownedUnapprovedEntry(ctx, studentID, id)
	if err != nil {
		return err
	}

	sid := entry.StudentID
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.logRepo.Delete(txCtx, entry.ID); delErr != nil {
			return fmt.Errorf("failed to delete log entry: %w", delErr)
		}

		audit := model.AuditLog{
			UserID:   &sid,
			Action:   model.ActionDeleteLogEntry,
			EntityID: entry.ID.String(),
		}
		if auditErr := s.auditRepo.Create(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
}

// ownedUnapprovedEntry loads an entry and enforces that it belongs to the
// caller and is still mutable (approved entries are frozen).
func (s *logEntryService) ownedUnapprovedEntry(ctx context.Context, studentID, id string) (*model.LogEntry, error) {
	sid, err := uuid.Parse(studentID)
	if err != nil {
		return nil, fmt.Errorf("invalid student id: %w", err)
	}
	entryID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid log entry id: %w", err)
	}

	entry, err := s.logRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, errors.New("log entry not found")
	}
	if entry.StudentID != sid {
		return nil, errors.New("log entry not found")
	}
	if entry.Approved {
		return nil, errors.New("approved log entries can no longer be modified")
	}
	return entry, nil
}

func toLogEntryResponse(e model.LogEntry) *LogEntryResponse {
	res := &LogEntryResponse{
		ID:              e.ID.String(),
		WorkDate:        e.WorkDate.Format("2006-01-02"),
		Activity:        e.Activity,
		HoursWorked:     e.HoursWorked.StringFixed(2),
		Approved:        e.Approved,
		NeedsRevision:   e.NeedsRevision,
		ApproverComment: e.ApproverComment,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
	if e.ApprovedAt != nil {
		formatted := e.ApprovedAt.Format(time.RFC3339)
		res.ApprovedAt = &formatted
	}
	return res
}
