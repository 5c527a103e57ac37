package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"internhub/internal/model"
	"internhub/internal/repository"
	ws "internhub/internal/websocket"

	"github.com/google/uuid"
)

// --- DTOs ---

type WorkflowStepView struct {
	StepKey      string   `json:"step_key"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	StepOrder    int      `json:"step_order"`
	Required     bool     `json:"required"`
	Dependencies []string `json:"dependencies"`
	Status       string   `json:"status"`
	CompletedAt  *string  `json:"completed_at,omitempty"`
}

type WorkflowSnapshot struct {
	ProcessType     string             `json:"process_type"`
	CurrentStepKey  string             `json:"current_step_key,omitempty"`
	ProgressPercent int                `json:"progress_percent"`
	Blocked         bool               `json:"blocked"`
	BlockReason     string             `json:"block_reason,omitempty"`
	Steps           []WorkflowStepView `json:"steps"`
}

// --- Interface ---

// WorkflowService tracks per-student, per-process ordered step state.
// Exactly one step is IN_PROGRESS at a time: the first non-completed step in
// order whose dependencies are all completed.
type WorkflowService interface {
	Initialize(ctx context.Context, studentID string, processType string) (*WorkflowSnapshot, error)
	Advance(ctx context.Context, actorID string, studentID string, processType, stepKey string) (*WorkflowSnapshot, error)
	Snapshot(ctx context.Context, studentID string, processType string) (*WorkflowSnapshot, error)
	Recompute(ctx context.Context, studentID uuid.UUID, processType string) error
}

type workflowService struct {
	workflowRepo repository.WorkflowRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	eligibility  EligibilityProvider
	hub          *ws.Hub
	now          func() time.Time
}

func NewWorkflowService(
	workflowRepo repository.WorkflowRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	eligibility EligibilityProvider,
	hub *ws.Hub,
) WorkflowService {
	return &workflowService{
		workflowRepo: workflowRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		eligibility:  eligibility,
		hub:          hub,
		now:          time.Now,
	}
}

// --- Implementation ---

func (s *workflowService) Initialize(ctx context.Context, studentID string, processType string) (*WorkflowSnapshot, error) {
	sid, err := uuid.Parse(studentID)
	if err != nil {
		return nil, fmt.Errorf("invalid student id: %w", err)
	}
	if !model.ValidProcessType(processType) {
		return nil, fmt.Errorf("unknown process type: %s", processType)
	}

	defs, err := s.workflowRepo.DefinitionsByType(ctx, processType)
	if err != nil {
		return nil, fmt.Errorf("failed to load step definitions: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no step definitions authored for process type %s", processType)
	}

	existing, err := s.workflowRepo.StepsByStudent(ctx, sid, processType)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow state: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrAlreadyInitialized
	}

	firstKey := firstEligibleStep(defs, map[string]bool{})
	steps := make([]model.StudentWorkflowStep, 0, len(defs))
	for _, def := range defs {
		status := model.StepStatusWaiting
		if def.StepKey == firstKey {
			status = model.StepStatusInProgress
		}
		steps = append(steps, model.StudentWorkflowStep{
			StudentID:   sid,
			ProcessType: processType,
			StepKey:     def.StepKey,
			Status:      status,
		})
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.workflowRepo.CreateSteps(txCtx, steps); createErr != nil {
			return fmt.Errorf("failed to create workflow steps: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"process_type": processType,
			"step_count":   len(steps),
		})
		audit := model.AuditLog{
			UserID:     &sid,
			Action:     model.ActionInitializeWorkflow,
			EntityID:   sid.String(),
			EntityName: processType,
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

	return s.Snapshot(ctx, studentID, processType)
}

func (s *workflowService) Advance(ctx context.Context, actorID string, studentID string, processType, stepKey string) (*WorkflowSnapshot, error) {
	sid, err := uuid.Parse(studentID)
	if err != nil {
		return nil, fmt.Errorf("invalid student id: %w", err)
	}

	defs, steps, err := s.loadState(ctx, sid, processType)
	if err != nil {
		return nil, err
	}

	var target *model.WorkflowStepDefinition
	for i := range defs {
		if defs[i].StepKey == stepKey {
			target = &defs[i]
			break
		}
	}
	if target == nil {
		return nil, ErrUnknownStep
	}

	current, ok := steps[stepKey]
	if !ok {
		return nil, fmt.Errorf("workflow not initialized for student %s", studentID)
	}

	// Re-advancing a completed step is a no-op success so the decision path
	// can retry safely.
	if current.Status == model.StepStatusCompleted {
		return s.Snapshot(ctx, studentID, processType)
	}

	deps, err := target.DependencyKeys()
	if err != nil {
		return nil, fmt.Errorf("malformed dependencies for step %s: %w", stepKey, err)
	}
	for _, dep := range deps {
		if st, ok := steps[dep]; !ok || st.Status != model.StepStatusCompleted {
			return nil, ErrDependenciesUnmet
		}
	}

	now := s.now()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updErr := s.workflowRepo.UpdateStepStatus(txCtx, current.ID, model.StepStatusCompleted, &now); updErr != nil {
			return fmt.Errorf("failed to complete step: %w", updErr)
		}
		current.Status = model.StepStatusCompleted

		if normErr := s.normalize(txCtx, defs, steps); normErr != nil {
			return normErr
		}

		var actor *uuid.UUID
		if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
			actor = &parsed
		}
		details, _ := json.Marshal(map[string]interface{}{
			"process_type": processType,
			"step_key":     stepKey,
			"student_id":   studentID,
		})
		audit := model.AuditLog{
			UserID:     actor,
			Action:     model.ActionAdvanceStep,
			EntityID:   sid.String(),
			EntityName: stepKey,
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

	if s.hub != nil {
		s.hub.Publish(ws.EventStepAdvanced, map[string]string{
			"student_id":   studentID,
			"process_type": processType,
			"step_key":     stepKey,
		})
	}

	return s.Snapshot(ctx, studentID, processType)
}

func (s *workflowService) Snapshot(ctx context.Context, studentID string, processType string) (*WorkflowSnapshot, error) {
	sid, err := uuid.Parse(studentID)
	if err != nil {
		return nil, fmt.Errorf("invalid student id: %w", err)
	}

	defs, steps, err := s.loadState(ctx, sid, processType)
	if err != nil {
		return nil, err
	}

	snapshot := &WorkflowSnapshot{ProcessType: processType, Steps: make([]WorkflowStepView, 0, len(defs))}
	completed := 0
	for _, def := range defs {
		deps, depErr := def.DependencyKeys()
		if depErr != nil {
			return nil, fmt.Errorf("malformed dependencies for step %s: %w", def.StepKey, depErr)
		}

		view := WorkflowStepView{
			StepKey:      def.StepKey,
			Title:        def.Title,
			Description:  def.DescriptionTemplate,
			StepOrder:    def.StepOrder,
			Required:     def.Required,
			Dependencies: deps,
			Status:       model.StepStatusWaiting,
		}
		if st, ok := steps[def.StepKey]; ok {
			view.Status = st.Status
			if st.CompletedAt != nil {
				formatted := st.CompletedAt.Format(time.RFC3339)
				view.CompletedAt = &formatted
			}
		}
		if view.Status == model.StepStatusCompleted {
			completed++
		}
		if view.Status == model.StepStatusInProgress {
			snapshot.CurrentStepKey = def.StepKey
		}
		snapshot.Steps = append(snapshot.Steps, view)
	}

	if len(defs) > 0 {
		snapshot.ProgressPercent = int(math.Round(float64(completed) / float64(len(defs)) * 100))
	}

	eligibility, err := s.eligibility.Check(ctx, sid, processType)
	if err != nil {
		return nil, fmt.Errorf("eligibility check failed: %w", err)
	}
	snapshot.Blocked = eligibility.Blocked
	snapshot.BlockReason = eligibility.BlockReason

	return snapshot, nil
}

// Recompute re-derives the single IN_PROGRESS step after external progress
// (e.g. a consumed approval decision). Safe to call inside the decision
// transaction; a no-op when the workflow was never initialized.
func (s *workflowService) Recompute(ctx context.Context, studentID uuid.UUID, processType string) error {
	defs, steps, err := s.loadState(ctx, studentID, processType)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}
	return s.normalize(ctx, defs, steps)
}

// --- helpers ---

func (s *workflowService) loadState(ctx context.Context, studentID uuid.UUID, processType string) ([]model.WorkflowStepDefinition, map[string]*model.StudentWorkflowStep, error) {
	if !model.ValidProcessType(processType) {
		return nil, nil, fmt.Errorf("unknown process type: %s", processType)
	}

	defs, err := s.workflowRepo.DefinitionsByType(ctx, processType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load step definitions: %w", err)
	}

	rows, err := s.workflowRepo.StepsByStudent(ctx, studentID, processType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load workflow state: %w", err)
	}

	steps := make(map[string]*model.StudentWorkflowStep, len(rows))
	for i := range rows {
		steps[rows[i].StepKey] = &rows[i]
	}
	return defs, steps, nil
}

// normalize makes the persisted state match the invariant: the first
// non-completed step in order with all dependencies completed is IN_PROGRESS,
// every other non-completed step is WAITING.
func (s *workflowService) normalize(ctx context.Context, defs []model.WorkflowStepDefinition, steps map[string]*model.StudentWorkflowStep) error {
	done := make(map[string]bool, len(steps))
	for key, st := range steps {
		if st.Status == model.StepStatusCompleted {
			done[key] = true
		}
	}

	nextKey := firstEligibleStep(defs, done)
	for _, def := range defs {
		st, ok := steps[def.StepKey]
		if !ok || st.Status == model.StepStatusCompleted {
			continue
		}
		desired := model.StepStatusWaiting
		if def.StepKey == nextKey {
			desired = model.StepStatusInProgress
		}
		if st.Status == desired {
			continue
		}
		if err := s.workflowRepo.UpdateStepStatus(ctx, st.ID, desired, nil); err != nil {
			return fmt.Errorf("failed to update step %s: %w", def.StepKey, err)
		}
		st.Status = desired
	}
	return nil
}

// firstEligibleStep returns the key of the lowest-order step that is not
// completed and whose dependencies are all in done, or "" when none qualify.
func firstEligibleStep(defs []model.WorkflowStepDefinition, done map[string]bool) string {
	for _, def := range defs {
		if done[def.StepKey] {
			continue
		}
		deps, err := def.DependencyKeys()
		if err != nil {
			continue
		}
		satisfied := true
		for _, dep := range deps {
			if !done[dep] {
				satisfied = false
				break
			}
		}
		if satisfied {
			return def.StepKey
		}
	}
	return ""
}
