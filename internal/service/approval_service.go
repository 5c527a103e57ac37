package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"internhub/internal/model"
	"internhub/internal/notification"
	"internhub/internal/repository"
	ws "internhub/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// Both sibling tokens of a request share this fixed validity window.
	tokenTTL = 7 * 24 * time.Hour

	historyLimit = 50
)

// --- DTOs ---

type CreateApprovalRequestDTO struct {
	RequestKind string   `json:"request_kind" binding:"required,oneof=SINGLE SELECTED WEEKLY MONTHLY FULL"`
	EntryIDs    []string `json:"entry_ids"`
	From        string   `json:"from"` // YYYY-MM-DD, optional for WEEKLY/MONTHLY
	To          string   `json:"to"`
}

// ApprovalRequestReceipt is returned to the student. It identifies the
// request and its expiry but never carries the raw token values; those only
// ever travel inside the emailed links.
type ApprovalRequestReceipt struct {
	RequestID        string `json:"request_id"`
	RequestKind      string `json:"request_kind"`
	RecordCount      int    `json:"record_count"`
	ApproverName     string `json:"approver_name"`
	ApproveExpiresAt string `json:"approve_expires_at"`
	RejectExpiresAt  string `json:"reject_expires_at"`
}

// DecisionView renders the confirmation page after a consumed decision.
// It exposes nothing beyond what the token's scope already authorized.
type DecisionView struct {
	Outcome     string `json:"outcome"`
	StudentName string `json:"student_name"`
	RequestKind string `json:"request_kind"`
	RecordCount int    `json:"record_count"`
	Comment     string `json:"comment,omitempty"`
	ConsumedAt  string `json:"consumed_at"`
}

// TokenPeek is the read-only projection the GET landing pages use; reading
// it never mutates anything.
type TokenPeek struct {
	Outcome     string `json:"outcome"`
	StudentName string `json:"student_name"`
	RequestKind string `json:"request_kind"`
	RecordCount int    `json:"record_count"`
	Status      string `json:"status"`
	ExpiresAt   string `json:"expires_at"`
}

type ApprovalHistoryEntry struct {
	RequestID   string `json:"request_id"`
	Outcome     string `json:"outcome"`
	RequestKind string `json:"request_kind"`
	Status      string `json:"status"`
	RecordCount int    `json:"record_count"`
	Comment     string `json:"comment,omitempty"`
	IssuedAt    string `json:"issued_at"`
	ExpiresAt   string `json:"expires_at"`
	ConsumedAt  string `json:"consumed_at,omitempty"`
}

// --- Interface ---

// ApprovalService implements the credential-less approval protocol: it mints
// sibling approve/reject tokens over a resolved scope of log entries, and
// turns a clicked link into one atomic decision over all of them.
type ApprovalService interface {
	CreateApprovalRequest(ctx context.Context, studentID string, req CreateApprovalRequestDTO) (*ApprovalRequestReceipt, error)
	ConsumeDecision(ctx context.Context, tokenValue, comment string) (*DecisionView, error)
	PeekToken(ctx context.Context, tokenValue string) (*TokenPeek, error)
	GetApprovalHistory(ctx context.Context, studentID string) ([]ApprovalHistoryEntry, error)
}

type approvalService struct {
	tokenRepo     repository.ApprovalTokenRepository
	logRepo       repository.LogEntryRepository
	placementRepo repository.PlacementRepository
	userRepo      repository.UserRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	gateway       notification.Gateway
	workflow      WorkflowService
	hub           *ws.Hub
	baseURL       string
	now           func() time.Time
}

func NewApprovalService(
	tokenRepo repository.ApprovalTokenRepository,
	logRepo repository.LogEntryRepository,
	placementRepo repository.PlacementRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	gateway notification.Gateway,
	workflow WorkflowService,
	hub *ws.Hub,
	baseURL string,
) ApprovalService {
	return &approvalService{
		tokenRepo:     tokenRepo,
		logRepo:       logRepo,
		placementRepo: placementRepo,
		userRepo:      userRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		gateway:       gateway,
		workflow:      workflow,
		hub:           hub,
		baseURL:       strings.TrimRight(baseURL, "/"),
		now:           time.Now,
	}
}

// --- Issuer ---

func (s *approvalService) CreateApprovalRequest(ctx context.Context, studentID string, req CreateApprovalRequestDTO) (*ApprovalRequestReceipt, error) {
	sid, err := uuid.Parse(studentID)
	if err != nil {
		return nil, fmt.Errorf("invalid student id: %w", err)
	}

	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("student not found: %w", err)
	}

	placement, err := s.placementRepo.ActiveByStudent(ctx, sid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupervisorNotFound
		}
		return nil, fmt.Errorf("failed to resolve placement: %w", err)
	}
	if placement.SupervisorEmail == "" {
		return nil, ErrSupervisorNotFound
	}

	entries, err := s.logRepo.FindUnapproved(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("failed to load unapproved entries: %w", err)
	}

	selector, err := parseSelector(req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	scope := ResolveScope(entries, req.RequestKind, selector, now)
	if len(scope) == 0 {
		return nil, ErrEmptyScope
	}

	scopeIDs := make([]uuid.UUID, 0, len(scope))
	for _, e := range scope {
		scopeIDs = append(scopeIDs, e.ID)
	}

	requestID := uuid.New()
	expiresAt := now.Add(tokenTTL)

	approveToken, err := s.buildToken(requestID, model.OutcomeApprove, req.RequestKind, placement, sid, scopeIDs, now, expiresAt)
	if err != nil {
		return nil, err
	}
	rejectToken, err := s.buildToken(requestID, model.OutcomeReject, req.RequestKind, placement, sid, scopeIDs, now, expiresAt)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.tokenRepo.Create(txCtx, approveToken); createErr != nil {
			return fmt.Errorf("failed to store approve token: %w", createErr)
		}
		if createErr := s.tokenRepo.Create(txCtx, rejectToken); createErr != nil {
			return fmt.Errorf("failed to store reject token: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"request_kind": req.RequestKind,
			"record_count": len(scopeIDs),
			"approver":     placement.SupervisorEmail,
		})
		audit := model.AuditLog{
			UserID:     &sid,
			Action:     model.ActionCreateApprovalRequest,
			EntityID:   requestID.String(),
			EntityName: req.RequestKind,
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

	// Delivery is best-effort once the tokens are committed; the student can
	// re-issue a request if the mail never arrives.
	mail := notification.ApprovalRequest{
		ApproverName:  placement.SupervisorName,
		ApproverEmail: placement.SupervisorEmail,
		StudentName:   student.FullName,
		RequestKind:   req.RequestKind,
		ApproveURL:    s.baseURL + "/approvals/approve/" + approveToken.Token,
		RejectURL:     s.baseURL + "/approvals/reject/" + rejectToken.Token,
		ExpiresAt:     expiresAt.Format("2006-01-02 15:04"),
		Records:       summarizeRecords(scope),
	}
	if sendErr := s.gateway.SendApprovalRequest(ctx, mail); sendErr != nil {
		log.Printf("WARNING: failed to send approval request mail: %v", sendErr)
	}

	if s.hub != nil {
		s.hub.Publish(ws.EventApprovalRequested, map[string]interface{}{
			"request_id":   requestID.String(),
			"student_id":   studentID,
			"request_kind": req.RequestKind,
			"record_count": len(scopeIDs),
		})
	}

	return &ApprovalRequestReceipt{
		RequestID:        requestID.String(),
		RequestKind:      req.RequestKind,
		RecordCount:      len(scopeIDs),
		ApproverName:     placement.SupervisorName,
		ApproveExpiresAt: expiresAt.Format(time.RFC3339),
		RejectExpiresAt:  expiresAt.Format(time.RFC3339),
	}, nil
}

func (s *approvalService) buildToken(requestID uuid.UUID, outcome, requestKind string, placement *model.Placement, studentID uuid.UUID, scopeIDs []uuid.UUID, issuedAt, expiresAt time.Time) (*model.ApprovalToken, error) {
	value, err := newTokenValue()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	token := &model.ApprovalToken{
		RequestID:     requestID,
		Token:         value,
		Outcome:       outcome,
		RequestKind:   requestKind,
		StudentID:     studentID,
		ProcessType:   placement.ProcessType,
		ApproverName:  placement.SupervisorName,
		ApproverEmail: placement.SupervisorEmail,
		Status:        model.TokenStatusPending,
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
	}
	if err := token.SetScope(scopeIDs); err != nil {
		return nil, fmt.Errorf("failed to serialize scope: %w", err)
	}
	return token, nil
}

// --- Decision Applier ---

func (s *approvalService) ConsumeDecision(ctx context.Context, tokenValue, comment string) (*DecisionView, error) {
	token, err := s.tokenRepo.FindByValue(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	now := s.now()
	switch token.Status {
	case model.TokenStatusConsumed:
		return nil, ErrTokenAlreadyConsumed
	case model.TokenStatusExpired:
		return nil, ErrTokenExpired
	}
	if now.After(token.ExpiresAt) {
		// Lazy expiry: flip on read instead of running a background sweep.
		if markErr := s.tokenRepo.MarkExpired(ctx, token.ID); markErr != nil {
			log.Printf("WARNING: failed to mark token expired: %v", markErr)
		}
		return nil, ErrTokenExpired
	}

	comment = strings.TrimSpace(comment)
	if token.Outcome == model.OutcomeReject && comment == "" {
		return nil, ErrCommentRequired
	}

	scopeIDs, err := token.Scope()
	if err != nil {
		return nil, fmt.Errorf("malformed token scope: %w", err)
	}

	approve := token.Outcome == model.OutcomeApprove
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		claimed, claimErr := s.tokenRepo.ConsumePending(txCtx, token.ID, token.RequestID, comment, now)
		if claimErr != nil {
			return fmt.Errorf("failed to claim token: %w", claimErr)
		}
		// Either a double submission of this token or its sibling won first.
		if !claimed {
			return ErrTokenAlreadyConsumed
		}

		if applyErr := s.logRepo.ApplyDecision(txCtx, scopeIDs, approve, comment, now); applyErr != nil {
			return fmt.Errorf("failed to apply decision to log entries: %w", applyErr)
		}

		action := model.ActionConsumeApprove
		if !approve {
			action = model.ActionConsumeReject
		}
		details, _ := json.Marshal(map[string]interface{}{
			"request_kind": token.RequestKind,
			"record_count": len(scopeIDs),
			"student_id":   token.StudentID.String(),
		})
		audit := model.AuditLog{
			Action:     action,
			EntityID:   token.RequestID.String(),
			EntityName: token.RequestKind,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Create(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		if wfErr := s.workflow.Recompute(txCtx, token.StudentID, token.ProcessType); wfErr != nil {
			return fmt.Errorf("failed to recompute workflow: %w", wfErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyDecision(ctx, token, scopeIDs, comment)

	studentName := ""
	if token.Student != nil {
		studentName = token.Student.FullName
	}
	return &DecisionView{
		Outcome:     token.Outcome,
		StudentName: studentName,
		RequestKind: token.RequestKind,
		RecordCount: len(scopeIDs),
		Comment:     comment,
		ConsumedAt:  now.Format(time.RFC3339),
	}, nil
}

// notifyDecision sends the result mail and the dashboard event after the
// decision committed. Failures here are warnings: the decision is the source
// of truth and must not be rolled back by a broken mail relay.
func (s *approvalService) notifyDecision(ctx context.Context, token *model.ApprovalToken, scopeIDs []uuid.UUID, comment string) {
	if token.Student == nil {
		log.Printf("WARNING: decision consumed but student relation missing, skipping result mail")
		return
	}

	var sample *notification.RecordSummary
	if entries, err := s.logRepo.FindByIDs(ctx, scopeIDs[:1]); err == nil && len(entries) > 0 {
		summaries := summarizeRecords(entries[:1])
		sample = &summaries[0]
	}

	res := notification.DecisionResult{
		StudentName:  token.Student.FullName,
		StudentEmail: token.Student.Email,
		Outcome:      token.Outcome,
		Comment:      comment,
		RecordCount:  len(scopeIDs),
		Sample:       sample,
	}
	if err := s.gateway.SendDecisionResult(ctx, res); err != nil {
		log.Printf("WARNING: failed to send decision result mail: %v", err)
	}

	if s.hub != nil {
		s.hub.Publish(ws.EventDecisionConsumed, map[string]interface{}{
			"request_id":   token.RequestID.String(),
			"student_id":   token.StudentID.String(),
			"outcome":      token.Outcome,
			"record_count": len(scopeIDs),
		})
	}
}

// PeekToken is the read-only lookup behind the GET landing pages. It reports
// the effective status without claiming the token, so rendering a reject
// comment form never mutates state.
func (s *approvalService) PeekToken(ctx context.Context, tokenValue string) (*TokenPeek, error) {
	token, err := s.tokenRepo.FindByValue(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	status := token.Status
	if status == model.TokenStatusPending {
		if s.now().After(token.ExpiresAt) {
			status = model.TokenStatusExpired
		} else if consumed, sibErr := s.tokenRepo.HasConsumedSibling(ctx, token.RequestID); sibErr == nil && consumed {
			status = model.TokenStatusConsumed
		}
	}

	studentName := ""
	if token.Student != nil {
		studentName = token.Student.FullName
	}
	return &TokenPeek{
		Outcome:     token.Outcome,
		StudentName: studentName,
		RequestKind: token.RequestKind,
		RecordCount: token.ScopeSize(),
		Status:      status,
		ExpiresAt:   token.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// --- History ---

func (s *approvalService) GetApprovalHistory(ctx context.Context, studentID string) ([]ApprovalHistoryEntry, error) {
	sid, err := uuid.Parse(studentID)
	if err != nil {
		return nil, fmt.Errorf("invalid student id: %w", err)
	}

	tokens, err := s.tokenRepo.ListByStudent(ctx, sid, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval history: %w", err)
	}

	now := s.now()
	history := make([]ApprovalHistoryEntry, 0, len(tokens))
	for _, t := range tokens {
		status := t.Status
		if status == model.TokenStatusPending && now.After(t.ExpiresAt) {
			status = model.TokenStatusExpired
		}

		entry := ApprovalHistoryEntry{
			RequestID:   t.RequestID.String(),
			Outcome:     t.Outcome,
			RequestKind: t.RequestKind,
			Status:      status,
			RecordCount: t.ScopeSize(),
			Comment:     t.Comment,
			IssuedAt:    t.IssuedAt.Format(time.RFC3339),
			ExpiresAt:   t.ExpiresAt.Format(time.RFC3339),
		}
		if t.ConsumedAt != nil {
			entry.ConsumedAt = t.ConsumedAt.Format(time.RFC3339)
		}
		history = append(history, entry)
	}
	return history, nil
}

// --- Helpers ---

// newTokenValue returns 32 bytes of crypto/rand entropy, base64url encoded
func newTokenValue() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func parseSelector(req CreateApprovalRequestDTO) (ScopeSelector, error) {
	var sel ScopeSelector

	for _, raw := range req.EntryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return sel, fmt.Errorf("invalid entry id %q: %w", raw, err)
		}
		sel.EntryIDs = append(sel.EntryIDs, id)
	}

	if req.From != "" && req.To != "" {
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return sel, fmt.Errorf("invalid from date: %w", err)
		}
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return sel, fmt.Errorf("invalid to date: %w", err)
		}
		sel.From = &from
		sel.To = &to
	}

	return sel, nil
}

func summarizeRecords(entries []model.LogEntry) []notification.RecordSummary {
	summaries := make([]notification.RecordSummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, notification.RecordSummary{
			WorkDate: e.WorkDate.Format("2006-01-02"),
			Activity: e.Activity,
			Hours:    e.HoursWorked.StringFixed(1),
		})
	}
	return summaries
}
