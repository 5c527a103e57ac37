package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"internhub/internal/model"
	"internhub/internal/notification"
	"internhub/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- in-memory fakes wired through the repository interfaces ---

type memTokenRepo struct {
	mu      sync.Mutex
	tokens  map[uuid.UUID]*model.ApprovalToken
	student *model.User
}

func newMemTokenRepo(student *model.User) *memTokenRepo {
	return &memTokenRepo{tokens: map[uuid.UUID]*model.ApprovalToken{}, student: student}
}

func (r *memTokenRepo) Create(ctx context.Context, token *model.ApprovalToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	stored := *token
	r.tokens[token.ID] = &stored
	return nil
}

func (r *memTokenRepo) FindByValue(ctx context.Context, raw string) (*model.ApprovalToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Token == raw {
			found := *t
			found.Student = r.student
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memTokenRepo) MarkExpired(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[id]; ok && t.Status == model.TokenStatusPending {
		t.Status = model.TokenStatusExpired
	}
	return nil
}

func (r *memTokenRepo) ConsumePending(ctx context.Context, id uuid.UUID, requestID uuid.UUID, comment string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[id]
	if !ok || t.Status != model.TokenStatusPending {
		return false, nil
	}
	for sid, sibling := range r.tokens {
		if sid != id && sibling.RequestID == requestID && sibling.Status == model.TokenStatusConsumed {
			return false, nil
		}
	}

	t.Status = model.TokenStatusConsumed
	t.Comment = comment
	consumedAt := at
	t.ConsumedAt = &consumedAt
	return true, nil
}

func (r *memTokenRepo) HasConsumedSibling(ctx context.Context, requestID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.RequestID == requestID && t.Status == model.TokenStatusConsumed {
			return true, nil
		}
	}
	return false, nil
}

func (r *memTokenRepo) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]model.ApprovalToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ApprovalToken
	for _, t := range r.tokens {
		if t.StudentID == studentID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTokenRepo) byValue(raw string) *model.ApprovalToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Token == raw {
			copied := *t
			return &copied
		}
	}
	return nil
}

type memLogRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*model.LogEntry
}

func newMemLogRepo(entries ...model.LogEntry) *memLogRepo {
	r := &memLogRepo{entries: map[uuid.UUID]*model.LogEntry{}}
	for i := range entries {
		e := entries[i]
		r.entries[e.ID] = &e
	}
	return r
}

func (r *memLogRepo) Create(ctx context.Context, entry *model.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	stored := *entry
	r.entries[entry.ID] = &stored
	return nil
}

func (r *memLogRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memLogRepo) ListByStudent(ctx context.Context, studentID uuid.UUID, page, limit int) ([]model.LogEntry, int64, error) {
	all, _ := r.FindUnapproved(ctx, studentID)
	return all, int64(len(all)), nil
}

func (r *memLogRepo) FindUnapproved(ctx context.Context, studentID uuid.UUID) ([]model.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.LogEntry
	for _, e := range r.entries {
		if e.StudentID == studentID && !e.Approved {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate.Before(out[j].WorkDate) })
	return out, nil
}

func (r *memLogRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.LogEntry
	for _, id := range ids {
		if e, ok := r.entries[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memLogRepo) Update(ctx context.Context, entry *model.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *entry
	r.entries[entry.ID] = &stored
	return nil
}

func (r *memLogRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

func (r *memLogRepo) ApplyDecision(ctx context.Context, ids []uuid.UUID, approve bool, comment string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		e, ok := r.entries[id]
		if !ok {
			continue
		}
		e.ApproverComment = comment
		if approve {
			e.Approved = true
			approvedAt := at
			e.ApprovedAt = &approvedAt
			e.NeedsRevision = false
		} else {
			e.NeedsRevision = true
		}
	}
	return nil
}

func (r *memLogRepo) get(id uuid.UUID) model.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.entries[id]
}

type memPlacementRepo struct {
	placement *model.Placement
}

func (r *memPlacementRepo) Create(ctx context.Context, p *model.Placement) error { return nil }
func (r *memPlacementRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Placement, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *memPlacementRepo) ActiveByStudent(ctx context.Context, studentID uuid.UUID) (*model.Placement, error) {
	if r.placement == nil || r.placement.StudentID != studentID {
		return nil, gorm.ErrRecordNotFound
	}
	return r.placement, nil
}
func (r *memPlacementRepo) ActiveByStudentAndType(ctx context.Context, studentID uuid.UUID, processType string) (*model.Placement, error) {
	if r.placement == nil || r.placement.StudentID != studentID || r.placement.ProcessType != processType {
		return nil, gorm.ErrRecordNotFound
	}
	return r.placement, nil
}
func (r *memPlacementRepo) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Placement, error) {
	return nil, nil
}
func (r *memPlacementRepo) Update(ctx context.Context, p *model.Placement) error { return nil }

type memUserRepo struct {
	user *model.User
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (r *memUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if r.user != nil && r.user.ID.String() == id {
		return r.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *memUserRepo) List(ctx context.Context, role string, page, limit int) ([]model.User, int64, error) {
	return nil, 0, nil
}
func (r *memUserRepo) Update(ctx context.Context, user *model.User) error { return nil }
func (r *memUserRepo) Delete(ctx context.Context, id string) error        { return nil }

type memAuditRepo struct {
	mu      sync.Mutex
	records []model.AuditLog
}

func (r *memAuditRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *entry)
	return nil
}

func (r *memAuditRepo) List(ctx context.Context, action string, page, limit int) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AuditLog{}, r.records...), int64(len(r.records)), nil
}

func (r *memAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Action)
	}
	return out
}

// passTx runs the transactional closure directly against the same fakes.
type passTx struct{}

func (passTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type stubGateway struct {
	mu       sync.Mutex
	requests []notification.ApprovalRequest
	results  []notification.DecisionResult
}

func (g *stubGateway) SendApprovalRequest(ctx context.Context, req notification.ApprovalRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return nil
}

func (g *stubGateway) SendDecisionResult(ctx context.Context, res notification.DecisionResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results = append(g.results, res)
	return nil
}

type stubWorkflow struct {
	mu         sync.Mutex
	recomputed int
}

func (w *stubWorkflow) Initialize(ctx context.Context, studentID string, processType string) (*WorkflowSnapshot, error) {
	return nil, nil
}
func (w *stubWorkflow) Advance(ctx context.Context, actorID, studentID, processType, stepKey string) (*WorkflowSnapshot, error) {
	return nil, nil
}
func (w *stubWorkflow) Snapshot(ctx context.Context, studentID string, processType string) (*WorkflowSnapshot, error) {
	return nil, nil
}
func (w *stubWorkflow) Recompute(ctx context.Context, studentID uuid.UUID, processType string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recomputed++
	return nil
}

func (w *stubWorkflow) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.recomputed
}

// --- fixture ---

type approvalFixture struct {
	svc       *approvalService
	student   *model.User
	tokenRepo *memTokenRepo
	logRepo   *memLogRepo
	auditRepo *memAuditRepo
	gateway   *stubGateway
	workflow  *stubWorkflow
	now       time.Time
}

func newApprovalFixture(t *testing.T, entries ...model.LogEntry) *approvalFixture {
	t.Helper()

	student := &model.User{
		ID:       uuid.New(),
		Username: "jpham",
		FullName: "Jordan Pham",
		Email:    "jordan@example.edu",
		Role:     model.RoleStudent,
	}
	for i := range entries {
		entries[i].StudentID = student.ID
	}

	placement := &model.Placement{
		ID:              uuid.New(),
		StudentID:       student.ID,
		ProcessType:     model.ProcessTypeInternship,
		CompanyName:     "Acme Corp",
		SupervisorName:  "Pat Vu",
		SupervisorEmail: "pat@acme.example",
		Active:          true,
	}

	f := &approvalFixture{
		student:   student,
		tokenRepo: newMemTokenRepo(student),
		logRepo:   newMemLogRepo(entries...),
		auditRepo: &memAuditRepo{},
		gateway:   &stubGateway{},
		workflow:  &stubWorkflow{},
		now:       time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
	}

	f.svc = &approvalService{
		tokenRepo:     f.tokenRepo,
		logRepo:       f.logRepo,
		placementRepo: &memPlacementRepo{placement: placement},
		userRepo:      &memUserRepo{user: student},
		auditRepo:     f.auditRepo,
		txManager:     passTx{},
		gateway:       f.gateway,
		workflow:      f.workflow,
		baseURL:       "https://internhub.example",
		now:           func() time.Time { return f.now },
	}
	return f
}

var _ repository.ApprovalTokenRepository = (*memTokenRepo)(nil)
var _ repository.LogEntryRepository = (*memLogRepo)(nil)
var _ repository.PlacementRepository = (*memPlacementRepo)(nil)
var _ repository.UserRepository = (*memUserRepo)(nil)
var _ repository.AuditRepository = (*memAuditRepo)(nil)
var _ repository.TransactionManager = passTx{}
var _ notification.Gateway = (*stubGateway)(nil)
var _ WorkflowService = (*stubWorkflow)(nil)

func unapprovedEntry(day time.Time) model.LogEntry {
	return model.LogEntry{
		ID:          uuid.New(),
		PlacementID: uuid.New(),
		WorkDate:    day,
		Activity:    "worked on the data pipeline",
		HoursWorked: decimal.NewFromFloat(7.5),
	}
}

// issueRequest creates a request and returns the raw approve and reject
// token values by digging them out of the fake store.
func (f *approvalFixture) issueRequest(t *testing.T, kind string) (receipt *ApprovalRequestReceipt, approveValue, rejectValue string) {
	t.Helper()

	receipt, err := f.svc.CreateApprovalRequest(context.Background(), f.student.ID.String(), CreateApprovalRequestDTO{RequestKind: kind})
	require.NoError(t, err)

	require.Len(t, f.gateway.requests, 1)
	mail := f.gateway.requests[len(f.gateway.requests)-1]
	approveValue = mail.ApproveURL[len("https://internhub.example/approvals/approve/"):]
	rejectValue = mail.RejectURL[len("https://internhub.example/approvals/reject/"):]
	return receipt, approveValue, rejectValue
}

// --- tests ---

func TestCreateApprovalRequest_MintsSiblingPair(t *testing.T) {
	f := newApprovalFixture(t,
		unapprovedEntry(dateUTC(2026, 3, 9)),
		unapprovedEntry(dateUTC(2026, 3, 10)),
	)

	receipt, approveValue, rejectValue := f.issueRequest(t, model.RequestKindWeekly)

	assert.Equal(t, model.RequestKindWeekly, receipt.RequestKind)
	assert.Equal(t, 2, receipt.RecordCount)
	assert.Equal(t, "Pat Vu", receipt.ApproverName)

	approveToken := f.tokenRepo.byValue(approveValue)
	rejectToken := f.tokenRepo.byValue(rejectValue)
	require.NotNil(t, approveToken)
	require.NotNil(t, rejectToken)

	assert.Equal(t, model.OutcomeApprove, approveToken.Outcome)
	assert.Equal(t, model.OutcomeReject, rejectToken.Outcome)
	assert.Equal(t, approveToken.RequestID, rejectToken.RequestID)
	assert.NotEqual(t, approveToken.Token, rejectToken.Token)
	assert.Equal(t, model.TokenStatusPending, approveToken.Status)
	assert.Equal(t, 2, approveToken.ScopeSize())
	assert.Equal(t, f.now.Add(7*24*time.Hour), approveToken.ExpiresAt)

	assert.Contains(t, f.auditRepo.actions(), model.ActionCreateApprovalRequest)
}

func TestCreateApprovalRequest_EmptyScope(t *testing.T) {
	f := newApprovalFixture(t, unapprovedEntry(dateUTC(2026, 1, 1)))

	// The only entry is far outside the default weekly window.
	_, err := f.svc.CreateApprovalRequest(context.Background(), f.student.ID.String(), CreateApprovalRequestDTO{RequestKind: model.RequestKindWeekly})

	assert.ErrorIs(t, err, ErrEmptyScope)
	assert.Empty(t, f.gateway.requests)
	assert.Empty(t, f.auditRepo.actions())
}

func TestCreateApprovalRequest_NoActivePlacement(t *testing.T) {
	f := newApprovalFixture(t, unapprovedEntry(dateUTC(2026, 3, 10)))
	f.svc.placementRepo = &memPlacementRepo{}

	_, err := f.svc.CreateApprovalRequest(context.Background(), f.student.ID.String(), CreateApprovalRequestDTO{RequestKind: model.RequestKindFull})

	assert.ErrorIs(t, err, ErrSupervisorNotFound)
}

func TestCreateApprovalRequest_PlacementWithoutSupervisorEmail(t *testing.T) {
	f := newApprovalFixture(t, unapprovedEntry(dateUTC(2026, 3, 10)))
	f.svc.placementRepo = &memPlacementRepo{placement: &model.Placement{
		ID:          uuid.New(),
		StudentID:   f.student.ID,
		ProcessType: model.ProcessTypeInternship,
		Active:      true,
	}}

	_, err := f.svc.CreateApprovalRequest(context.Background(), f.student.ID.String(), CreateApprovalRequestDTO{RequestKind: model.RequestKindFull})

	assert.ErrorIs(t, err, ErrSupervisorNotFound)
}

func TestConsumeDecision_ApproveAppliesToWholeScope(t *testing.T) {
	first := unapprovedEntry(dateUTC(2026, 3, 9))
	second := unapprovedEntry(dateUTC(2026, 3, 10))
	f := newApprovalFixture(t, first, second)

	_, approveValue, _ := f.issueRequest(t, model.RequestKindWeekly)

	view, err := f.svc.ConsumeDecision(context.Background(), approveValue, "")
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeApprove, view.Outcome)
	assert.Equal(t, "Jordan Pham", view.StudentName)
	assert.Equal(t, 2, view.RecordCount)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		entry := f.logRepo.get(id)
		assert.True(t, entry.Approved)
		assert.False(t, entry.NeedsRevision)
		require.NotNil(t, entry.ApprovedAt)
		assert.Equal(t, f.now, *entry.ApprovedAt)
	}

	assert.Equal(t, 1, f.workflow.count())
	assert.Contains(t, f.auditRepo.actions(), model.ActionConsumeApprove)
	require.Len(t, f.gateway.results, 1)
	assert.Equal(t, model.OutcomeApprove, f.gateway.results[0].Outcome)
}

func TestConsumeDecision_SiblingMutualExclusion(t *testing.T) {
	f := newApprovalFixture(t, unapprovedEntry(dateUTC(2026, 3, 10)))
	_, approveValue, rejectValue := f.issueRequest(t, model.RequestKindSingle)

	_, err := f.svc.ConsumeDecision(context.Background(), approveValue, "")
	require.NoError(t, err)

	_, err = f.svc.ConsumeDecision(context.Background(), rejectValue, "please fix the dates")
	assert.ErrorIs(t, err, ErrTokenAlreadyConsumed)

	// The reject path must not have touched the already approved entry.
	for id := range f.logRepo.entries {
		entry := f.logRepo.get(id)
		assert.True(t, entry.Approved)
		assert.False(t, entry.NeedsRevision)
	}
}

func TestConsumeDecision_SameTokenTwice(t *testing.T) {
	f := newApprovalFixture(t, unapprovedEntry(dateUTC(2026, 3, 10)))
	_, approveValue, _ := f.issueRequest(t, model.RequestKindSingle)

	_, err := f.svc.ConsumeDecision(context.Background(), approveValue, "")
	require.NoError(t, err)

	_, err = f.svc.ConsumeDecision(context.Background(), approveValue, "")
	assert.ErrorIs(t, err, ErrTokenAlreadyConsumed)
}

func TestConsumeDecision_ConcurrentDoubleClick(t *testing.T) {
	f := newApprovalFixture(t, unapprovedEntry(dateUTC(2026, 3, 10)))
	_, approveValue, _ := f.issueRequest(t, model.RequestKindSingle)

	const clicks = 8
	var wg sync.WaitGroup
	errs := make([]error, clicks)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ConsumeDecision(context.Background(), approveValue, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrTokenAlreadyConsumed)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.workflow.count())
}

func TestConsumeDecision_RejectRequiresComment(t *testing.T) {
	f := newApprovalFixture(t, unapprovedEntry(dateUTC(2026, 3, 10)))
	_, _, rejectValue := f.issueRequest(t, model.RequestKindSingle)

	_, err := f.svc.ConsumeDecision(context.Background(), rejectValue, "   ")
	assert.ErrorIs(t, err, ErrCommentRequired)

	// Nothing consumed, nothing mutated: the reject can still be submitted.
	token := f.tokenRepo.byValue(rejectValue)
	assert.Equal(t, model.TokenStatusPending, token.Status)
	for id := range f.logRepo.entries {
		assert.False(t, f.logRepo.get(id).NeedsRevision)
	}
}

func TestConsumeDecision_RejectFlagsRevision(t *testing.T) {
	entry := unapprovedEntry(dateUTC(2026, 3, 10))
	f := newApprovalFixture(t, entry)
	_, _, rejectValue := f.issueRequest(t, model.RequestKindSingle)

	view, err := f.svc.ConsumeDecision(context.Background(), rejectValue, "hours look inflated")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeReject, view.Outcome)
	assert.Equal(t, "hours look inflated", view.Comment)

	got := f.logRepo.get(entry.ID)
	assert.False(t, got.Approved)
	assert.True(t, got.NeedsRevision)
	assert.Equal(t, "hours look inflated", got.ApproverComment)
	assert.Nil(t, got.ApprovedAt)

	assert.Contains(t, f.auditRepo.actions(), model.ActionConsumeReject)
	require.Len(t, f.gateway.results, 1)
	assert.Equal(t, model.OutcomeReject, f.gateway.results[0].Outcome)
}

func TestConsumeDecision_ExpiredToken(t *testing.T) {
	entry := unapprovedEntry(dateUTC(2026, 3, 10))
	f := newApprovalFixture(t, entry)
	_, approveValue, _ := f.issueRequest(t, model.RequestKindSingle)

	f.now = f.now.Add(8 * 24 * time.Hour)

	_, err := f.svc.ConsumeDecision(context.Background(), approveValue, "")
	assert.ErrorIs(t, err, ErrTokenExpired)

	// Lazy expiry flipped the row, and the entry stayed untouched.
	token := f.tokenRepo.byValue(approveValue)
	assert.Equal(t, model.TokenStatusExpired, token.Status)
	assert.False(t, f.logRepo.get(entry.ID).Approved)
	assert.Equal(t, 0, f.workflow.count())
}

func TestConsumeDecision_UnknownToken(t *testing.T) {
	f := newApprovalFixture(t, unapprovedEntry(dateUTC(2026, 3, 10)))

	_, err := f.svc.ConsumeDecision(context.Background(), "not-a-real-token", "")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestPeekToken_ReportsEffectiveStatus(t *testing.T) {
	f := newApprovalFixture(t, unapprovedEntry(dateUTC(2026, 3, 10)))
	_, approveValue, rejectValue := f.issueRequest(t, model.RequestKindSingle)

	peek, err := f.svc.PeekToken(context.Background(), rejectValue)
	require.NoError(t, err)
	assert.Equal(t, model.TokenStatusPending, peek.Status)
	assert.Equal(t, model.OutcomeReject, peek.Outcome)
	assert.Equal(t, "Jordan Pham", peek.StudentName)
	assert.Equal(t, 1, peek.RecordCount)

	// Peeking never consumes.
	again, err := f.svc.PeekToken(context.Background(), rejectValue)
	require.NoError(t, err)
	assert.Equal(t, model.TokenStatusPending, again.Status)

	// After the sibling is consumed, the pending reject reads as CONSUMED.
	_, err = f.svc.ConsumeDecision(context.Background(), approveValue, "")
	require.NoError(t, err)

	peek, err = f.svc.PeekToken(context.Background(), rejectValue)
	require.NoError(t, err)
	assert.Equal(t, model.TokenStatusConsumed, peek.Status)
}

func TestPeekToken_ExpiredWithoutMutation(t *testing.T) {
	f := newApprovalFixture(t, unapprovedEntry(dateUTC(2026, 3, 10)))
	_, approveValue, _ := f.issueRequest(t, model.RequestKindSingle)

	f.now = f.now.Add(8 * 24 * time.Hour)

	peek, err := f.svc.PeekToken(context.Background(), approveValue)
	require.NoError(t, err)
	assert.Equal(t, model.TokenStatusExpired, peek.Status)

	// The stored row is still PENDING; only consumption flips it.
	token := f.tokenRepo.byValue(approveValue)
	assert.Equal(t, model.TokenStatusPending, token.Status)
}

func TestGetApprovalHistory_NoRawTokenValues(t *testing.T) {
	f := newApprovalFixture(t,
		unapprovedEntry(dateUTC(2026, 3, 9)),
		unapprovedEntry(dateUTC(2026, 3, 10)),
	)
	_, approveValue, _ := f.issueRequest(t, model.RequestKindWeekly)

	_, err := f.svc.ConsumeDecision(context.Background(), approveValue, "")
	require.NoError(t, err)

	history, err := f.svc.GetApprovalHistory(context.Background(), f.student.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 2)

	consumed := 0
	for _, h := range history {
		assert.Equal(t, 2, h.RecordCount)
		if h.Status == model.TokenStatusConsumed {
			consumed++
		}
	}
	assert.Equal(t, 1, consumed)
}

func TestGetApprovalHistory_PendingPastExpiryReadsExpired(t *testing.T) {
	f := newApprovalFixture(t, unapprovedEntry(dateUTC(2026, 3, 10)))
	f.issueRequest(t, model.RequestKindSingle)

	f.now = f.now.Add(8 * 24 * time.Hour)

	history, err := f.svc.GetApprovalHistory(context.Background(), f.student.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, h := range history {
		assert.Equal(t, model.TokenStatusExpired, h.Status)
	}
}
