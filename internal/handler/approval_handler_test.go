package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"internhub/internal/model"
	"internhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type consumeCall struct {
	token   string
	comment string
}

// stubApprovalService scripts the decision endpoints without a database.
type stubApprovalService struct {
	peeks    map[string]*service.TokenPeek
	peekErr  error
	view     *service.DecisionView
	viewErr  error
	consumed []consumeCall
}

func (s *stubApprovalService) CreateApprovalRequest(ctx context.Context, studentID string, req service.CreateApprovalRequestDTO) (*service.ApprovalRequestReceipt, error) {
	return nil, nil
}

func (s *stubApprovalService) ConsumeDecision(ctx context.Context, tokenValue, comment string) (*service.DecisionView, error) {
	s.consumed = append(s.consumed, consumeCall{token: tokenValue, comment: comment})
	return s.view, s.viewErr
}

func (s *stubApprovalService) PeekToken(ctx context.Context, tokenValue string) (*service.TokenPeek, error) {
	if s.peekErr != nil {
		return nil, s.peekErr
	}
	if peek, ok := s.peeks[tokenValue]; ok {
		return peek, nil
	}
	return nil, service.ErrTokenNotFound
}

func (s *stubApprovalService) GetApprovalHistory(ctx context.Context, studentID string) ([]service.ApprovalHistoryEntry, error) {
	return nil, nil
}

var _ service.ApprovalService = (*stubApprovalService)(nil)

func decisionRouter(stub *stubApprovalService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewApprovalHandler(stub).RegisterRoutes(router.Group(""))
	return router
}

func pendingPeek(outcome string) *service.TokenPeek {
	return &service.TokenPeek{
		Outcome:     outcome,
		StudentName: "Jordan Pham",
		RequestKind: model.RequestKindWeekly,
		RecordCount: 3,
		Status:      model.TokenStatusPending,
	}
}

func TestDecisionLanding_ApproveConsumesImmediately(t *testing.T) {
	stub := &stubApprovalService{
		peeks: map[string]*service.TokenPeek{"tok-approve": pendingPeek(model.OutcomeApprove)},
		view: &service.DecisionView{
			Outcome:     model.OutcomeApprove,
			StudentName: "Jordan Pham",
			RecordCount: 3,
		},
	}
	router := decisionRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/approvals/approve/tok-approve", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Entries approved")
	assert.Contains(t, w.Body.String(), "Jordan Pham")

	require.Len(t, stub.consumed, 1)
	assert.Equal(t, "tok-approve", stub.consumed[0].token)
	assert.Empty(t, stub.consumed[0].comment)
}

func TestDecisionLanding_RejectRendersFormWithoutConsuming(t *testing.T) {
	stub := &stubApprovalService{
		peeks: map[string]*service.TokenPeek{"tok-reject": pendingPeek(model.OutcomeReject)},
	}
	router := decisionRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/approvals/reject/tok-reject", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, `name="comment"`)
	assert.Contains(t, body, "/approvals/reject/tok-reject")

	assert.Empty(t, stub.consumed, "rendering the comment form must not consume the token")
}

func TestDecisionLanding_ConsumedToken(t *testing.T) {
	peek := pendingPeek(model.OutcomeApprove)
	peek.Status = model.TokenStatusConsumed
	stub := &stubApprovalService{peeks: map[string]*service.TokenPeek{"tok": peek}}
	router := decisionRouter(stub)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/approvals/approve/tok", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Already decided")
	assert.Empty(t, stub.consumed)
}

func TestDecisionLanding_ExpiredToken(t *testing.T) {
	peek := pendingPeek(model.OutcomeApprove)
	peek.Status = model.TokenStatusExpired
	stub := &stubApprovalService{peeks: map[string]*service.TokenPeek{"tok": peek}}
	router := decisionRouter(stub)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/approvals/approve/tok", nil))

	assert.Equal(t, http.StatusGone, w.Code)
	assert.Contains(t, w.Body.String(), "Link expired")
	assert.Empty(t, stub.consumed)
}

func TestDecisionLanding_UnknownToken(t *testing.T) {
	stub := &stubApprovalService{}
	router := decisionRouter(stub)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/approvals/approve/gone", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Link not recognized")
}

func TestSubmitDecision_RejectWithoutCommentRendersFormAgain(t *testing.T) {
	stub := &stubApprovalService{viewErr: service.ErrCommentRequired}
	router := decisionRouter(stub)

	form := url.Values{"comment": {""}}
	req := httptest.NewRequest(http.MethodPost, "/approvals/reject/tok-reject", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Comment required")
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, "/approvals/reject/tok-reject")
}

func TestSubmitDecision_RejectWithComment(t *testing.T) {
	stub := &stubApprovalService{
		view: &service.DecisionView{
			Outcome:     model.OutcomeReject,
			StudentName: "Jordan Pham",
			RecordCount: 3,
			Comment:     "please split the entries per day",
		},
	}
	router := decisionRouter(stub)

	form := url.Values{"comment": {"please split the entries per day"}}
	req := httptest.NewRequest(http.MethodPost, "/approvals/reject/tok-reject", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Feedback sent")

	require.Len(t, stub.consumed, 1)
	assert.Equal(t, "please split the entries per day", stub.consumed[0].comment)
}

func TestSubmitDecision_AlreadyConsumed(t *testing.T) {
	stub := &stubApprovalService{viewErr: service.ErrTokenAlreadyConsumed}
	router := decisionRouter(stub)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/approvals/approve/tok", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Already decided")
}
