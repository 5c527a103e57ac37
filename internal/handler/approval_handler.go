package handler

import (
	"errors"
	"fmt"
	"net/http"

	"internhub/internal/middleware"
	"internhub/internal/model"
	"internhub/internal/service"
	"internhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/approvals")
	{
		api.POST("/requests", middleware.RequireRole(model.RoleStudent), h.CreateApprovalRequest)
		api.GET("/history", middleware.RequireRole(model.RoleStudent), h.GetApprovalHistory)
	}

	// Unauthenticated by design: the token in the URL is the capability.
	public := router.Group("/approvals")
	{
		public.GET("/approve/:token", h.DecisionLanding)
		public.POST("/approve/:token", h.SubmitDecision)
		public.GET("/reject/:token", h.DecisionLanding)
		public.POST("/reject/:token", h.SubmitDecision)
	}
}

// CreateApprovalRequest issues a new approval request for the caller
// @Summary      Request supervisor approval
// @Description  Resolves the selected unapproved log entries and emails the supervisor an approve and a reject link
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateApprovalRequestDTO  true  "Selection"
// @Success      201      {object}  response.Response{data=service.ApprovalRequestReceipt}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/approvals/requests [post]
func (h *ApprovalHandler) CreateApprovalRequest(c *gin.Context) {
	var req service.CreateApprovalRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	studentID, _ := userID.(string)

	receipt, err := h.approvalService.CreateApprovalRequest(c.Request.Context(), studentID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyScope), errors.Is(err, service.ErrSupervisorNotFound):
			c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, err.Error()))
		default:
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		}
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, receipt))
}

// GetApprovalHistory lists the caller's past approval requests
// @Summary      Approval history
// @Description  Returns the student's approval requests, most recent first, capped at 50
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.ApprovalHistoryEntry}
// @Router       /api/approvals/history [get]
func (h *ApprovalHandler) GetApprovalHistory(c *gin.Context) {
	userID, _ := c.Get("userID")
	studentID, _ := userID.(string)

	history, err := h.approvalService.GetApprovalHistory(c.Request.Context(), studentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// DecisionLanding handles a supervisor clicking a mailed link. Approve
// tokens are consumed immediately; reject tokens render a comment form and
// mutate nothing until the form is posted.
func (h *ApprovalHandler) DecisionLanding(c *gin.Context) {
	tokenValue := c.Param("token")

	peek, err := h.approvalService.PeekToken(c.Request.Context(), tokenValue)
	if err != nil {
		h.renderDecisionError(c, err)
		return
	}

	switch peek.Status {
	case model.TokenStatusConsumed:
		h.renderDecisionError(c, service.ErrTokenAlreadyConsumed)
		return
	case model.TokenStatusExpired:
		h.renderDecisionError(c, service.ErrTokenExpired)
		return
	}

	if peek.Outcome == model.OutcomeReject {
		renderDecisionPage(c, http.StatusOK, decisionPage{
			Title:      "Request changes",
			Tone:       "warn",
			Message:    fmt.Sprintf("You are about to send %d work-log entries of %s back for revision.", peek.RecordCount, peek.StudentName),
			ShowForm:   true,
			FormAction: c.Request.URL.Path,
		})
		return
	}

	h.consumeAndRender(c, tokenValue, "")
}

// SubmitDecision applies the decision carried by the token, with the comment
// from the form body for rejections.
func (h *ApprovalHandler) SubmitDecision(c *gin.Context) {
	h.consumeAndRender(c, c.Param("token"), c.PostForm("comment"))
}

func (h *ApprovalHandler) consumeAndRender(c *gin.Context, tokenValue, comment string) {
	view, err := h.approvalService.ConsumeDecision(c.Request.Context(), tokenValue, comment)
	if err != nil {
		h.renderDecisionError(c, err)
		return
	}

	if view.Outcome == model.OutcomeApprove {
		renderDecisionPage(c, http.StatusOK, decisionPage{
			Title:   "Entries approved",
			Tone:    "ok",
			Message: fmt.Sprintf("You approved %d work-log entries of %s. Thank you — the student has been notified.", view.RecordCount, view.StudentName),
		})
		return
	}
	renderDecisionPage(c, http.StatusOK, decisionPage{
		Title:   "Feedback sent",
		Tone:    "ok",
		Message: fmt.Sprintf("You sent %d work-log entries of %s back for revision. The student has been notified of your comment.", view.RecordCount, view.StudentName),
	})
}

func (h *ApprovalHandler) renderDecisionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		renderDecisionPage(c, http.StatusNotFound, decisionPage{
			Title:   "Link not recognized",
			Tone:    "err",
			Message: "This approval link is not valid. Please use the most recent email you received, or ask the student to send a new request.",
		})
	case errors.Is(err, service.ErrTokenExpired):
		renderDecisionPage(c, http.StatusGone, decisionPage{
			Title:   "Link expired",
			Tone:    "warn",
			Message: "This approval link has expired. Please ask the student to send a new approval request.",
		})
	case errors.Is(err, service.ErrTokenAlreadyConsumed):
		renderDecisionPage(c, http.StatusConflict, decisionPage{
			Title:   "Already decided",
			Tone:    "warn",
			Message: "A decision for this request has already been recorded. Nothing further is needed.",
		})
	case errors.Is(err, service.ErrCommentRequired):
		renderDecisionPage(c, http.StatusBadRequest, decisionPage{
			Title:      "Comment required",
			Tone:       "err",
			Message:    "Rejecting entries requires a short comment so the student knows what to fix.",
			ShowForm:   true,
			FormAction: c.Request.URL.Path,
		})
	default:
		renderDecisionPage(c, http.StatusInternalServerError, decisionPage{
			Title:   "Something went wrong",
			Tone:    "err",
			Message: "We could not process the decision right now. Please try the link again in a moment.",
		})
	}
}
