package handler

import (
	"errors"
	"net/http"
	"strings"

	"internhub/internal/middleware"
	"internhub/internal/model"
	"internhub/internal/service"
	"internhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type WorkflowHandler struct {
	workflowService service.WorkflowService
}

func NewWorkflowHandler(workflowService service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService}
}

func (h *WorkflowHandler) RegisterRoutes(router *gin.RouterGroup) {
	workflows := router.Group("/api/workflows")
	{
		workflows.POST("/:processType/initialize", middleware.RequireRole(model.RoleStudent), h.Initialize)
		workflows.GET("/:processType", middleware.RequireRole(model.RoleStudent, model.RoleTeacher, model.RoleAdmin), h.Snapshot)
		workflows.PUT("/:processType/steps/:stepKey/advance", middleware.RequireRole(model.RoleTeacher, model.RoleAdmin), h.AdvanceStep)
	}
}

type advanceStepRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

// Initialize starts the workflow for the calling student
// @Summary      Initialize workflow
// @Description  Creates the step state for the caller and process type, first eligible step in progress
// @Tags         workflows
// @Produce      json
// @Security     BearerAuth
// @Param        processType  path      string  true  "INTERNSHIP or PROJECT"
// @Success      201  {object}  response.Response{data=service.WorkflowSnapshot}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/workflows/{processType}/initialize [post]
func (h *WorkflowHandler) Initialize(c *gin.Context) {
	userID, _ := c.Get("userID")
	studentID, _ := userID.(string)
	processType := strings.ToUpper(c.Param("processType"))

	snapshot, err := h.workflowService.Initialize(c.Request.Context(), studentID, processType)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyInitialized) {
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, snapshot))
}

// Snapshot returns the current step state and progress
// @Summary      Workflow snapshot
// @Description  Returns step statuses, current step, progress percent and the eligibility block flag
// @Tags         workflows
// @Produce      json
// @Security     BearerAuth
// @Param        processType  path   string  true   "INTERNSHIP or PROJECT"
// @Param        student_id   query  string  false  "Defaults to the caller; teachers/admins may inspect any student"
// @Success      200  {object}  response.Response{data=service.WorkflowSnapshot}
// @Failure      400  {object}  response.Response
// @Router       /api/workflows/{processType} [get]
func (h *WorkflowHandler) Snapshot(c *gin.Context) {
	userID, _ := c.Get("userID")
	callerID, _ := userID.(string)
	role, _ := c.Get("userRole")
	processType := strings.ToUpper(c.Param("processType"))

	studentID := callerID
	if requested := c.Query("student_id"); requested != "" {
		// Students may only ever see their own progress.
		if role == model.RoleStudent && requested != callerID {
			c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied"))
			return
		}
		studentID = requested
	}

	snapshot, err := h.workflowService.Snapshot(c.Request.Context(), studentID, processType)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, snapshot))
}

// AdvanceStep administratively completes a step for a student
// @Summary      Advance workflow step
// @Description  Marks the step completed and moves the next eligible step to in progress. Idempotent for completed steps.
// @Tags         workflows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        processType  path  string              true  "INTERNSHIP or PROJECT"
// @Param        stepKey      path  string              true  "Step key"
// @Param        payload      body  advanceStepRequest  true  "Target student"
// @Success      200  {object}  response.Response{data=service.WorkflowSnapshot}
// @Failure      400  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/workflows/{processType}/steps/{stepKey}/advance [put]
func (h *WorkflowHandler) AdvanceStep(c *gin.Context) {
	var req advanceStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	actorID, _ := userID.(string)
	processType := strings.ToUpper(c.Param("processType"))
	stepKey := c.Param("stepKey")

	snapshot, err := h.workflowService.Advance(c.Request.Context(), actorID, req.StudentID, processType, stepKey)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownStep):
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		case errors.Is(err, service.ErrDependenciesUnmet):
			c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, err.Error()))
		default:
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, snapshot))
}
