package handler

import (
	"net/http"

	"internhub/internal/middleware"
	"internhub/internal/model"
	"internhub/internal/service"
	"internhub/pkg/pagination"
	"internhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type LogEntryHandler struct {
	logService service.LogEntryService
}

func NewLogEntryHandler(logService service.LogEntryService) *LogEntryHandler {
	return &LogEntryHandler{logService: logService}
}

func (h *LogEntryHandler) RegisterRoutes(router *gin.RouterGroup) {
	logs := router.Group("/api/logs", middleware.RequireRole(model.RoleStudent))
	{
		logs.POST("", h.CreateLogEntry)
		logs.GET("", h.ListLogEntries)
		logs.PUT("/:id", h.UpdateLogEntry)
		logs.DELETE("/:id", h.DeleteLogEntry)
	}
}

// CreateLogEntry records one work-log entry for the calling student
// @Summary      Create log entry
// @Tags         logs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateLogEntryRequest  true  "Log entry"
// @Success      201      {object}  response.Response{data=service.LogEntryResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/logs [post]
func (h *LogEntryHandler) CreateLogEntry(c *gin.Context) {
	var req service.CreateLogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	studentID, _ := userID.(string)

	entry, err := h.logService.CreateLogEntry(c.Request.Context(), studentID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entry))
}

// ListLogEntries returns the caller's log entries, newest first
// @Summary      List log entries
// @Tags         logs
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page"
// @Param        limit  query     int  false  "Page size"
// @Success      200    {object}  response.Response{data=[]service.LogEntryResponse}
// @Router       /api/logs [get]
func (h *LogEntryHandler) ListLogEntries(c *gin.Context) {
	params := pagination.Parse(c)

	userID, _ := c.Get("userID")
	studentID, _ := userID.(string)

	entries, total, err := h.logService.ListLogEntries(c.Request.Context(), studentID, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   entries,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// UpdateLogEntry edits an unapproved entry owned by the caller
// @Summary      Update log entry
// @Tags         logs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Log entry id"
// @Param        payload  body      service.UpdateLogEntryRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.LogEntryResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/logs/{id} [put]
func (h *LogEntryHandler) UpdateLogEntry(c *gin.Context) {
	var req service.UpdateLogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	studentID, _ := userID.(string)

	entry, err := h.logService.UpdateLogEntry(c.Request.Context(), studentID, c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// DeleteLogEntry removes an unapproved entry owned by the caller
// @Summary      Delete log entry
// @Tags         logs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Log entry id"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/logs/{id} [delete]
func (h *LogEntryHandler) DeleteLogEntry(c *gin.Context) {
	userID, _ := c.Get("userID")
	studentID, _ := userID.(string)

	if err := h.logService.DeleteLogEntry(c.Request.Context(), studentID, c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
