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

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	audit := router.Group("/api/audit", middleware.RequireRole(model.RoleAdmin))
	{
		audit.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns the audit trail, newest first
// @Summary      List audit logs
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        action  query     string  false  "Filter by action"
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response{data=[]service.AuditLogResponse}
// @Router       /api/audit [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), c.Query("action"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   logs,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}
