package handler

import (
	"net/http"

	"internhub/internal/middleware"
	"internhub/internal/model"
	"internhub/internal/service"
	"internhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type PlacementHandler struct {
	placementService service.PlacementService
}

func NewPlacementHandler(placementService service.PlacementService) *PlacementHandler {
	return &PlacementHandler{placementService: placementService}
}

func (h *PlacementHandler) RegisterRoutes(router *gin.RouterGroup) {
	placements := router.Group("/api/placements")
	{
		placements.POST("", middleware.RequireRole(model.RoleTeacher, model.RoleAdmin), h.CreatePlacement)
		placements.GET("/me", middleware.RequireRole(model.RoleStudent), h.ListOwnPlacements)
		placements.GET("/student/:studentId", middleware.RequireRole(model.RoleTeacher, model.RoleAdmin), h.ListStudentPlacements)
		placements.DELETE("/:id", middleware.RequireRole(model.RoleTeacher, model.RoleAdmin), h.ClosePlacement)
	}
}

// CreatePlacement registers a placement with an external supervisor
// @Summary      Create placement
// @Tags         placements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePlacementRequest  true  "Placement"
// @Success      201      {object}  response.Response{data=service.PlacementResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/placements [post]
func (h *PlacementHandler) CreatePlacement(c *gin.Context) {
	var req service.CreatePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	actorID, _ := userID.(string)

	placement, err := h.placementService.CreatePlacement(c.Request.Context(), actorID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, placement))
}

// ListOwnPlacements lists the calling student's placements
// @Summary      My placements
// @Tags         placements
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.PlacementResponse}
// @Router       /api/placements/me [get]
func (h *PlacementHandler) ListOwnPlacements(c *gin.Context) {
	userID, _ := c.Get("userID")
	studentID, _ := userID.(string)

	placements, err := h.placementService.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, placements))
}

// ListStudentPlacements lists a student's placements for staff
// @Summary      Student placements
// @Tags         placements
// @Produce      json
// @Security     BearerAuth
// @Param        studentId  path      string  true  "Student id"
// @Success      200        {object}  response.Response{data=[]service.PlacementResponse}
// @Router       /api/placements/student/{studentId} [get]
func (h *PlacementHandler) ListStudentPlacements(c *gin.Context) {
	placements, err := h.placementService.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, placements))
}

// ClosePlacement deactivates a placement
// @Summary      Close placement
// @Tags         placements
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Placement id"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/placements/{id} [delete]
func (h *PlacementHandler) ClosePlacement(c *gin.Context) {
	userID, _ := c.Get("userID")
	actorID, _ := userID.(string)

	if err := h.placementService.ClosePlacement(c.Request.Context(), actorID, c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"closed": true}))
}
