package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ferrylink/service-fleet/internal/application"
	"github.com/ferrylink/service-fleet/internal/platform/auth"
	"github.com/ferrylink/service-fleet/internal/platform/middleware"
	"github.com/ferrylink/service-fleet/internal/platform/response"
)

// statusChangeRequest is the optional body of depart and arrive calls.
type statusChangeRequest struct {
	At *time.Time `json:"at"`
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// SailingHandler handles HTTP requests for sailing operations.
type SailingHandler struct {
	service *application.SailingService
}

// NewSailingHandler creates a new SailingHandler.
func NewSailingHandler(service *application.SailingService) *SailingHandler {
	return &SailingHandler{service: service}
}

// RegisterRoutes registers all sailing routes on the given router group.
// Reads are public; timetable changes need an operator or admin token.
func (h *SailingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	sailings := r.Group("/api/v1/sailings")
	{
		sailings.GET("/:id", h.GetSailing)
		sailings.GET("/:id/position", h.GetPosition)
	}

	ops := sailings.Group("",
		middleware.AuthMiddleware(jwtManager),
		middleware.RequireRole(auth.RoleOperator, auth.RoleAdmin),
	)
	{
		ops.POST("", h.CreateSailing)
		ops.POST("/:id/depart", h.DepartSailing)
		ops.POST("/:id/arrive", h.ArriveSailing)
		ops.POST("/:id/cancel", h.CancelSailing)
		ops.POST("/:id/reschedule", h.RescheduleSailing)
	}
}

// CreateSailing handles POST /api/v1/sailings.
func (h *SailingHandler) CreateSailing(c *gin.Context) {
	var req application.CreateSailingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateSailing(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetSailing handles GET /api/v1/sailings/:id.
func (h *SailingHandler) GetSailing(c *gin.Context) {
	sailingID, ok := parseID(c, "sailing")
	if !ok {
		return
	}

	result, err := h.service.GetSailing(c.Request.Context(), sailingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetPosition handles GET /api/v1/sailings/:id/position.
func (h *SailingHandler) GetPosition(c *gin.Context) {
	sailingID, ok := parseID(c, "sailing")
	if !ok {
		return
	}

	result, err := h.service.GetPosition(c.Request.Context(), sailingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DepartSailing handles POST /api/v1/sailings/:id/depart.
func (h *SailingHandler) DepartSailing(c *gin.Context) {
	sailingID, ok := parseID(c, "sailing")
	if !ok {
		return
	}

	var req statusChangeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.service.DepartSailing(c.Request.Context(), sailingID, req.At)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ArriveSailing handles POST /api/v1/sailings/:id/arrive.
func (h *SailingHandler) ArriveSailing(c *gin.Context) {
	sailingID, ok := parseID(c, "sailing")
	if !ok {
		return
	}

	var req statusChangeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.service.ArriveSailing(c.Request.Context(), sailingID, req.At)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelSailing handles POST /api/v1/sailings/:id/cancel.
func (h *SailingHandler) CancelSailing(c *gin.Context) {
	sailingID, ok := parseID(c, "sailing")
	if !ok {
		return
	}

	var req cancelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.service.CancelSailing(c.Request.Context(), sailingID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RescheduleSailing handles POST /api/v1/sailings/:id/reschedule.
func (h *SailingHandler) RescheduleSailing(c *gin.Context) {
	sailingID, ok := parseID(c, "sailing")
	if !ok {
		return
	}

	var req application.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RescheduleSailing(c.Request.Context(), sailingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// parseID reads the :id path parameter, answering 400 when it is not a UUID.
func parseID(c *gin.Context, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid "+entity+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds the body when there is one.
func bindOptionalJSON(c *gin.Context, v interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
