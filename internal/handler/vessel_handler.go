package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ferrylink/service-fleet/internal/application"
	"github.com/ferrylink/service-fleet/internal/platform/auth"
	"github.com/ferrylink/service-fleet/internal/platform/middleware"
	"github.com/ferrylink/service-fleet/internal/platform/response"
)

// VesselHandler handles HTTP requests for the fleet registry.
type VesselHandler struct {
	service *application.VesselService
}

// NewVesselHandler creates a new VesselHandler.
func NewVesselHandler(service *application.VesselService) *VesselHandler {
	return &VesselHandler{service: service}
}

// RegisterRoutes registers vessel routes. All of them need an operator or admin token.
func (h *VesselHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	vessels := r.Group("/api/v1/vessels")
	vessels.Use(
		middleware.AuthMiddleware(jwtManager),
		middleware.RequireRole(auth.RoleOperator, auth.RoleAdmin),
	)
	{
		vessels.POST("", h.CreateVessel)
		vessels.GET("", h.ListVessels)
		vessels.GET("/:id", h.GetVessel)
		vessels.PUT("/:id", h.UpdateVessel)
		vessels.DELETE("/:id", h.RetireVessel)
	}
}

// CreateVessel handles POST /api/v1/vessels.
func (h *VesselHandler) CreateVessel(c *gin.Context) {
	var req application.CreateVesselRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.service.CreateVessel(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListVessels handles GET /api/v1/vessels.
func (h *VesselHandler) ListVessels(c *gin.Context) {
	result, err := h.service.ListVessels(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetVessel handles GET /api/v1/vessels/:id.
func (h *VesselHandler) GetVessel(c *gin.Context) {
	vesselID, ok := parseID(c, "vessel")
	if !ok {
		return
	}
	result, err := h.service.GetVessel(c.Request.Context(), vesselID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdateVessel handles PUT /api/v1/vessels/:id.
func (h *VesselHandler) UpdateVessel(c *gin.Context) {
	vesselID, ok := parseID(c, "vessel")
	if !ok {
		return
	}
	var req application.UpdateVesselRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.service.UpdateVessel(c.Request.Context(), vesselID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// RetireVessel handles DELETE /api/v1/vessels/:id.
func (h *VesselHandler) RetireVessel(c *gin.Context) {
	vesselID, ok := parseID(c, "vessel")
	if !ok {
		return
	}
	if err := h.service.RetireVessel(c.Request.Context(), vesselID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
