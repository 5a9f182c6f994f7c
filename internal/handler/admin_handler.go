package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ferrylink/service-fleet/internal/application"
	"github.com/ferrylink/service-fleet/internal/platform/auth"
	"github.com/ferrylink/service-fleet/internal/platform/middleware"
	"github.com/ferrylink/service-fleet/internal/platform/response"
)

// AdminSailingHandler handles admin HTTP requests for timetable oversight.
type AdminSailingHandler struct {
	service *application.SailingService
}

// NewAdminSailingHandler creates a new AdminSailingHandler.
func NewAdminSailingHandler(service *application.SailingService) *AdminSailingHandler {
	return &AdminSailingHandler{service: service}
}

// RegisterRoutes registers admin sailing routes.
func (h *AdminSailingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/sailings", h.ListSailings)
		admin.GET("/stats/sailings", h.SailingStats)
	}
}

// ListSailings handles GET /api/v1/admin/sailings.
func (h *AdminSailingHandler) ListSailings(c *gin.Context) {
	page, limit := parsePagination(c)

	sailings, total, err := h.service.ListAllSailings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, sailings, total, page, limit)
}

// SailingStats handles GET /api/v1/admin/stats/sailings.
func (h *AdminSailingHandler) SailingStats(c *gin.Context) {
	stats, err := h.service.GetSailingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
